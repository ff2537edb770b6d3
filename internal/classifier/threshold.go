package classifier

// ValueOp selects how accumulated values in a Threshold's window are
// combined before comparison.
type ValueOp int

const (
	ValueSum ValueOp = iota
	ValueAverage
)

// Comparator selects how the aggregated value is compared against
// Threshold.Value.
type Comparator int

const (
	GreaterThan Comparator = iota
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
)

// Threshold is one predicate over a per-IP value series: a stake band, a
// window, an aggregation, a comparator, and the group it adds matching IPs
// to. Immutable after validation (internal/config fills in the defaulted
// fields before a Threshold is ever evaluated).
type Threshold struct {
	GroupName          string
	GroupExpirationMs  uint64
	LowStake           *uint64
	HighStake          *uint64
	MinValueCount      *uint64
	ValueOp            ValueOp
	Comparator         Comparator
	Value              uint64
	DurationMs         uint64
	ContinueAfterMatch bool
}

// Evaluate applies the threshold to one IP's recent value series and, if
// it matches, adds the IP to its configured group. It returns true when
// the containing Classification should stop evaluating further Thresholds
// for this IP (§4.B step 6).
func (t *Threshold) Evaluate(stakes map[IpAddr]uint64, now Timestamp, ip IpAddr, series []TimestampedValue, groups *GroupRegistry) bool {
	stake := stakes[ip]
	if t.LowStake != nil && stake < *t.LowStake {
		return false
	}
	if t.HighStake != nil && stake > *t.HighStake {
		return false
	}

	var cutoff Timestamp
	if now > t.DurationMs {
		cutoff = now - t.DurationMs
	}
	var sum uint64
	var count uint64
	for _, v := range series {
		if v.Timestamp >= cutoff {
			sum += v.Value
			count++
		}
	}

	if t.MinValueCount != nil && count < *t.MinValueCount {
		return false
	}

	if t.ValueOp == ValueAverage {
		if count == 0 {
			// §9 Open Question: Average over an empty window is undefined
			// and must not match.
			return false
		}
		sum /= count
	}

	var matched bool
	switch t.Comparator {
	case GreaterThan:
		matched = sum > t.Value
	case GreaterThanOrEqual:
		matched = sum >= t.Value
	case LessThan:
		matched = sum < t.Value
	case LessThanOrEqual:
		matched = sum <= t.Value
	}

	if !matched {
		return false
	}

	groups.add(t.GroupName, ip, now+t.GroupExpirationMs)
	return !t.ContinueAfterMatch
}
