package classifier

// Classification is an ordered list of Thresholds sharing defaults, plus
// the per-IP windowed value series they evaluate against (§4.C). One
// Classification owns exactly one metric (e.g. failed_exceeded_quic_connections).
type Classification struct {
	Thresholds     []*Threshold
	EvaluateAll    bool
	maxDurationMs  uint64
	perIpSeries    map[IpAddr][]TimestampedValue
}

// NewClassification builds a Classification from its validated thresholds.
// maxDurationMs must be the largest DurationMs across thresholds (the
// config loader computes and passes this in, per §3's invariant).
func NewClassification(thresholds []*Threshold, evaluateAll bool, maxDurationMs uint64) *Classification {
	return &Classification{
		Thresholds:    thresholds,
		EvaluateAll:   evaluateAll,
		maxDurationMs: maxDurationMs,
		perIpSeries:   make(map[IpAddr][]TimestampedValue),
	}
}

// AddValue appends one measurement. Callers are expected to supply
// non-decreasing timestamps per IP (guaranteed by the §4.F monotonic
// clock), so the series stays sorted without re-sorting here.
func (c *Classification) AddValue(ip IpAddr, ts Timestamp, value uint64) {
	c.perIpSeries[ip] = append(c.perIpSeries[ip], TimestampedValue{Timestamp: ts, Value: value})
}

// Periodic expires old values from every IP's series (bounding memory
// under silent or adversarial peers), drops IPs whose series emptied out,
// then evaluates every remaining IP against this Classification's
// Thresholds in order (§4.C step 2).
func (c *Classification) Periodic(now Timestamp, stakes map[IpAddr]uint64, groups *GroupRegistry) {
	var cutoff Timestamp
	if now > c.maxDurationMs {
		cutoff = now - c.maxDurationMs
	}

	for ip, series := range c.perIpSeries {
		i := 0
		for i < len(series) && series[i].Timestamp < cutoff {
			i++
		}
		if i > 0 {
			series = series[i:]
		}
		if len(series) == 0 {
			delete(c.perIpSeries, ip)
			continue
		}
		c.perIpSeries[ip] = series
	}

	for ip, series := range c.perIpSeries {
		for _, threshold := range c.Thresholds {
			stop := threshold.Evaluate(stakes, now, ip, series, groups)
			if stop && !c.EvaluateAll {
				break
			}
		}
	}
}
