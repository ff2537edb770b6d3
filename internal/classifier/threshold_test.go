package classifier

import "testing"

// S1: failed rate, sum, greater-than. 11 Failed events inside a 6s window
// against a threshold of >10 should add the IP once the window closes.
func TestThreshold_S1_SumGreaterThan(t *testing.T) {
	emit := &recordingEmitter{}
	groups := NewGroupRegistry(emit)
	c := NewClassification([]*Threshold{{
		GroupName:         "bad_quic",
		GroupExpirationMs: 60000,
		ValueOp:           ValueSum,
		Comparator:        GreaterThan,
		Value:             10,
		DurationMs:        6000,
	}}, false, 6000)

	ip := mustIp("1.1.1.1")
	for ts := Timestamp(1000); ts <= 1010; ts++ {
		c.AddValue(ip, ts, 1)
	}

	c.Periodic(6000, map[IpAddr]uint64{}, groups)

	if len(emit.adds) != 1 {
		t.Fatalf("expected exactly one Add, got %d (%v)", len(emit.adds), emit.adds)
	}
	got := emit.adds[0]
	if got.ip != ip || got.group != "bad_quic" || got.expiry != 66000 {
		t.Errorf("unexpected add: %+v", got)
	}
}

// S2: same config with >=10; exactly 10 events should still match at the
// boundary.
func TestThreshold_S2_BoundaryGreaterOrEqual(t *testing.T) {
	emit := &recordingEmitter{}
	groups := NewGroupRegistry(emit)
	c := NewClassification([]*Threshold{{
		GroupName:         "bad_quic",
		GroupExpirationMs: 60000,
		ValueOp:           ValueSum,
		Comparator:        GreaterThanOrEqual,
		Value:             10,
		DurationMs:        6000,
	}}, false, 6000)

	ip := mustIp("2.2.2.2")
	for ts := Timestamp(1000); ts < 1010; ts++ {
		c.AddValue(ip, ts, 1)
	}

	c.Periodic(6000, map[IpAddr]uint64{}, groups)

	if len(emit.adds) != 1 {
		t.Fatalf("expected exactly one Add at the boundary, got %d", len(emit.adds))
	}
}

// S3: a low_stake gate suppresses matching until the peer's reported stake
// clears the band. The second tick at 7010 still holds ten of the earlier
// values (1010..1019) inside its 6s window, so with the ten new values the
// sum is 20 > 10.
func TestThreshold_S3_StakeGate(t *testing.T) {
	emit := &recordingEmitter{}
	groups := NewGroupRegistry(emit)
	c := NewClassification([]*Threshold{{
		GroupName:         "bad_quic",
		GroupExpirationMs: 60000,
		LowStake:          u64p(1000),
		ValueOp:           ValueSum,
		Comparator:        GreaterThan,
		Value:             10,
		DurationMs:        6000,
	}}, false, 6000)

	ip := mustIp("3.3.3.3")
	stakes := map[IpAddr]uint64{ip: 500}
	for ts := Timestamp(1000); ts < 1020; ts++ {
		c.AddValue(ip, ts, 1)
	}
	c.Periodic(7000, stakes, groups)
	if len(emit.adds) != 0 {
		t.Fatalf("expected no add while under-staked, got %v", emit.adds)
	}

	stakes[ip] = 2000
	for ts := Timestamp(7000); ts < 7010; ts++ {
		c.AddValue(ip, ts, 1)
	}
	c.Periodic(7010, stakes, groups)
	if len(emit.adds) != 1 {
		t.Fatalf("expected one add once staked above the band, got %v", emit.adds)
	}
}

// S6: evaluate_all=false stops at the first matching threshold;
// evaluate_all=true runs every threshold regardless.
func TestThreshold_S6_EvaluateAllVsFirstMatch(t *testing.T) {
	build := func(evaluateAll bool) (*Classification, *recordingEmitter, IpAddr) {
		emit := &recordingEmitter{}
		groups := NewGroupRegistry(emit)
		t1 := &Threshold{GroupName: "g1", GroupExpirationMs: 1000, ValueOp: ValueSum, Comparator: GreaterThan, Value: 0, DurationMs: 1000}
		t2 := &Threshold{GroupName: "g2", GroupExpirationMs: 1000, ValueOp: ValueSum, Comparator: GreaterThan, Value: 0, DurationMs: 1000}
		c := NewClassification([]*Threshold{t1, t2}, evaluateAll, 1000)
		ip := mustIp("6.6.6.6")
		c.AddValue(ip, 100, 1)
		c.Periodic(1000, map[IpAddr]uint64{}, groups)
		return c, emit, ip
	}

	_, emitFirst, _ := build(false)
	if len(emitFirst.adds) != 1 || emitFirst.adds[0].group != "g1" {
		t.Fatalf("evaluate_all=false: expected only g1 to receive the IP, got %v", emitFirst.adds)
	}

	_, emitAll, _ := build(true)
	if len(emitAll.adds) != 2 {
		t.Fatalf("evaluate_all=true: expected both groups to receive the IP, got %v", emitAll.adds)
	}
}

// Aggregation law: average is a floored integer division over the window,
// and is undefined (never matches) over an empty window.
func TestThreshold_AggregationLaw(t *testing.T) {
	emit := &recordingEmitter{}
	groups := NewGroupRegistry(emit)
	th := &Threshold{
		GroupName:         "avg_group",
		GroupExpirationMs: 1000,
		ValueOp:           ValueAverage,
		Comparator:        GreaterThanOrEqual,
		Value:             5,
		DurationMs:        10000,
	}
	ip := mustIp("4.4.4.4")
	series := []TimestampedValue{{Timestamp: 100, Value: 4}, {Timestamp: 200, Value: 7}}
	// sum=11, count=2, floor(11/2)=5 -> matches >=5
	th.Evaluate(map[IpAddr]uint64{}, 1000, ip, series, groups)
	if len(emit.adds) != 1 {
		t.Fatalf("expected floor(11/2)=5 to satisfy >=5, got %v", emit.adds)
	}

	emit2 := &recordingEmitter{}
	groups2 := NewGroupRegistry(emit2)
	th.Evaluate(map[IpAddr]uint64{}, 1000, ip, nil, groups2)
	if len(emit2.adds) != 0 {
		t.Fatalf("average over an empty window must never match, got %v", emit2.adds)
	}
}

// min_value_count gates evaluation even when the aggregate would otherwise
// match.
func TestThreshold_MinValueCountGate(t *testing.T) {
	emit := &recordingEmitter{}
	groups := NewGroupRegistry(emit)
	th := &Threshold{
		GroupName:         "g",
		GroupExpirationMs: 1000,
		MinValueCount:     u64p(5),
		ValueOp:           ValueSum,
		Comparator:        GreaterThan,
		Value:             0,
		DurationMs:        10000,
	}
	ip := mustIp("5.5.5.5")
	series := []TimestampedValue{{Timestamp: 100, Value: 100}}
	th.Evaluate(map[IpAddr]uint64{}, 1000, ip, series, groups)
	if len(emit.adds) != 0 {
		t.Fatalf("expected min_value_count gate to suppress the match, got %v", emit.adds)
	}
}

// high_stake alone still gates, with no low_stake present.
func TestThreshold_HighStakeOnlyGate(t *testing.T) {
	emit := &recordingEmitter{}
	groups := NewGroupRegistry(emit)
	th := &Threshold{
		GroupName:         "g",
		GroupExpirationMs: 1000,
		HighStake:         u64p(100),
		ValueOp:           ValueSum,
		Comparator:        GreaterThan,
		Value:             0,
		DurationMs:        10000,
	}
	ip := mustIp("7.7.7.7")
	series := []TimestampedValue{{Timestamp: 100, Value: 1}}
	th.Evaluate(map[IpAddr]uint64{ip: 500}, 1000, ip, series, groups)
	if len(emit.adds) != 0 {
		t.Fatalf("expected high_stake-only gate to suppress an over-staked ip, got %v", emit.adds)
	}
}
