package classifier

import "net/netip"

// recordingEmitter captures every decision handed to it so tests can
// assert on exact Add/Update/Remove/LeaderChange sequences without
// parsing stdout.
type recordingEmitter struct {
	adds      []emitCall
	updates   []emitCall
	removes   []emitCall
	leader    []bool
}

type emitCall struct {
	ip     IpAddr
	group  string
	expiry Timestamp
}

func (r *recordingEmitter) OnAdd(ip IpAddr, group string, expiry Timestamp) {
	r.adds = append(r.adds, emitCall{ip, group, expiry})
}

func (r *recordingEmitter) OnUpdate(ip IpAddr, group string, expiry Timestamp) {
	r.updates = append(r.updates, emitCall{ip, group, expiry})
}

func (r *recordingEmitter) OnRemove(ip IpAddr, group string) {
	r.removes = append(r.removes, emitCall{ip: ip, group: group})
}

func (r *recordingEmitter) OnLeaderChange(isLeader bool) {
	r.leader = append(r.leader, isLeader)
}

func mustIp(s string) IpAddr {
	ip, err := netip.ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return ip
}

func u64p(v uint64) *uint64 { return &v }
