package classifier

// PeerRetentionMs is how long a peer is tracked after its last activity
// before being reaped from the peer table (§4.E, §8 property 8).
const PeerRetentionMs = 3 * 24 * 60 * 60 * 1000

// DefaultUselessQuicConnectionDurationMs is the minimum connection lifetime
// below which a zero-tx connection is considered merely short-lived rather
// than useless (§6 config default).
const DefaultUselessQuicConnectionDurationMs = 2000

// Peer tracks first/last activity and submission count for one IP. The
// stake last reported for it by Started/Exceeded events is kept separately,
// in PeerTable's stake map.
type Peer struct {
	FirstSeen   Timestamp
	LastSeen    Timestamp
	TxSubmitted uint64
}

// PeerTable is the IP -> Peer store plus the parallel stake map threshold
// evaluation reads from (§3, §4.E).
type PeerTable struct {
	peers                          map[IpAddr]*Peer
	stakes                         map[IpAddr]uint64
	uselessQuicConnectionDurationMs uint64
}

func NewPeerTable(uselessQuicConnectionDurationMs uint64) *PeerTable {
	if uselessQuicConnectionDurationMs == 0 {
		uselessQuicConnectionDurationMs = DefaultUselessQuicConnectionDurationMs
	}
	return &PeerTable{
		peers:                           make(map[IpAddr]*Peer),
		stakes:                          make(map[IpAddr]uint64),
		uselessQuicConnectionDurationMs: uselessQuicConnectionDurationMs,
	}
}

func (p *PeerTable) touch(now Timestamp, ip IpAddr) *Peer {
	peer, ok := p.peers[ip]
	if !ok {
		peer = &Peer{FirstSeen: now, LastSeen: now}
		p.peers[ip] = peer
		return peer
	}
	peer.LastSeen = now
	return peer
}

// Started records (or refreshes) a peer and its reported stake.
func (p *PeerTable) Started(now Timestamp, ip IpAddr, stake uint64) {
	p.touch(now, ip)
	p.stakes[ip] = stake
}

// Finished reports whether the connection was "useless" (never submitted a
// tx and lived at least uselessQuicConnectionDurationMs) so the caller can
// feed the useless_quic_connections classification.
func (p *PeerTable) Finished(now Timestamp, ip IpAddr) (useless bool) {
	peer, ok := p.peers[ip]
	if !ok {
		return false
	}
	peer.LastSeen = now
	if peer.TxSubmitted == 0 && now-peer.FirstSeen >= p.uselessQuicConnectionDurationMs {
		return true
	}
	return false
}

// UserTxSubmitted bumps the submission counter for ip, creating its Peer
// entry on first activity (§3 Peer lifecycle: "created on first
// Started/Exceeded/UserTx").
func (p *PeerTable) UserTxSubmitted(now Timestamp, ip IpAddr) {
	peer := p.touch(now, ip)
	peer.TxSubmitted++
}

// VoteTxObserved bumps the submission counter and refreshes last-seen for
// an already-known peer. Unlike UserTx, VoteTx never creates a Peer entry:
// a VoteTx with no prior Started is dropped, per §7's worked example.
func (p *PeerTable) VoteTxObserved(now Timestamp, ip IpAddr) {
	peer, ok := p.peers[ip]
	if !ok {
		return
	}
	peer.LastSeen = now
	peer.TxSubmitted++
}

// Stake returns the most recently reported stake for ip, or 0 if unknown.
func (p *PeerTable) Stake(ip IpAddr) uint64 {
	return p.stakes[ip]
}

// Stakes exposes the live stake map for threshold evaluation. Callers in
// the owner goroutine may read it directly; the debug API must go through
// State.Snapshot instead.
func (p *PeerTable) Stakes() map[IpAddr]uint64 {
	return p.stakes
}

// Periodic reaps peers (and their stake entries) that have been inactive
// for longer than PeerRetentionMs.
func (p *PeerTable) Periodic(now Timestamp) {
	if now < PeerRetentionMs {
		return
	}
	cutoff := now - PeerRetentionMs
	for ip, peer := range p.peers {
		if peer.LastSeen < cutoff {
			delete(p.peers, ip)
			delete(p.stakes, ip)
		}
	}
}

// Snapshot returns a defensive copy of the peer table for the debug API.
func (p *PeerTable) Snapshot() map[IpAddr]Peer {
	out := make(map[IpAddr]Peer, len(p.peers))
	for ip, peer := range p.peers {
		out[ip] = *peer
	}
	return out
}
