package classifier

import "testing"

func TestPeerTable_UselessConnectionDetection(t *testing.T) {
	p := NewPeerTable(2000)
	ip := mustIp("12.0.0.1")

	p.Started(0, ip, 0)
	if useless := p.Finished(1999, ip); useless {
		t.Errorf("connection under the useless duration threshold must not be flagged")
	}

	p.Started(2000, ip, 0)
	if useless := p.Finished(2000, ip); !useless {
		t.Errorf("zero-tx connection held at least the useless duration must be flagged")
	}
}

func TestPeerTable_TxSubmissionSuppressesUselessFlag(t *testing.T) {
	p := NewPeerTable(2000)
	ip := mustIp("12.0.0.2")

	p.Started(0, ip, 0)
	p.UserTxSubmitted(500, ip)
	if useless := p.Finished(5000, ip); useless {
		t.Errorf("a peer that submitted a tx must never be flagged useless")
	}
}

// Property 8: peer reaping. After Periodic(now), no peer with
// last_seen < now - 3 days remains, and its stake entry is gone too.
func TestPeerTable_ReapsInactivePeers(t *testing.T) {
	p := NewPeerTable(2000)
	ip := mustIp("12.0.0.3")
	p.Started(1000, ip, 500)

	p.Periodic(1000 + PeerRetentionMs - 1)
	if _, ok := p.peers[ip]; !ok {
		t.Fatalf("peer must still be present just before the retention cutoff")
	}

	p.Periodic(1000 + PeerRetentionMs + 1)
	if _, ok := p.peers[ip]; ok {
		t.Errorf("peer must be reaped once inactive past the retention window")
	}
	if _, ok := p.stakes[ip]; ok {
		t.Errorf("stake entry must be reaped alongside the peer")
	}
}

func TestPeerTable_StakeDefaultsToZero(t *testing.T) {
	p := NewPeerTable(2000)
	if s := p.Stake(mustIp("12.0.0.4")); s != 0 {
		t.Errorf("unknown peer stake must default to 0, got %d", s)
	}
}
