package classifier

import (
	"context"
	"sync"
	"time"
)

// LeaderStatus tracks the three-valued leader-schedule signal §9 reserves
// for future gating. It is recorded and emitted but never used to gate any
// classification decision (§9 "leader-state gating is advisory").
type LeaderStatus int

const (
	LeaderUnknown LeaderStatus = iota
	LeaderIsLeader
	LeaderNotLeader
)

// EventKind tags the variant of an ingest Event (§3 TxIngestMsg).
type EventKind int

const (
	EventFailed EventKind = iota
	EventExceeded
	EventStarted
	EventFinished
	EventVoteTx
	EventUserTx
	EventForwarded
	EventBadFee
	EventFee
	EventWillBeLeader
	EventBeginLeader
	EventEndLeader
	EventDeprecated
)

// Event is the decoded form of one wire message. Only the fields relevant
// to Kind are populated; the rest are zero values.
type Event struct {
	Kind      EventKind
	Timestamp Timestamp
	Ip        IpAddr
	Pubkey    Pubkey
	Signature Signature
	Stake     uint64
	Slots     uint8
	Fee       Fee
}

// StateConfig wires the fully-validated, defaulted config into a State.
// Each Classification pointer may be nil if that metric was not configured
// (§6: all five classification blocks are optional).
type StateConfig struct {
	FailedExceeded                  *Classification
	Useless                         *Classification
	FeeLamports                     *Classification
	FeeMicroPerCuLimit              *Classification
	FeeMicroPerCuUsed               *Classification
	Pubkey                          *PubkeyClassifier
	UselessQuicConnectionDurationMs uint64
	// OutsideLeaderSlotsThreshold is nil when no outside_leader_slots
	// configuration is active (§4.F, §9: leader status is then always
	// treated as Leader — see State.beginLeader/endLeader).
	OutsideLeaderSlotsThreshold *uint64
	Emit                        Emitter
}

// peerSnapshot is one entry of a Snapshot() peer listing.
type peerSnapshot struct {
	Ip          IpAddr
	FirstSeen   Timestamp
	LastSeen    Timestamp
	TxSubmitted uint64
}

// Snapshot is a point-in-time, defensively-copied view of the owner
// goroutine's state, safe to read from any goroutine (§4.K debug API).
type Snapshot struct {
	Groups       map[string]map[IpAddr]Timestamp
	Peers        []peerSnapshot
	LeaderStatus LeaderStatus
}

// State is the single owned aggregate (§9): every classification, the tx
// ledger, the peer table, the group registry and the event clock. It is
// mutated only from the owner goroutine running Run; all other access
// goes through Snapshot, which is guarded by mu.
type State struct {
	clock  Clock
	peers  *PeerTable
	ledger *Ledger
	groups *GroupRegistry
	pubkey *PubkeyClassifier
	emit   Emitter

	failedExceeded     *Classification
	useless            *Classification
	feeLamports        *Classification
	feeMicroPerCuLimit *Classification
	feeMicroPerCuUsed  *Classification

	leaderStatus       LeaderStatus
	outsideLeaderSlots *uint64

	mu       sync.RWMutex
	snapshot Snapshot
}

func NewState(cfg StateConfig, groups *GroupRegistry) *State {
	pubkey := cfg.Pubkey
	if pubkey == nil {
		pubkey = NewPubkeyClassifier(nil)
	}
	return &State{
		peers:              NewPeerTable(cfg.UselessQuicConnectionDurationMs),
		ledger:             NewLedger(),
		groups:             groups,
		pubkey:             pubkey,
		emit:               cfg.Emit,
		failedExceeded:     cfg.FailedExceeded,
		useless:            cfg.Useless,
		feeLamports:        cfg.FeeLamports,
		feeMicroPerCuLimit: cfg.FeeMicroPerCuLimit,
		feeMicroPerCuUsed:  cfg.FeeMicroPerCuUsed,
		leaderStatus:       LeaderUnknown,
		outsideLeaderSlots: cfg.OutsideLeaderSlotsThreshold,
	}
}

// Dispatch normalizes ev's timestamp through the monotonic clock and routes
// it to the relevant subsystem (§4.F dispatch table).
func (s *State) Dispatch(ev Event) {
	now := s.clock.Advance(ev.Timestamp)

	switch ev.Kind {
	case EventFailed:
		if s.failedExceeded != nil {
			s.failedExceeded.AddValue(ev.Ip, now, 1)
		}

	case EventExceeded:
		if s.failedExceeded != nil {
			s.failedExceeded.AddValue(ev.Ip, now, 1)
		}
		s.peers.Started(now, ev.Ip, ev.Stake)
		s.pubkey.Observe(now, ev.Ip, ev.Pubkey, s.groups)

	case EventStarted:
		s.peers.Started(now, ev.Ip, ev.Stake)
		s.pubkey.Observe(now, ev.Ip, ev.Pubkey, s.groups)

	case EventFinished:
		if s.peers.Finished(now, ev.Ip) && s.useless != nil {
			s.useless.AddValue(ev.Ip, now, 1)
		}

	case EventVoteTx:
		s.peers.VoteTxObserved(now, ev.Ip)

	case EventUserTx:
		s.peers.UserTxSubmitted(now, ev.Ip)
		s.ledger.Submit(now, ev.Ip, ev.Signature)

	case EventFee:
		s.ledger.SetFee(ev.Signature, ev.Fee)

	case EventForwarded, EventBadFee, EventDeprecated:
		// Explicitly ignored (§7, §9).

	case EventWillBeLeader:
		s.willBeLeader(now, ev.Slots)

	case EventBeginLeader:
		s.beginLeader()

	case EventEndLeader:
		s.endLeader()
	}
}

// willBeLeader implements the outside_leader_slots advisory check (§4.F):
// when an outside_leader_slots threshold is configured and the reported
// slot offset has reached it, the connection is treated as outside leader
// slots (enterNotLeader); otherwise — including when no threshold is
// configured at all — it is treated as inside leader slots.
func (s *State) willBeLeader(now Timestamp, slots uint8) {
	if s.outsideLeaderSlots != nil && uint64(slots) >= *s.outsideLeaderSlots {
		s.endLeader()
		return
	}
	s.beginLeader()
}

// beginLeader enters the Leader status. When no outside_leader_slots
// configuration is active, leader status is never meaningfully tracked, so
// this unconditionally (re-)declares Leader every time it is called,
// matching the advisory, log-only nature of leader state (§4.F, §9).
func (s *State) beginLeader() {
	if s.outsideLeaderSlots == nil || s.leaderStatus != LeaderIsLeader {
		s.leaderStatus = LeaderIsLeader
		s.emit.OnLeaderChange(true)
	}
}

// endLeader enters NotLeader only when an outside_leader_slots
// configuration is active; otherwise it defers to beginLeader so peers are
// never treated as outside leader slots when that feature isn't enabled
// (§4.F's EndLeader row: "only if outside-leader config present; else
// treated as Leader").
func (s *State) endLeader() {
	if s.outsideLeaderSlots != nil {
		if s.leaderStatus != LeaderNotLeader {
			s.leaderStatus = LeaderNotLeader
			s.emit.OnLeaderChange(false)
		}
		return
	}
	s.beginLeader()
}

// Periodic runs the 1Hz maintenance pass: clock-normalizes now, resolves
// an unreported leader status the same way an EndLeader event would
// (NotLeader when outside_leader_slots is configured, Leader otherwise),
// drains aged-out ledger entries into the fee classifications, runs every
// classification's own periodic pass, reaps the group registry and the
// peer table, then refreshes the snapshot consumed by the debug API (§4.F).
func (s *State) Periodic(reportedNow Timestamp) {
	now := s.clock.Advance(reportedNow)

	if s.leaderStatus == LeaderUnknown {
		s.endLeader()
	}

	for _, attr := range s.ledger.Drain(now) {
		if s.feeLamports != nil {
			s.feeLamports.AddValue(attr.Submitter, attr.Timestamp, attr.Lamports)
		}
		if s.feeMicroPerCuLimit != nil {
			s.feeMicroPerCuLimit.AddValue(attr.Submitter, attr.Timestamp, attr.MicrolamportsPerCuLim)
		}
		if s.feeMicroPerCuUsed != nil {
			s.feeMicroPerCuUsed.AddValue(attr.Submitter, attr.Timestamp, attr.MicrolamportsPerCuUse)
		}
	}

	stakes := s.peers.Stakes()
	for _, c := range []*Classification{s.failedExceeded, s.useless, s.feeLamports, s.feeMicroPerCuLimit, s.feeMicroPerCuUsed} {
		if c != nil {
			c.Periodic(now, stakes, s.groups)
		}
	}

	s.groups.periodic(now)
	s.peers.Periodic(now)

	s.refreshSnapshot(now)
}

func (s *State) refreshSnapshot(now Timestamp) {
	peers := s.peers.Snapshot()
	list := make([]peerSnapshot, 0, len(peers))
	for ip, p := range peers {
		list = append(list, peerSnapshot{Ip: ip, FirstSeen: p.FirstSeen, LastSeen: p.LastSeen, TxSubmitted: p.TxSubmitted})
	}

	snap := Snapshot{
		Groups:       s.groups.Snapshot(),
		Peers:        list,
		LeaderStatus: s.leaderStatus,
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}

// Snapshot returns the most recent point-in-time view, safe to call from
// the debug API goroutine while Run is live on another goroutine.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Run is the owner goroutine (§5): it is the only goroutine that ever
// mutates State's maps directly. It blocks up to 100ms waiting for the
// next ingest event and runs Periodic once per second regardless of
// ingest volume, exactly as the original accept-loop's
// recv_timeout(100ms) plus a 1-second gate on calling periodic.
func (s *State) Run(ctx context.Context, events <-chan Event) {
	recvTimer := time.NewTimer(100 * time.Millisecond)
	defer recvTimer.Stop()
	periodicTicker := time.NewTicker(time.Second)
	defer periodicTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-events:
			s.Dispatch(ev)
			if !recvTimer.Stop() {
				<-recvTimer.C
			}
			recvTimer.Reset(100 * time.Millisecond)

		case <-recvTimer.C:
			recvTimer.Reset(100 * time.Millisecond)

		case t := <-periodicTicker.C:
			s.Periodic(Timestamp(t.UnixMilli()))
		}
	}
}
