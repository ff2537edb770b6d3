package classifier

import (
	"fmt"
	"log"
)

// Emitter receives group-membership and leader-state decisions as they are
// made. StdoutEmitter satisfies §6's declared output contract;
// BroadcastEmitter fans a decision out to any number of additional
// emitters, the same role alert_system.go's AlertManager plays for webhook
// and websocket delivery in the teacher repo.
type Emitter interface {
	OnAdd(ip IpAddr, group string, expiry Timestamp)
	OnUpdate(ip IpAddr, group string, expiry Timestamp)
	OnRemove(ip IpAddr, group string)
	OnLeaderChange(isLeader bool)
}

// StdoutEmitter prints the exact human-readable lines specified in §6.
// Fire-and-forget: no buffering, no acknowledgment.
type StdoutEmitter struct{}

func (StdoutEmitter) OnAdd(ip IpAddr, group string, expiry Timestamp) {
	fmt.Printf("Add %s to group %s with expiration %d\n", ip, group, expiry)
}

func (StdoutEmitter) OnUpdate(ip IpAddr, group string, expiry Timestamp) {
	fmt.Printf("Update %s in group %s with expiration %d\n", ip, group, expiry)
}

func (StdoutEmitter) OnRemove(ip IpAddr, group string) {
	fmt.Printf("Remove %s from group %s\n", ip, group)
}

func (StdoutEmitter) OnLeaderChange(isLeader bool) {
	if isLeader {
		fmt.Println("LEADER CLASSIFICATION")
	} else {
		fmt.Println("NOT LEADER CLASSIFICATION")
	}
}

// BroadcastEmitter fans every decision out to a fixed list of emitters.
// Sinks are called in order on the caller's goroutine; a panic in one sink
// is recovered and logged, so the remaining sinks still receive the
// decision. A sink that blocks delays the sinks after it.
type BroadcastEmitter struct {
	sinks []Emitter
}

// NewBroadcastEmitter builds an emitter that notifies every sink in order.
// sinks must not be empty; pass StdoutEmitter{} as the first entry to keep
// the §6 stdout contract intact.
func NewBroadcastEmitter(sinks ...Emitter) *BroadcastEmitter {
	return &BroadcastEmitter{sinks: sinks}
}

func (b *BroadcastEmitter) OnAdd(ip IpAddr, group string, expiry Timestamp) {
	for _, s := range b.sinks {
		safeCall(func() { s.OnAdd(ip, group, expiry) })
	}
}

func (b *BroadcastEmitter) OnUpdate(ip IpAddr, group string, expiry Timestamp) {
	for _, s := range b.sinks {
		safeCall(func() { s.OnUpdate(ip, group, expiry) })
	}
}

func (b *BroadcastEmitter) OnRemove(ip IpAddr, group string) {
	for _, s := range b.sinks {
		safeCall(func() { s.OnRemove(ip, group) })
	}
}

func (b *BroadcastEmitter) OnLeaderChange(isLeader bool) {
	for _, s := range b.sinks {
		safeCall(func() { s.OnLeaderChange(isLeader) })
	}
}

// safeCall isolates one sink's panic (e.g. a misbehaving debug-API hook)
// from the others and from the owner goroutine.
func safeCall(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[classifier] emitter sink panicked: %v", r)
		}
	}()
	fn()
}
