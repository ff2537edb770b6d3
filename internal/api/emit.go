package api

import (
	"encoding/json"
	"log"

	"github.com/bji/txingest-classifier/internal/classifier"
)

// HubEmitter adapts a GroupStreamHub into a classifier.Emitter, so every
// group-membership and leader-status change is pushed to /stream
// subscribers as JSON in addition to whatever other sinks are wired in
// (§4.J). It never blocks the owner goroutine: Hub.Broadcast only enqueues
// onto a buffered channel drained by Hub.Run, dropping the message when
// that buffer is full.
type HubEmitter struct {
	Hub *GroupStreamHub
}

type groupChangeMessage struct {
	Type   string `json:"type"`
	Ip     string `json:"ip"`
	Group  string `json:"group"`
	Expiry uint64 `json:"expiry,omitempty"`
}

func (e *HubEmitter) OnAdd(ip classifier.IpAddr, group string, expiry classifier.Timestamp) {
	e.send(groupChangeMessage{Type: "add", Ip: ip.String(), Group: group, Expiry: expiry})
}

func (e *HubEmitter) OnUpdate(ip classifier.IpAddr, group string, expiry classifier.Timestamp) {
	e.send(groupChangeMessage{Type: "update", Ip: ip.String(), Group: group, Expiry: expiry})
}

func (e *HubEmitter) OnRemove(ip classifier.IpAddr, group string) {
	e.send(groupChangeMessage{Type: "remove", Ip: ip.String(), Group: group})
}

func (e *HubEmitter) OnLeaderChange(isLeader bool) {
	payload := map[string]any{"type": "leader", "isLeader": isLeader}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[api] marshal leader change: %v", err)
		return
	}
	e.Hub.Broadcast(data)
}

func (e *HubEmitter) send(msg groupChangeMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[api] marshal group change: %v", err)
		return
	}
	e.Hub.Broadcast(data)
}
