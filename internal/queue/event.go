// Package queue relays jam change events between service instances over
// RabbitMQ so that viewers connected to any instance see every change.
package queue

import (
	"encoding/json"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// JamEvent is the broker envelope of one change event.  Origin identifies
// the instance that produced it so the producer can skip its own copy.
type JamEvent struct {
	Origin    string          `json:"origin"`
	EventID   uint64          `json:"event_id"`
	JamID     uint64          `json:"jam_id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	EmittedAt string          `json:"emitted_at"`
}

// Key returns the broadcast channel the event belongs to.
func (e JamEvent) Key() model.ChannelKey {
	return model.ChannelKey{EventID: e.EventID, JamID: e.JamID}
}
