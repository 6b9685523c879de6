package model

import "time"

// Jam represents a live-performance session that belongs to one event.
// Staff curate a queue of songs inside a jam and attendees apply to
// play on those songs.  Jams are never deleted automatically.
//
// Fields:
//  ID         – primary key identifier.
//  EventID    – opaque id of the owning event.
//  Name       – display name of the session.
//  Slug       – globally unique url-friendly name.
//  Status     – active or inactive.
//  Notes      – free-form staff notes.
//  OrderIndex – position of the jam among the event's jams.
//  CreatedAt  – timestamp when the jam was created.
//  UpdatedAt  – timestamp of last update.
type Jam struct {
	ID         uint64    `json:"id"`          // jams.id
	EventID    uint64    `json:"event_id"`    // jams.event_id
	Name       string    `json:"name"`        // jams.name
	Slug       string    `json:"slug"`        // jams.slug
	Status     JamStatus `json:"status"`      // jams.status
	Notes      string    `json:"notes"`       // jams.notes
	OrderIndex int       `json:"order_index"` // jams.order_index
	CreatedAt  time.Time `json:"created_at"`  // jams.created_at
	UpdatedAt  time.Time `json:"updated_at"`  // jams.updated_at
}

// JamStatus is the activity flag of a jam.
type JamStatus string

const (
	JamActive   JamStatus = "active"
	JamInactive JamStatus = "inactive"
)

// Channel returns the broadcast channel key of the jam.
func (j Jam) Channel() ChannelKey {
	return ChannelKey{EventID: j.EventID, JamID: j.ID}
}
