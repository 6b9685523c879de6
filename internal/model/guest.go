package model

import "time"

// Guest is the external attendee identity the engine consumes.  Check-in
// records are owned by another system; a nil CheckInAt means the guest
// has not arrived yet.
type Guest struct {
	ID        uint64     `json:"id"`
	EventID   uint64     `json:"event_id"`
	UserID    uint64     `json:"user_id"`
	CheckInAt *time.Time `json:"check_in_at,omitempty"`
}

// CheckedIn reports whether the guest has a check-in timestamp.
func (g Guest) CheckedIn() bool { return g.CheckInAt != nil }
