package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// GuestRepo reads the event guest list.  Check-in rows are written by the
// ticketing system; this service only reads them.
type GuestRepo struct {
	db *sql.DB
}

// NewGuestRepo returns a GuestRepo bound to db.
func NewGuestRepo(db *sql.DB) *GuestRepo { return &GuestRepo{db: db} }

// ResolveGuest looks up the guest record of a user for an event.
func (r *GuestRepo) ResolveGuest(ctx context.Context, eventID, userID uint64) (*model.Guest, error) {
	var (
		g         model.Guest
		checkInAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, event_id, user_id, check_in_at FROM guests WHERE event_id = ? AND user_id = ?`,
		eventID, userID).Scan(&g.ID, &g.EventID, &g.UserID, &checkInAt)
	if err != nil {
		return nil, notFound(err, "user %d is not a guest of event %d", userID, eventID)
	}
	g.CheckInAt = timePtr(checkInAt)
	return &g, nil
}
