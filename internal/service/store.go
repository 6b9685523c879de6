package service

import (
	"context"
	"time"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// Store is the persistence collaborator of the engine.  Every mutating
// method is a single atomic unit: either all of its rows change or none do.
// Stores return *model.Error values for domain failures so the engine can
// pass them through unchanged.
type Store interface {
	CreateJam(ctx context.Context, j *model.Jam) error
	GetJam(ctx context.Context, id uint64) (*model.Jam, error)
	ListJams(ctx context.Context, eventID uint64) ([]model.Jam, error)

	// CreateSong inserts a planned song at the end of the planned bucket
	// together with its instrument manifest.
	CreateSong(ctx context.Context, s *model.Song, slots []model.InstrumentSlot) error
	GetSong(ctx context.Context, id uint64) (*model.Song, error)
	// ListSongs returns every song of a jam ordered by status then order_index.
	ListSongs(ctx context.Context, jamID uint64) ([]model.Song, error)
	ListSlots(ctx context.Context, songID uint64) ([]model.InstrumentSlot, error)
	// ReplaceSlots swaps the whole manifest after checking it against the
	// approved candidates (model.CheckManifestFits).
	ReplaceSlots(ctx context.Context, songID uint64, slots []model.InstrumentSlot) error
	// DeleteSong cascades to slots, candidates and ratings and compacts the
	// bucket the song lived in.  The deleted song is returned.
	DeleteSong(ctx context.Context, songID uint64) (*model.Song, error)

	// OpenSongs moves planned songs of one jam to open_for_candidates as a
	// set.  It fails with TooManyOpenSongs when the jam's open count plus
	// len(ids) exceeds limit.  batch, when non-nil, is stamped on every song.
	OpenSongs(ctx context.Context, jamID uint64, ids []uint64, limit int, batch *string) ([]model.Song, error)
	// UpdateSong loads the song under lock and applies mutate.  When the
	// status changed the song is appended to its new bucket and the old
	// bucket is compacted.
	UpdateSong(ctx context.Context, songID uint64, mutate func(*model.Song) error) (*model.Song, error)
	// CloseSong moves an open song back to planned, clears ready and rejects
	// every candidate that is not approved.  The rejected rows are returned.
	CloseSong(ctx context.Context, songID uint64) (*model.Song, []model.Candidate, error)
	// ReorderBucket rewrites order_index of a (jam, status) bucket following
	// model.PlanReorder and returns the resulting order.
	ReorderBucket(ctx context.Context, jamID uint64, status model.SongStatus, ids []uint64) ([]uint64, error)

	// CreateCandidate inserts a pending application.  The song must be open
	// and list the instrument.
	CreateCandidate(ctx context.Context, c *model.Candidate) error
	GetCandidate(ctx context.Context, id uint64) (*model.Candidate, error)
	ListCandidates(ctx context.Context, songID uint64) ([]model.Candidate, error)
	ListCandidatesForGuest(ctx context.Context, jamID, guestID uint64) ([]model.Candidate, error)
	// ApproveCandidate is the only capacity-consuming write.  It must
	// serialize per (song, instrument) so the approved count never exceeds
	// the slot count.  It returns the remaining seats after approval.
	ApproveCandidate(ctx context.Context, id uint64, approvedBy string, at time.Time) (*model.Candidate, int, error)
	// RejectCandidate rejects a pending candidate.  changed is false when
	// the candidate was already rejected.
	RejectCandidate(ctx context.Context, id uint64) (c *model.Candidate, changed bool, err error)
	CountApproved(ctx context.Context, songID uint64, instrument string) (int, error)

	// UpsertRating stores one score per (song, rater) on a played song and
	// returns the recomputed summary.
	UpsertRating(ctx context.Context, r model.Rating) (model.RatingSummary, error)
	RatingSummary(ctx context.Context, songID uint64) (model.RatingSummary, error)
}

// GuestDirectory resolves attendees of an event.  It returns
// model.ErrNotFound when the user is not on the event's guest list.
type GuestDirectory interface {
	ResolveGuest(ctx context.Context, eventID, userID uint64) (*model.Guest, error)
}

// Emitter receives change events after a state change has been committed.
// Implementations never report delivery failures back to the engine.
type Emitter interface {
	Emit(ctx context.Context, key model.ChannelKey, eventType string, payload any)
}
