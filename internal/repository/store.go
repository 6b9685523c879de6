package repository

import (
	"database/sql"

	"github.com/iliyamo/jam-session-queue/internal/service"
)

var (
	_ service.Store          = (*Store)(nil)
	_ service.GuestDirectory = (*GuestRepo)(nil)
)

// Store bundles the table repositories into a service.Store.
type Store struct {
	*JamRepo
	*SongRepo
	*CandidateRepo
	*RatingRepo
}

// NewStore returns a MySQL-backed store.
func NewStore(db *sql.DB) *Store {
	return &Store{
		JamRepo:       NewJamRepo(db),
		SongRepo:      NewSongRepo(db),
		CandidateRepo: NewCandidateRepo(db),
		RatingRepo:    NewRatingRepo(db),
	}
}
