package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// RatingRepo persists one star score per (song, rater).
type RatingRepo struct {
	db *sql.DB
}

// NewRatingRepo returns a RatingRepo bound to db.
func NewRatingRepo(db *sql.DB) *RatingRepo { return &RatingRepo{db: db} }

func nullID(id uint64) any {
	if id == 0 {
		return nil
	}
	return id
}

func summary(ctx context.Context, q querier, songID uint64) (model.RatingSummary, error) {
	var total, count int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(stars), 0), COUNT(*) FROM song_ratings WHERE song_id = ?`, songID).Scan(&total, &count)
	if err != nil {
		return model.RatingSummary{}, err
	}
	return model.Summarize(songID, total, count), nil
}

// UpsertRating stores or overwrites the rater's score on a played song.
func (r *RatingRepo) UpsertRating(ctx context.Context, rt model.Rating) (model.RatingSummary, error) {
	var sum model.RatingSummary
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		s, err := getSong(ctx, tx, rt.SongID, ` FOR SHARE`)
		if err != nil {
			return err
		}
		if s.Status != model.SongPlayed {
			return model.ErrSongNotPlayed
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO song_ratings (song_id, rater_key, guest_id, user_id, stars, rated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON DUPLICATE KEY UPDATE stars = VALUES(stars), rated_at = VALUES(rated_at)`,
			rt.SongID, rt.Rater.Key(), nullID(rt.Rater.GuestID), nullID(rt.Rater.UserID), rt.Stars, rt.RatedAt); err != nil {
			return err
		}
		sum, err = summary(ctx, tx, rt.SongID)
		return err
	})
	if err != nil {
		return model.RatingSummary{}, err
	}
	return sum, nil
}

// RatingSummary returns the aggregate of a song.
func (r *RatingRepo) RatingSummary(ctx context.Context, songID uint64) (model.RatingSummary, error) {
	return summary(ctx, r.db, songID)
}
