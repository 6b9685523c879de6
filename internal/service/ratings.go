package service

import (
	"context"
	"errors"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// RaterFor picks the rating identity of a user in the jam's event: the
// guest record when the user is on the guest list, the user otherwise.
// A listed guest must have checked in.
func (s *Service) RaterFor(ctx context.Context, jamID, userID uint64) (model.Rater, error) {
	g, err := s.ResolveGuest(ctx, jamID, userID)
	switch {
	case err == nil:
		if !g.CheckedIn() {
			return model.Rater{}, model.ErrGuestNotCheckedIn
		}
		return model.Rater{GuestID: g.ID}, nil
	case errors.Is(err, model.ErrNotFound):
		if _, jerr := s.store.GetJam(ctx, jamID); jerr != nil {
			return model.Rater{}, jerr
		}
		return model.Rater{UserID: userID}, nil
	default:
		return model.Rater{}, err
	}
}

// Rate stores or replaces the rater's score for a played song of the jam
// and returns the updated summary.
func (s *Service) Rate(ctx context.Context, jamID, songID uint64, rater model.Rater, stars int) (model.RatingSummary, error) {
	song, err := s.store.GetSong(ctx, songID)
	if err != nil {
		return model.RatingSummary{}, err
	}
	if song.JamID != jamID {
		return model.RatingSummary{}, model.Errorf(model.KindNotFound, "song %d not found in jam %d", songID, jamID)
	}
	if song.Status != model.SongPlayed {
		return model.RatingSummary{}, model.ErrSongNotPlayed
	}
	if !model.ValidStars(stars) {
		return model.RatingSummary{}, model.ErrInvalidStars
	}
	if !rater.Valid() {
		return model.RatingSummary{}, model.Errorf(model.KindInvalidInput, "rater must be a guest or a user")
	}
	// The store re-checks the played status under its own lock.
	sum, err := s.store.UpsertRating(ctx, model.Rating{SongID: songID, Rater: rater, Stars: stars, RatedAt: s.now()})
	if err != nil {
		return model.RatingSummary{}, err
	}
	s.emitForJam(ctx, jamID, model.EventRatingSummaryUpdated, sum)
	return sum, nil
}

// RatingSummary returns the aggregate of a song.
func (s *Service) RatingSummary(ctx context.Context, songID uint64) (model.RatingSummary, error) {
	if _, err := s.store.GetSong(ctx, songID); err != nil {
		return model.RatingSummary{}, err
	}
	return s.store.RatingSummary(ctx, songID)
}
