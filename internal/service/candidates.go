package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// ResolveGuest maps an authenticated user to the guest record of the event
// that owns the jam.
func (s *Service) ResolveGuest(ctx context.Context, jamID, userID uint64) (*model.Guest, error) {
	j, err := s.store.GetJam(ctx, jamID)
	if err != nil {
		return nil, err
	}
	return s.guests.ResolveGuest(ctx, j.EventID, userID)
}

// Apply records a pending application of a checked-in guest for one
// instrument of an open song of the jam.
func (s *Service) Apply(ctx context.Context, jamID, songID uint64, instrument string, guest *model.Guest) (*model.Candidate, error) {
	instrument = strings.TrimSpace(instrument)
	if instrument == "" {
		return nil, model.Errorf(model.KindInvalidInput, "instrument is required")
	}
	if guest == nil || !guest.CheckedIn() {
		return nil, model.ErrGuestNotCheckedIn
	}
	song, err := s.store.GetSong(ctx, songID)
	if err != nil {
		return nil, err
	}
	if song.JamID != jamID {
		return nil, model.Errorf(model.KindNotFound, "song %d not found in jam %d", songID, jamID)
	}
	j, err := s.store.GetJam(ctx, song.JamID)
	if err != nil {
		return nil, err
	}
	if j.EventID != guest.EventID {
		return nil, model.Errorf(model.KindNotFound, "song %d not found", songID)
	}
	c := &model.Candidate{
		SongID:     songID,
		Instrument: instrument,
		GuestID:    guest.ID,
		Status:     model.CandidatePending,
		AppliedAt:  s.now(),
	}
	if err := s.store.CreateCandidate(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info().Uint64("candidate_id", c.ID).Uint64("song_id", songID).Str("instrument", instrument).Uint64("guest_id", guest.ID).Msg("candidate applied")
	s.emitter.Emit(ctx, j.Channel(), model.EventCandidateApplied, CandidatePayload{Candidate: *c})
	return c, nil
}

// Approve consumes one seat for the candidate's instrument.  It fails with
// CapacityExceeded when every seat is already taken.
func (s *Service) Approve(ctx context.Context, candidateID uint64, approvedBy string) (*model.Candidate, int, error) {
	c, remaining, err := s.ledger.TryReserve(ctx, candidateID, approvedBy, s.now())
	if err != nil {
		if errors.Is(err, model.ErrCapacityExceeded) {
			s.log.Info().Uint64("candidate_id", candidateID).Msg("approve rejected: instrument full")
		}
		return nil, 0, err
	}
	song, err := s.store.GetSong(ctx, c.SongID)
	if err != nil {
		s.log.Warn().Err(err).Uint64("song_id", c.SongID).Msg("drop candidate_approved: song lookup failed")
		return c, remaining, nil
	}
	s.log.Info().Uint64("candidate_id", c.ID).Uint64("song_id", c.SongID).Str("instrument", c.Instrument).Int("remaining", remaining).Msg("candidate approved")
	s.emitForJam(ctx, song.JamID, model.EventCandidateApproved, CandidatePayload{Candidate: *c, Remaining: &remaining})
	return c, remaining, nil
}

// Reject declines a pending candidate.  Rejecting an already rejected
// candidate is a no-op.
func (s *Service) Reject(ctx context.Context, candidateID uint64) (*model.Candidate, error) {
	c, changed, err := s.store.RejectCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return c, nil
	}
	song, err := s.store.GetSong(ctx, c.SongID)
	if err != nil {
		s.log.Warn().Err(err).Uint64("song_id", c.SongID).Msg("drop candidate_rejected: song lookup failed")
		return c, nil
	}
	s.emitForJam(ctx, song.JamID, model.EventCandidateRejected, CandidatePayload{Candidate: *c})
	return c, nil
}
