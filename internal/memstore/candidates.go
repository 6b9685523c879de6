package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// sortedCandidates returns the candidates of a song by id.  Callers hold s.mu.
func (s *Store) sortedCandidates(songID uint64) []*model.Candidate {
	var out []*model.Candidate
	for _, c := range s.candidates {
		if c.SongID == songID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func (s *Store) approvedCounts(songID uint64) map[string]int {
	counts := make(map[string]int)
	for _, c := range s.candidates {
		if c.SongID == songID && c.Status == model.CandidateApproved {
			counts[c.Instrument]++
		}
	}
	return counts
}

func (s *Store) slotFor(songID uint64, instrument string) (model.InstrumentSlot, bool) {
	for _, sl := range s.slots[songID] {
		if sl.Instrument == instrument {
			return sl, true
		}
	}
	return model.InstrumentSlot{}, false
}

func (s *Store) CreateCandidate(_ context.Context, c *model.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, err := s.song(c.SongID)
	if err != nil {
		return err
	}
	if sg.Status != model.SongOpenForCandidates {
		return model.ErrSongNotOpen
	}
	if _, ok := s.slotFor(c.SongID, c.Instrument); !ok {
		return model.Errorf(model.KindNotFound, "song %d has no %q slot", c.SongID, c.Instrument)
	}
	for _, other := range s.candidates {
		if other.SongID == c.SongID && other.Instrument == c.Instrument && other.GuestID == c.GuestID {
			return model.ErrDuplicateApplication
		}
	}
	c.ID = s.id()
	c.Status = model.CandidatePending
	cp := *c
	s.candidates[c.ID] = &cp
	return nil
}

func (s *Store) GetCandidate(_ context.Context, id uint64) (*model.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[id]
	if !ok {
		return nil, model.Errorf(model.KindNotFound, "candidate %d not found", id)
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListCandidates(_ context.Context, songID uint64) ([]model.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Candidate{}
	for _, c := range s.sortedCandidates(songID) {
		out = append(out, *c)
	}
	return out, nil
}

func (s *Store) ListCandidatesForGuest(_ context.Context, jamID, guestID uint64) ([]model.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Candidate{}
	for _, c := range s.candidates {
		sg, ok := s.songs[c.SongID]
		if ok && sg.JamID == jamID && c.GuestID == guestID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (s *Store) ApproveCandidate(_ context.Context, id uint64, approvedBy string, at time.Time) (*model.Candidate, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[id]
	if !ok {
		return nil, 0, model.Errorf(model.KindNotFound, "candidate %d not found", id)
	}
	if c.Status != model.CandidatePending {
		return nil, 0, model.Errorf(model.KindNotFound, "no pending candidate %d", id)
	}
	slot, ok := s.slotFor(c.SongID, c.Instrument)
	if !ok {
		return nil, 0, model.Errorf(model.KindNotFound, "song %d has no %q slot", c.SongID, c.Instrument)
	}
	approved := s.approvedCounts(c.SongID)[c.Instrument]
	if approved >= slot.Slots {
		return nil, 0, model.ErrCapacityExceeded
	}
	by := approvedBy
	when := at
	c.Status = model.CandidateApproved
	c.ApprovedAt = &when
	c.ApprovedBy = &by
	cp := *c
	return &cp, slot.Slots - approved - 1, nil
}

func (s *Store) RejectCandidate(_ context.Context, id uint64) (*model.Candidate, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[id]
	if !ok {
		return nil, false, model.Errorf(model.KindNotFound, "candidate %d not found", id)
	}
	switch c.Status {
	case model.CandidateRejected:
		cp := *c
		return &cp, false, nil
	case model.CandidateApproved:
		return nil, false, model.Errorf(model.KindInvalidState, "candidate %d is already approved", id)
	}
	c.Status = model.CandidateRejected
	cp := *c
	return &cp, true, nil
}

func (s *Store) CountApproved(_ context.Context, songID uint64, instrument string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.approvedCounts(songID)[instrument], nil
}

// ---- ratings ----

func (s *Store) UpsertRating(_ context.Context, r model.Rating) (model.RatingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, err := s.song(r.SongID)
	if err != nil {
		return model.RatingSummary{}, err
	}
	if sg.Status != model.SongPlayed {
		return model.RatingSummary{}, model.ErrSongNotPlayed
	}
	m := s.ratings[r.SongID]
	if m == nil {
		m = make(map[string]model.Rating)
		s.ratings[r.SongID] = m
	}
	m[r.Rater.Key()] = r
	return s.summary(r.SongID), nil
}

func (s *Store) RatingSummary(_ context.Context, songID uint64) (model.RatingSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary(songID), nil
}

func (s *Store) summary(songID uint64) model.RatingSummary {
	total := 0
	for _, r := range s.ratings[songID] {
		total += r.Stars
	}
	return model.Summarize(songID, total, len(s.ratings[songID]))
}
