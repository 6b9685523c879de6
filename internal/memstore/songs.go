package memstore

import (
	"context"
	"sort"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// bucket returns the songs of (jam, status) ordered by OrderIndex.
// Callers hold s.mu.
func (s *Store) bucket(jamID uint64, status model.SongStatus) []*model.Song {
	var out []*model.Song
	for _, sg := range s.songs {
		if sg.JamID == jamID && sg.Status == status {
			out = append(out, sg)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].OrderIndex < out[b].OrderIndex })
	return out
}

// compact renumbers a bucket densely from zero.
func (s *Store) compact(jamID uint64, status model.SongStatus) {
	for i, sg := range s.bucket(jamID, status) {
		sg.OrderIndex = i
	}
}

// appendIndex is the next free index at the end of a bucket.
func (s *Store) appendIndex(jamID uint64, status model.SongStatus) int {
	b := s.bucket(jamID, status)
	if len(b) == 0 {
		return model.NextIndex(0, false)
	}
	return model.NextIndex(b[len(b)-1].OrderIndex, true)
}

func (s *Store) song(id uint64) (*model.Song, error) {
	sg, ok := s.songs[id]
	if !ok {
		return nil, model.Errorf(model.KindNotFound, "song %d not found", id)
	}
	return sg, nil
}

func (s *Store) CreateSong(_ context.Context, sg *model.Song, slots []model.InstrumentSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jams[sg.JamID]; !ok {
		return model.Errorf(model.KindNotFound, "jam %d not found", sg.JamID)
	}
	now := s.now()
	sg.ID = s.id()
	sg.Status = model.SongPlanned
	sg.OrderIndex = s.appendIndex(sg.JamID, model.SongPlanned)
	sg.CreatedAt, sg.UpdatedAt = now, now
	cp := *sg
	s.songs[sg.ID] = &cp
	s.slots[sg.ID] = withSong(sg.ID, slots)
	return nil
}

func (s *Store) GetSong(_ context.Context, id uint64) (*model.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sg, err := s.song(id)
	if err != nil {
		return nil, err
	}
	cp := *sg
	return &cp, nil
}

func (s *Store) ListSongs(_ context.Context, jamID uint64) ([]model.Song, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Song{}
	for _, st := range model.SongStatuses {
		for _, sg := range s.bucket(jamID, st) {
			out = append(out, *sg)
		}
	}
	return out, nil
}

func (s *Store) ListSlots(_ context.Context, songID uint64) ([]model.InstrumentSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.song(songID); err != nil {
		return nil, err
	}
	return append([]model.InstrumentSlot(nil), s.slots[songID]...), nil
}

func (s *Store) ReplaceSlots(_ context.Context, songID uint64, slots []model.InstrumentSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.song(songID); err != nil {
		return err
	}
	if err := model.CheckManifestFits(slots, s.approvedCounts(songID)); err != nil {
		return err
	}
	s.slots[songID] = withSong(songID, slots)
	return nil
}

func (s *Store) DeleteSong(_ context.Context, songID uint64) (*model.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, err := s.song(songID)
	if err != nil {
		return nil, err
	}
	delete(s.songs, songID)
	delete(s.slots, songID)
	delete(s.ratings, songID)
	for id, c := range s.candidates {
		if c.SongID == songID {
			delete(s.candidates, id)
		}
	}
	s.compact(sg.JamID, sg.Status)
	cp := *sg
	return &cp, nil
}

func (s *Store) OpenSongs(_ context.Context, jamID uint64, ids []uint64, limit int, batch *string) ([]model.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jams[jamID]; !ok {
		return nil, model.Errorf(model.KindNotFound, "jam %d not found", jamID)
	}
	targets := make([]*model.Song, 0, len(ids))
	for _, id := range ids {
		sg, ok := s.songs[id]
		if !ok || sg.JamID != jamID {
			return nil, model.Errorf(model.KindNotFound, "song %d not found in jam %d", id, jamID)
		}
		if sg.Status != model.SongPlanned {
			return nil, model.Errorf(model.KindInvalidState, "song %d is %s, not planned", id, sg.Status)
		}
		targets = append(targets, sg)
	}
	open := len(s.bucket(jamID, model.SongOpenForCandidates))
	if open+len(targets) > limit {
		return nil, model.Errorf(model.KindTooManyOpenSongs, "jam %d has %d open songs, limit is %d", jamID, open, limit)
	}
	now := s.now()
	next := s.appendIndex(jamID, model.SongOpenForCandidates)
	out := make([]model.Song, 0, len(targets))
	for _, sg := range targets {
		sg.SetStatus(model.SongOpenForCandidates)
		sg.OrderIndex = next
		next++
		if batch != nil {
			b := *batch
			sg.ReleaseBatch = &b
		}
		sg.UpdatedAt = now
		out = append(out, *sg)
	}
	s.compact(jamID, model.SongPlanned)
	return out, nil
}

func (s *Store) UpdateSong(_ context.Context, songID uint64, mutate func(*model.Song) error) (*model.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, err := s.song(songID)
	if err != nil {
		return nil, err
	}
	work := *sg
	if err := mutate(&work); err != nil {
		return nil, err
	}
	from := sg.Status
	if work.Status != from {
		work.OrderIndex = s.appendIndex(sg.JamID, work.Status)
	}
	work.UpdatedAt = s.now()
	*sg = work
	if work.Status != from {
		s.compact(sg.JamID, from)
	}
	cp := *sg
	return &cp, nil
}

func (s *Store) CloseSong(_ context.Context, songID uint64) (*model.Song, []model.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sg, err := s.song(songID)
	if err != nil {
		return nil, nil, err
	}
	if sg.Status != model.SongOpenForCandidates {
		return nil, nil, model.Errorf(model.KindInvalidState, "song %d is %s, not open", songID, sg.Status)
	}
	sg.OrderIndex = s.appendIndex(sg.JamID, model.SongPlanned)
	sg.SetStatus(model.SongPlanned)
	sg.UpdatedAt = s.now()
	s.compact(sg.JamID, model.SongOpenForCandidates)

	var rejected []model.Candidate
	for _, c := range s.sortedCandidates(songID) {
		if c.Status == model.CandidatePending {
			c.Status = model.CandidateRejected
			rejected = append(rejected, *c)
		}
	}
	cp := *sg
	return &cp, rejected, nil
}

func (s *Store) ReorderBucket(_ context.Context, jamID uint64, status model.SongStatus, ids []uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(jamID, status)
	current := make([]uint64, len(b))
	for i, sg := range b {
		current[i] = sg.ID
	}
	order, err := model.PlanReorder(current, ids)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i, id := range order {
		sg := s.songs[id]
		if sg.OrderIndex != i {
			sg.OrderIndex = i
			sg.UpdatedAt = now
		}
	}
	return order, nil
}

func withSong(songID uint64, slots []model.InstrumentSlot) []model.InstrumentSlot {
	out := make([]model.InstrumentSlot, len(slots))
	for i, sl := range slots {
		sl.SongID = songID
		out[i] = sl
	}
	return out
}
