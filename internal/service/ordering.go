package service

import (
	"context"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// Reorder moves the listed songs to the front of their (jam, status)
// bucket in the given order.  Unlisted songs keep their relative order
// after them.
func (s *Service) Reorder(ctx context.Context, jamID uint64, status model.SongStatus, songIDs []uint64) ([]uint64, error) {
	if !status.Valid() {
		return nil, model.Errorf(model.KindInvalidInput, "unknown status %q", status)
	}
	if _, err := s.store.GetJam(ctx, jamID); err != nil {
		return nil, err
	}
	order, err := s.store.ReorderBucket(ctx, jamID, status, songIDs)
	if err != nil {
		return nil, err
	}
	s.emitForJam(ctx, jamID, model.EventSongOrderChanged, OrderChangedPayload{Status: status, SongIDs: order})
	return order, nil
}

// Buckets groups a jam's songs by status in display order.
type Buckets map[model.SongStatus][]model.Song

// ListSongs returns the songs of a jam grouped into ordered buckets.
func (s *Service) ListSongs(ctx context.Context, jamID uint64) (Buckets, error) {
	if _, err := s.store.GetJam(ctx, jamID); err != nil {
		return nil, err
	}
	songs, err := s.store.ListSongs(ctx, jamID)
	if err != nil {
		return nil, err
	}
	out := make(Buckets, len(model.SongStatuses))
	for _, st := range model.SongStatuses {
		out[st] = []model.Song{}
	}
	for _, sg := range songs {
		out[sg.Status] = append(out[sg.Status], sg)
	}
	return out, nil
}

// PositionEntry is one approved seat of a guest in the upcoming queue.
type PositionEntry struct {
	SongID     uint64 `json:"song_id"`
	Title      string `json:"title"`
	Instrument string `json:"instrument"`
	// Position is 1-based among the ready open songs.
	Position int `json:"position"`
}

// QueuePosition tells a guest where their approved performances sit among
// the ready open songs.  Upcoming is the number of ready open songs.
type QueuePosition struct {
	Upcoming int             `json:"upcoming"`
	Entries  []PositionEntry `json:"entries"`
}

// QueuePosition computes the guest's position in the jam.
func (s *Service) QueuePosition(ctx context.Context, jamID uint64, guest *model.Guest) (*QueuePosition, error) {
	songs, err := s.store.ListSongs(ctx, jamID)
	if err != nil {
		return nil, err
	}
	mine, err := s.store.ListCandidatesForGuest(ctx, jamID, guest.ID)
	if err != nil {
		return nil, err
	}
	approved := make(map[uint64]string)
	for _, c := range mine {
		if c.Status == model.CandidateApproved {
			approved[c.SongID] = c.Instrument
		}
	}

	var upcoming []model.Song
	for _, sg := range songs {
		if sg.Status == model.SongOpenForCandidates && sg.Ready {
			upcoming = append(upcoming, sg)
		}
	}
	out := &QueuePosition{Upcoming: len(upcoming), Entries: []PositionEntry{}}
	for i, sg := range upcoming {
		inst, ok := approved[sg.ID]
		if !ok {
			continue
		}
		out.Entries = append(out.Entries, PositionEntry{
			SongID:     sg.ID,
			Title:      sg.Title,
			Instrument: inst,
			Position:   i + 1,
		})
	}
	return out, nil
}
