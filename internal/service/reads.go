package service

import (
	"context"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// SongDetail is the staff view of one song.
type SongDetail struct {
	Song           model.Song               `json:"song"`
	Instruments    []model.SlotAvailability `json:"instruments"`
	Candidates     []model.Candidate        `json:"candidates"`
	LineupComplete bool                     `json:"lineup_complete"`
	Rating         model.RatingSummary      `json:"rating"`
}

// SongDetail loads a song with its manifest, candidates and rating.
func (s *Service) SongDetail(ctx context.Context, songID uint64) (*SongDetail, error) {
	song, err := s.store.GetSong(ctx, songID)
	if err != nil {
		return nil, err
	}
	slots, err := s.store.ListSlots(ctx, songID)
	if err != nil {
		return nil, err
	}
	cands, err := s.store.ListCandidates(ctx, songID)
	if err != nil {
		return nil, err
	}
	sum, err := s.store.RatingSummary(ctx, songID)
	if err != nil {
		return nil, err
	}
	approved := model.ApprovedCounts(cands)
	if cands == nil {
		cands = []model.Candidate{}
	}
	return &SongDetail{
		Song:           *song,
		Instruments:    model.Availability(slots, approved),
		Candidates:     cands,
		LineupComplete: model.LineupComplete(slots, approved),
		Rating:         sum,
	}, nil
}

// QueueItem is the guest view of an open song.
type QueueItem struct {
	Song           model.Song               `json:"song"`
	Instruments    []model.SlotAvailability `json:"instruments"`
	LineupComplete bool                     `json:"lineup_complete"`
	Mine           []model.Candidate        `json:"my_applications"`
}

// OpenQueue lists the jam's open songs in order with seat availability and
// the guest's own applications.
func (s *Service) OpenQueue(ctx context.Context, jamID uint64, guest *model.Guest) ([]QueueItem, error) {
	songs, err := s.store.ListSongs(ctx, jamID)
	if err != nil {
		return nil, err
	}
	var mine []model.Candidate
	if guest != nil {
		mine, err = s.store.ListCandidatesForGuest(ctx, jamID, guest.ID)
		if err != nil {
			return nil, err
		}
	}
	out := []QueueItem{}
	for _, sg := range songs {
		if sg.Status != model.SongOpenForCandidates {
			continue
		}
		slots, err := s.store.ListSlots(ctx, sg.ID)
		if err != nil {
			return nil, err
		}
		cands, err := s.store.ListCandidates(ctx, sg.ID)
		if err != nil {
			return nil, err
		}
		approved := model.ApprovedCounts(cands)
		item := QueueItem{
			Song:           sg,
			Instruments:    model.Availability(slots, approved),
			LineupComplete: model.LineupComplete(slots, approved),
			Mine:           []model.Candidate{},
		}
		for _, c := range mine {
			if c.SongID == sg.ID {
				item.Mine = append(item.Mine, c)
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// Application is a guest's candidate row joined with its song.
type Application struct {
	model.Candidate
	SongTitle  string           `json:"song_title"`
	SongStatus model.SongStatus `json:"song_status"`
}

// MyApplications lists every application of the guest in the jam.
func (s *Service) MyApplications(ctx context.Context, jamID uint64, guest *model.Guest) ([]Application, error) {
	mine, err := s.store.ListCandidatesForGuest(ctx, jamID, guest.ID)
	if err != nil {
		return nil, err
	}
	songs, err := s.store.ListSongs(ctx, jamID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]model.Song, len(songs))
	for _, sg := range songs {
		byID[sg.ID] = sg
	}
	out := make([]Application, 0, len(mine))
	for _, c := range mine {
		sg := byID[c.SongID]
		out = append(out, Application{Candidate: c, SongTitle: sg.Title, SongStatus: sg.Status})
	}
	return out, nil
}
