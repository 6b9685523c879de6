package service

import (
	"context"
	"strings"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// CreateSongInput carries the staff-provided fields of a new song.
type CreateSongInput struct {
	Title       string                 `json:"title"`
	Artist      *string                `json:"artist"`
	Key         *string                `json:"key"`
	Tempo       *int                   `json:"tempo"`
	Instruments []model.InstrumentSlot `json:"instruments"`
}

// CreateSong appends a planned song to the jam's planned bucket.
func (s *Service) CreateSong(ctx context.Context, jamID uint64, in CreateSongInput) (*model.Song, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, model.Errorf(model.KindInvalidInput, "title is required")
	}
	if in.Tempo != nil && *in.Tempo <= 0 {
		return nil, model.Errorf(model.KindInvalidInput, "tempo must be positive")
	}
	if err := model.ValidateManifest(in.Instruments); err != nil {
		return nil, err
	}
	if _, err := s.store.GetJam(ctx, jamID); err != nil {
		return nil, err
	}
	song := &model.Song{
		JamID:  jamID,
		Title:  title,
		Artist: in.Artist,
		Key:    in.Key,
		Tempo:  in.Tempo,
		Status: model.SongPlanned,
	}
	slots := make([]model.InstrumentSlot, len(in.Instruments))
	copy(slots, in.Instruments)
	if err := s.store.CreateSong(ctx, song, slots); err != nil {
		return nil, err
	}
	for i := range slots {
		slots[i].SongID = song.ID
	}
	s.log.Info().Uint64("song_id", song.ID).Uint64("jam_id", jamID).Int("order_index", song.OrderIndex).Msg("song created")
	s.emitForJam(ctx, jamID, model.EventSongCreated, SongCreatedPayload{
		Song:        *song,
		Instruments: model.Availability(slots, nil),
	})
	return song, nil
}

// ReplaceInstruments swaps the manifest of a song.  A manifest that would
// leave approved performers without a seat is rejected.
func (s *Service) ReplaceInstruments(ctx context.Context, songID uint64, slots []model.InstrumentSlot) ([]model.SlotAvailability, error) {
	if err := model.ValidateManifest(slots); err != nil {
		return nil, err
	}
	song, err := s.store.GetSong(ctx, songID)
	if err != nil {
		return nil, err
	}
	if song.Status.Terminal() {
		return nil, model.Errorf(model.KindInvalidState, "song %d is %s", songID, song.Status)
	}
	if err := s.store.ReplaceSlots(ctx, songID, slots); err != nil {
		return nil, err
	}
	avail, err := s.ledger.Availability(ctx, songID)
	if err != nil {
		return nil, err
	}
	s.emitForJam(ctx, song.JamID, model.EventInstrumentSlotsUpdated, SlotsUpdatedPayload{SongID: songID, Instruments: avail})
	return avail, nil
}

// OpenSongs opens a batch of planned songs of one jam as a unit.  The
// whole batch fails when it would push the jam over the open-song ceiling.
func (s *Service) OpenSongs(ctx context.Context, jamID uint64, songIDs []uint64, batch *string) ([]model.Song, error) {
	ids := dedupe(songIDs)
	if len(ids) == 0 {
		return nil, model.Errorf(model.KindInvalidInput, "song_ids is required")
	}
	if batch != nil && strings.TrimSpace(*batch) == "" {
		batch = nil
	}
	limit := s.limit()
	songs, err := s.store.OpenSongs(ctx, jamID, ids, limit, batch)
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint64("jam_id", jamID).Int("count", len(songs)).Int("limit", limit).Msg("songs opened")
	s.emitForJam(ctx, jamID, model.EventSongsOpened, SongsOpenedPayload{SongIDs: ids, ReleaseBatch: batch})
	return songs, nil
}

// OpenSong opens a single song.  It is subject to the same ceiling as a
// batch of one.
func (s *Service) OpenSong(ctx context.Context, songID uint64) (*model.Song, error) {
	song, err := s.store.GetSong(ctx, songID)
	if err != nil {
		return nil, err
	}
	songs, err := s.OpenSongs(ctx, song.JamID, []uint64{songID}, nil)
	if err != nil {
		return nil, err
	}
	return &songs[0], nil
}

// CloseSong returns an open song to planned.  Pending candidates are
// rejected; approved candidates are kept.
func (s *Service) CloseSong(ctx context.Context, songID uint64) (*model.Song, error) {
	song, rejected, err := s.store.CloseSong(ctx, songID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint64("song_id", songID).Int("rejected", len(rejected)).Msg("song closed")
	s.emitForJam(ctx, song.JamID, model.EventSongsClosed, SongsClosedPayload{SongIDs: []uint64{songID}})
	for _, c := range rejected {
		s.emitForJam(ctx, song.JamID, model.EventCandidateRejected, CandidatePayload{Candidate: c})
	}
	return song, nil
}

// ChangeStatus applies a state machine transition.  Leaving
// open_for_candidates towards the stage requires the ready flag.
func (s *Service) ChangeStatus(ctx context.Context, songID uint64, to model.SongStatus) (*model.Song, error) {
	if !to.Valid() {
		return nil, model.Errorf(model.KindInvalidInput, "unknown status %q", to)
	}
	switch to {
	case model.SongOpenForCandidates:
		return s.OpenSong(ctx, songID)
	case model.SongPlanned:
		song, err := s.store.GetSong(ctx, songID)
		if err != nil {
			return nil, err
		}
		if song.Status != model.SongOpenForCandidates {
			return nil, model.Errorf(model.KindInvalidState, "cannot move song from %s to %s", song.Status, to)
		}
		return s.CloseSong(ctx, songID)
	}
	var from model.SongStatus
	song, err := s.store.UpdateSong(ctx, songID, func(sg *model.Song) error {
		from = sg.Status
		if !model.CanTransition(from, to) {
			return model.Errorf(model.KindInvalidState, "cannot move song from %s to %s", from, to)
		}
		if from == model.SongOpenForCandidates && (to == model.SongOnStage || to == model.SongPlayed) && !sg.Ready {
			return model.ErrNotReady
		}
		sg.SetStatus(to)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Uint64("song_id", songID).Str("from", string(from)).Str("to", string(to)).Msg("song status changed")
	s.emitForJam(ctx, song.JamID, model.EventSongStatusChanged, StatusChangedPayload{
		SongID:     songID,
		From:       from,
		To:         to,
		OrderIndex: song.OrderIndex,
	})
	return song, nil
}

// SetReady toggles the curation flag of an open song.  Setting the flag
// to its current value succeeds without an event.
func (s *Service) SetReady(ctx context.Context, songID uint64, ready bool) (*model.Song, error) {
	changed := false
	song, err := s.store.UpdateSong(ctx, songID, func(sg *model.Song) error {
		if sg.Status != model.SongOpenForCandidates {
			return model.Errorf(model.KindInvalidState, "ready can only be set on open songs")
		}
		changed = sg.Ready != ready
		sg.Ready = ready
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.emitForJam(ctx, song.JamID, model.EventSongReadyChanged, ReadyChangedPayload{SongID: songID, Ready: ready})
	}
	return song, nil
}

// DeleteSong removes a song with its manifest, candidates and ratings.
func (s *Service) DeleteSong(ctx context.Context, songID uint64) error {
	song, err := s.store.DeleteSong(ctx, songID)
	if err != nil {
		return err
	}
	s.log.Info().Uint64("song_id", songID).Uint64("jam_id", song.JamID).Msg("song deleted")
	s.emitForJam(ctx, song.JamID, model.EventSongDeleted, SongDeletedPayload{SongID: songID, Status: song.Status})
	return nil
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
