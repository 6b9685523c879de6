package service

import "github.com/iliyamo/jam-session-queue/internal/model"

// Event payloads.  They are serialized as the data part of a change event.

type SongCreatedPayload struct {
	Song        model.Song               `json:"song"`
	Instruments []model.SlotAvailability `json:"instruments"`
}

type SlotsUpdatedPayload struct {
	SongID      uint64                   `json:"song_id"`
	Instruments []model.SlotAvailability `json:"instruments"`
}

type SongsOpenedPayload struct {
	SongIDs      []uint64 `json:"song_ids"`
	ReleaseBatch *string  `json:"release_batch,omitempty"`
}

type SongsClosedPayload struct {
	SongIDs []uint64 `json:"song_ids"`
}

type StatusChangedPayload struct {
	SongID     uint64           `json:"song_id"`
	From       model.SongStatus `json:"from"`
	To         model.SongStatus `json:"to"`
	OrderIndex int              `json:"order_index"`
}

type ReadyChangedPayload struct {
	SongID uint64 `json:"song_id"`
	Ready  bool   `json:"ready"`
}

type OrderChangedPayload struct {
	Status  model.SongStatus `json:"status"`
	SongIDs []uint64         `json:"song_ids"`
}

type SongDeletedPayload struct {
	SongID uint64           `json:"song_id"`
	Status model.SongStatus `json:"status"`
}

type CandidatePayload struct {
	Candidate model.Candidate `json:"candidate"`
	// Remaining is set on approvals only.
	Remaining *int `json:"remaining,omitempty"`
}
