package model

import "time"

// SongStatus is the lifecycle state of a queue item.
type SongStatus string

const (
	SongPlanned           SongStatus = "planned"
	SongOpenForCandidates SongStatus = "open_for_candidates"
	SongOnStage           SongStatus = "on_stage"
	SongPlayed            SongStatus = "played"
	SongCanceled          SongStatus = "canceled"
)

// SongStatuses lists every status in bucket display order.
var SongStatuses = []SongStatus{SongOpenForCandidates, SongOnStage, SongPlanned, SongPlayed, SongCanceled}

// Valid reports whether s is a known status.
func (s SongStatus) Valid() bool {
	switch s {
	case SongPlanned, SongOpenForCandidates, SongOnStage, SongPlayed, SongCanceled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s SongStatus) Terminal() bool {
	return s == SongPlayed || s == SongCanceled
}

// Song is a single performance slot within a jam.  Ordering is kept per
// (jam, status) bucket: OrderIndex is dense and starts at zero inside the
// bucket the song currently lives in.
//
// Fields:
//  ID           – primary key identifier.
//  JamID        – jam the song belongs to.
//  Title        – song title.
//  Artist       – optional original artist.
//  Key          – optional musical key.
//  Tempo        – optional tempo in BPM.
//  Status       – lifecycle state.
//  Ready        – manual curation gate, only meaningful while open.
//  OrderIndex   – position inside the (jam, status) bucket.
//  ReleaseBatch – optional tag grouping songs opened together.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type Song struct {
	ID           uint64     `json:"id"`                      // songs.id
	JamID        uint64     `json:"jam_id"`                  // songs.jam_id
	Title        string     `json:"title"`                   // songs.title
	Artist       *string    `json:"artist,omitempty"`        // songs.artist (nullable)
	Key          *string    `json:"key,omitempty"`           // songs.song_key (nullable)
	Tempo        *int       `json:"tempo,omitempty"`         // songs.tempo (nullable)
	Status       SongStatus `json:"status"`                  // songs.status
	Ready        bool       `json:"ready"`                   // songs.ready
	OrderIndex   int        `json:"order_index"`             // songs.order_index
	ReleaseBatch *string    `json:"release_batch,omitempty"` // songs.release_batch (nullable)
	CreatedAt    time.Time  `json:"created_at"`              // songs.created_at
	UpdatedAt    time.Time  `json:"updated_at"`              // songs.updated_at
}

// SetStatus moves the song to another status.  Ready is forced off
// whenever the song leaves open_for_candidates.
func (s *Song) SetStatus(to SongStatus) {
	if s.Status == SongOpenForCandidates && to != SongOpenForCandidates {
		s.Ready = false
	}
	s.Status = to
}

// CanTransition reports whether the state machine allows from -> to,
// ignoring the ready gate.  Opening (planned -> open) and closing
// (open -> planned) have dedicated operations and are not covered here.
func CanTransition(from, to SongStatus) bool {
	switch from {
	case SongOpenForCandidates:
		return to == SongOnStage || to == SongPlayed || to == SongCanceled
	case SongOnStage:
		return to == SongPlayed || to == SongCanceled
	case SongPlanned:
		return to == SongCanceled
	}
	return false
}
