package model

import "fmt"

// ChannelKey addresses one broadcast channel: a jam inside an event.
type ChannelKey struct {
	EventID uint64 `json:"event_id"`
	JamID   uint64 `json:"jam_id"`
}

func (k ChannelKey) String() string { return fmt.Sprintf("%d:%d", k.EventID, k.JamID) }

// Change event types pushed to live viewers.
const (
	EventSongCreated            = "song_created"
	EventInstrumentSlotsUpdated = "instrument_slots_updated"
	EventSongsOpened            = "songs_opened"
	EventSongsClosed            = "songs_closed"
	EventSongStatusChanged      = "song_status_changed"
	EventSongReadyChanged       = "song_ready_changed"
	EventSongOrderChanged       = "song_order_changed"
	EventSongDeleted            = "song_deleted"
	EventCandidateApplied       = "candidate_applied"
	EventCandidateApproved      = "candidate_approved"
	EventCandidateRejected      = "candidate_rejected"
	EventRatingSummaryUpdated   = "rating_summary_updated"
)
