package model

// InstrumentSlot is a capacity bucket for one instrument on a song.  A
// song's manifest is replaced as a whole; slots are never edited in place.
//
// Fields:
//  SongID          – owning song.
//  Instrument      – instrument key, e.g. "guitar".
//  Slots           – number of performers that may be approved (>= 1).
//  Required        – counts toward lineup completeness.
//  FallbackAllowed – informational flag for staff.
type InstrumentSlot struct {
	SongID          uint64 `json:"song_id"`          // song_instrument_slots.song_id
	Instrument      string `json:"instrument"`       // song_instrument_slots.instrument
	Slots           int    `json:"slots"`            // song_instrument_slots.slots
	Required        bool   `json:"required"`         // song_instrument_slots.required
	FallbackAllowed bool   `json:"fallback_allowed"` // song_instrument_slots.fallback_allowed
}

// SlotAvailability pairs a slot with its live occupancy.
type SlotAvailability struct {
	InstrumentSlot
	Approved  int `json:"approved"`
	Remaining int `json:"remaining"`
}
