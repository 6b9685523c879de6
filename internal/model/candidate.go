package model

import "time"

// CandidateStatus is the decision state of an application.
type CandidateStatus string

const (
	CandidatePending  CandidateStatus = "pending"
	CandidateApproved CandidateStatus = "approved"
	CandidateRejected CandidateStatus = "rejected"
)

// Candidate is a guest's application to play an instrument on a song.
// (song_id, instrument, guest_id) is unique.
//
// Fields:
//  ID         – primary key identifier.
//  SongID     – song applied for.
//  Instrument – instrument applied for.
//  GuestID    – applying guest.
//  Status     – pending, approved or rejected.
//  AppliedAt  – when the application was created.
//  ApprovedAt – when staff approved it (nil otherwise).
//  ApprovedBy – staff identity that approved it (nil otherwise).
type Candidate struct {
	ID         uint64          `json:"id"`                    // song_candidates.id
	SongID     uint64          `json:"song_id"`               // song_candidates.song_id
	Instrument string          `json:"instrument"`            // song_candidates.instrument
	GuestID    uint64          `json:"guest_id"`              // song_candidates.guest_id
	Status     CandidateStatus `json:"status"`                // song_candidates.status
	AppliedAt  time.Time       `json:"applied_at"`            // song_candidates.applied_at
	ApprovedAt *time.Time      `json:"approved_at,omitempty"` // song_candidates.approved_at (nullable)
	ApprovedBy *string         `json:"approved_by,omitempty"` // song_candidates.approved_by (nullable)
}
