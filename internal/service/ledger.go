package service

import (
	"context"
	"time"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// Ledger answers capacity questions for (song, instrument) pairs and is
// the single entry point for consuming a seat.
type Ledger struct {
	store Store
}

// NewLedger returns a ledger backed by store.
func NewLedger(store Store) *Ledger { return &Ledger{store: store} }

// RemainingSlots returns slots minus approved candidates, never below zero.
func (l *Ledger) RemainingSlots(ctx context.Context, songID uint64, instrument string) (int, error) {
	slots, err := l.store.ListSlots(ctx, songID)
	if err != nil {
		return 0, err
	}
	for _, s := range slots {
		if s.Instrument != instrument {
			continue
		}
		approved, err := l.store.CountApproved(ctx, songID, instrument)
		if err != nil {
			return 0, err
		}
		if rem := s.Slots - approved; rem > 0 {
			return rem, nil
		}
		return 0, nil
	}
	return 0, model.Errorf(model.KindNotFound, "song %d has no %q slot", songID, instrument)
}

// Availability returns the manifest of a song with approved and remaining
// counts per instrument.
func (l *Ledger) Availability(ctx context.Context, songID uint64) ([]model.SlotAvailability, error) {
	slots, err := l.store.ListSlots(ctx, songID)
	if err != nil {
		return nil, err
	}
	cands, err := l.store.ListCandidates(ctx, songID)
	if err != nil {
		return nil, err
	}
	return model.Availability(slots, model.ApprovedCounts(cands)), nil
}

// TryReserve approves a pending candidate if its instrument still has a
// free seat.  Concurrent reservations for the same (song, instrument) are
// serialized by the store, so exactly min(slots, requests) succeed.
func (l *Ledger) TryReserve(ctx context.Context, candidateID uint64, approvedBy string, at time.Time) (*model.Candidate, int, error) {
	return l.store.ApproveCandidate(ctx, candidateID, approvedBy, at)
}
