// Package memstore keeps the whole engine state in process memory.  It is
// used for tests and for single-instance deployments without MySQL.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/jam-session-queue/internal/model"
	"github.com/iliyamo/jam-session-queue/internal/service"
)

var (
	_ service.Store          = (*Store)(nil)
	_ service.GuestDirectory = (*Store)(nil)
)

type guestKey struct {
	eventID uint64
	userID  uint64
}

// Store is a service.Store guarded by one RWMutex.  Every write holds the
// exclusive lock for its whole duration, which makes each method atomic
// and serializes approvals per (song, instrument) trivially.
type Store struct {
	mu     sync.RWMutex
	nextID uint64
	now    func() time.Time

	jams       map[uint64]*model.Jam
	slugs      map[string]bool
	songs      map[uint64]*model.Song
	slots      map[uint64][]model.InstrumentSlot
	candidates map[uint64]*model.Candidate
	ratings    map[uint64]map[string]model.Rating
	guests     map[guestKey]*model.Guest
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:        func() time.Time { return time.Now().UTC() },
		jams:       make(map[uint64]*model.Jam),
		slugs:      make(map[string]bool),
		songs:      make(map[uint64]*model.Song),
		slots:      make(map[uint64][]model.InstrumentSlot),
		candidates: make(map[uint64]*model.Candidate),
		ratings:    make(map[uint64]map[string]model.Rating),
		guests:     make(map[guestKey]*model.Guest),
	}
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

// ---- jams ----

func (s *Store) CreateJam(_ context.Context, j *model.Jam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slugs[j.Slug] {
		return model.ErrSlugTaken
	}
	max := -1
	for _, other := range s.jams {
		if other.EventID == j.EventID && other.OrderIndex > max {
			max = other.OrderIndex
		}
	}
	now := s.now()
	j.ID = s.id()
	j.OrderIndex = max + 1
	j.CreatedAt, j.UpdatedAt = now, now
	cp := *j
	s.jams[j.ID] = &cp
	s.slugs[j.Slug] = true
	return nil
}

func (s *Store) GetJam(_ context.Context, id uint64) (*model.Jam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jams[id]
	if !ok {
		return nil, model.Errorf(model.KindNotFound, "jam %d not found", id)
	}
	cp := *j
	return &cp, nil
}

func (s *Store) ListJams(_ context.Context, eventID uint64) ([]model.Jam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Jam{}
	for _, j := range s.jams {
		if j.EventID == eventID {
			out = append(out, *j)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].OrderIndex < out[b].OrderIndex })
	return out, nil
}

// ---- guests ----

// AddGuest registers an attendee.  A zero ID is assigned automatically.
func (s *Store) AddGuest(g model.Guest) model.Guest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == 0 {
		g.ID = s.id()
	}
	cp := g
	s.guests[guestKey{g.EventID, g.UserID}] = &cp
	return g
}

func (s *Store) ResolveGuest(_ context.Context, eventID, userID uint64) (*model.Guest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.guests[guestKey{eventID, userID}]
	if !ok {
		return nil, model.Errorf(model.KindNotFound, "user %d is not a guest of event %d", userID, eventID)
	}
	cp := *g
	return &cp, nil
}
