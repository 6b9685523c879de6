package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// DefaultMaxOpenSongs is the open-song ceiling used when no limit source
// is configured.
const DefaultMaxOpenSongs = 5

// Options tunes a Service.  Zero values fall back to defaults.
type Options struct {
	// MaxOpenSongs is consulted on every open so operators can change the
	// ceiling without restarting.
	MaxOpenSongs func() int
	Now          func() time.Time
	Logger       zerolog.Logger
}

// Service implements the slot-booking and queue engine on top of a Store.
// State changes are committed first and announced through the Emitter
// afterwards; an emit never rolls back a committed change.
type Service struct {
	store   Store
	guests  GuestDirectory
	emitter Emitter
	ledger  *Ledger
	maxOpen func() int
	now     func() time.Time
	log     zerolog.Logger
}

// New wires a Service.  emitter may be nil, in which case no events leave
// the engine.
func New(store Store, guests GuestDirectory, emitter Emitter, opts Options) *Service {
	s := &Service{
		store:   store,
		guests:  guests,
		emitter: emitter,
		ledger:  NewLedger(store),
		maxOpen: opts.MaxOpenSongs,
		now:     opts.Now,
		log:     opts.Logger,
	}
	if s.maxOpen == nil {
		s.maxOpen = func() int { return DefaultMaxOpenSongs }
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.emitter == nil {
		s.emitter = nopEmitter{}
	}
	return s
}

// Ledger exposes the capacity ledger.
func (s *Service) Ledger() *Ledger { return s.ledger }

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, model.ChannelKey, string, any) {}

// emitForJam resolves the jam's channel and emits.  The change is already
// committed, so a lookup failure is logged and the event is dropped.
func (s *Service) emitForJam(ctx context.Context, jamID uint64, typ string, payload any) {
	j, err := s.store.GetJam(ctx, jamID)
	if err != nil {
		s.log.Warn().Err(err).Uint64("jam_id", jamID).Str("event", typ).Msg("drop event: jam lookup failed")
		return
	}
	s.emitter.Emit(ctx, j.Channel(), typ, payload)
}

func (s *Service) limit() int {
	n := s.maxOpen()
	if n < 1 {
		return 1
	}
	return n
}
