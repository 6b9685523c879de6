// Package broadcast fans change events out to live viewers of a jam.
//
// Each (event, jam) channel is owned by one goroutine.  Subscribing,
// unsubscribing, publishing and heartbeats are all messages to that
// goroutine, so delivery never races with membership changes and every
// subscriber sees the channel's events in publish order.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// HeartbeatType is the type of the keep-alive message.
const HeartbeatType = "heartbeat"

// ResyncType tells a resuming subscriber that events after its last seen
// id are no longer buffered and its state must be re-read.  The payload
// carries the channel's latest id.
const ResyncType = "resync"

// ErrClosed is returned by Subscribe after the hub has been shut down.
var ErrClosed = errors.New("broadcast: hub closed")

// Message is one delivery to a subscriber.  ID is the per-channel sequence
// number and is zero for heartbeats.
type Message struct {
	ID   uint64          `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"payload,omitempty"`
}

// Config tunes a Hub.
type Config struct {
	// Heartbeat is the keep-alive interval.  Zero disables heartbeats.
	Heartbeat time.Duration
	// Replay is the number of recent messages kept per channel for
	// subscribers resuming with a last seen id.
	Replay int
	// Buffer is the per-subscriber queue length.  A subscriber whose
	// queue is full is removed.
	Buffer int
}

// Hub is the process-wide subscriber registry.  Create it at startup and
// Close it at shutdown; Close ends every subscription.
type Hub struct {
	cfg Config
	log zerolog.Logger

	mu       sync.Mutex
	channels map[model.ChannelKey]*channel
	closed   bool
	wg       sync.WaitGroup
}

// NewHub returns an empty hub.
func NewHub(cfg Config, log zerolog.Logger) *Hub {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 64
	}
	return &Hub{cfg: cfg, log: log, channels: make(map[model.ChannelKey]*channel)}
}

// Subscribe registers a new subscriber on the channel of key.  When
// lastID is non-zero, buffered messages newer than lastID are queued
// before any live message.
func (h *Hub) Subscribe(key model.ChannelKey, lastID uint64) (*Subscription, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	ch, ok := h.channels[key]
	if !ok {
		ch = newChannel(key, h.cfg, h.log)
		h.channels[key] = ch
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			ch.run()
		}()
	}
	h.mu.Unlock()

	sub := newSubscription(ch, h.cfg.Buffer)
	select {
	case ch.cmds <- command{kind: cmdRegister, sub: sub, lastID: lastID}:
	case <-ch.quit:
		return nil, ErrClosed
	}
	return sub, nil
}

// Publish delivers an event to every subscriber of key.  It never blocks
// on slow subscribers and never fails because of them.  Publishing to a
// channel nobody has subscribed to is a no-op.
func (h *Hub) Publish(key model.ChannelKey, typ string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Str("channel", key.String()).Str("type", typ).Msg("broadcast: marshal payload")
		return
	}
	h.PublishRaw(key, typ, data)
}

// PublishRaw is Publish for an already encoded payload.
func (h *Hub) PublishRaw(key model.ChannelKey, typ string, data json.RawMessage) {
	h.mu.Lock()
	ch, ok := h.channels[key]
	h.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch.cmds <- command{kind: cmdPublish, msg: Message{Type: typ, Data: data}}:
	case <-ch.quit:
	}
}

// Emit lets the hub act as the engine's event sink.
func (h *Hub) Emit(_ context.Context, key model.ChannelKey, typ string, payload any) {
	h.Publish(key, typ, payload)
}

// Subscribers returns the number of live subscribers of key.
func (h *Hub) Subscribers(key model.ChannelKey) int {
	h.mu.Lock()
	ch, ok := h.channels[key]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	reply := make(chan int, 1)
	select {
	case ch.cmds <- command{kind: cmdCount, reply: reply}:
		return <-reply
	case <-ch.quit:
		return 0
	}
}

// Close ends every subscription and stops all channel goroutines.  It is
// safe to call more than once.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for _, ch := range h.channels {
		close(ch.quit)
	}
	h.mu.Unlock()
	h.wg.Wait()
}
