package broadcast

import (
	"sync"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// Subscription is one live subscriber handle.  Messages arrive on C in
// publish order; C is closed when the subscription ends, whether through
// Close, hub shutdown or removal for falling behind.
type Subscription struct {
	C <-chan Message

	out  chan Message
	ch   *channel
	once sync.Once
}

func newSubscription(ch *channel, buffer int) *Subscription {
	out := make(chan Message, buffer)
	return &Subscription{C: out, out: out, ch: ch}
}

// Key returns the channel the subscription listens on.
func (s *Subscription) Key() model.ChannelKey { return s.ch.key }

// Close unregisters the subscriber.  It may be called any number of times
// from any goroutine, including after the hub has shut down.
func (s *Subscription) Close() {
	s.once.Do(func() {
		select {
		case s.ch.cmds <- command{kind: cmdUnregister, sub: s}:
		case <-s.ch.quit:
		}
	})
}
