package broadcast

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

type cmdKind int

const (
	cmdRegister cmdKind = iota
	cmdUnregister
	cmdPublish
	cmdCount
)

type command struct {
	kind   cmdKind
	sub    *Subscription
	lastID uint64
	msg    Message
	reply  chan int
}

// channel owns the subscriber set of one (event, jam) pair.
type channel struct {
	key  model.ChannelKey
	cfg  Config
	log  zerolog.Logger
	cmds chan command
	quit chan struct{}

	subs   map[*Subscription]struct{}
	recent *ring
	seq    uint64
}

func newChannel(key model.ChannelKey, cfg Config, log zerolog.Logger) *channel {
	return &channel{
		key:    key,
		cfg:    cfg,
		log:    log.With().Str("channel", key.String()).Logger(),
		cmds:   make(chan command),
		quit:   make(chan struct{}),
		subs:   make(map[*Subscription]struct{}),
		recent: newRing(cfg.Replay),
	}
}

func (c *channel) run() {
	var tick <-chan time.Time
	if c.cfg.Heartbeat > 0 {
		t := time.NewTicker(c.cfg.Heartbeat)
		defer t.Stop()
		tick = t.C
	}
	for {
		select {
		case cmd := <-c.cmds:
			c.handle(cmd)
		case <-tick:
			c.fanout(Message{Type: HeartbeatType})
		case <-c.quit:
			for sub := range c.subs {
				c.drop(sub)
			}
			return
		}
	}
}

func (c *channel) handle(cmd command) {
	switch cmd.kind {
	case cmdRegister:
		c.subs[cmd.sub] = struct{}{}
		if cmd.lastID > 0 && !c.replay(cmd.sub, cmd.lastID) {
			return
		}
		c.log.Debug().Int("subscribers", len(c.subs)).Msg("subscriber joined")
	case cmdUnregister:
		if _, ok := c.subs[cmd.sub]; ok {
			c.drop(cmd.sub)
			c.log.Debug().Int("subscribers", len(c.subs)).Msg("subscriber left")
		}
	case cmdPublish:
		c.seq++
		m := cmd.msg
		m.ID = c.seq
		c.recent.push(m)
		c.fanout(m)
	case cmdCount:
		cmd.reply <- len(c.subs)
	}
}

// replay sends the buffered messages after lastID.  Ids are contiguous, so
// fewer buffered messages than ids missed means a gap, which is announced
// with a resync first.  A lastID ahead of the sequence comes from an
// earlier process and gets a resync as well.
func (c *channel) replay(sub *Subscription, lastID uint64) bool {
	msgs := c.recent.since(lastID)
	if lastID > c.seq || uint64(len(msgs)) < c.seq-lastID {
		data := json.RawMessage(`{"latest_id":` + strconv.FormatUint(c.seq, 10) + `}`)
		if !c.deliver(sub, Message{Type: ResyncType, Data: data}) {
			return false
		}
	}
	for _, m := range msgs {
		if !c.deliver(sub, m) {
			return false
		}
	}
	return true
}

func (c *channel) fanout(m Message) {
	for sub := range c.subs {
		c.deliver(sub, m)
	}
}

// deliver queues m for sub.  A full queue means the subscriber stopped
// reading; it is removed so it cannot hold back the others.
func (c *channel) deliver(sub *Subscription, m Message) bool {
	select {
	case sub.out <- m:
		return true
	default:
		c.log.Warn().Str("type", m.Type).Msg("subscriber queue full, dropping subscriber")
		c.drop(sub)
		return false
	}
}

func (c *channel) drop(sub *Subscription) {
	delete(c.subs, sub)
	close(sub.out)
}
