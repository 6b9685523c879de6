package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

// Sink delivers an encoded event to local subscribers.  *broadcast.Hub
// satisfies it.
type Sink interface {
	PublishRaw(key model.ChannelKey, typ string, data json.RawMessage)
}

// EventPublisher sends an envelope to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev JamEvent) error
}

// outboxSize bounds the envelopes waiting for the broker.  Emit drops
// events once it is full.
const outboxSize = 256

// publishTimeout bounds one broker publish made by the outbox drainer.
const publishTimeout = 5 * time.Second

// Relay is the engine's event sink in multi-instance deployments.  Every
// event is delivered to local subscribers first and then queued for the
// broker; events consumed from the broker that were produced by another
// instance are delivered locally.  A broker outage only affects viewers
// connected to other instances.
type Relay struct {
	url      string
	exchange string
	origin   string
	sink     Sink
	pub      EventPublisher
	outbox   chan JamEvent
	log      zerolog.Logger
}

// NewRelay returns a relay bound to the broker at url.
func NewRelay(url, exchange string, sink Sink, log zerolog.Logger) *Relay {
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Relay{
		url:      url,
		exchange: exchange,
		origin:   uuid.NewString(),
		sink:     sink,
		pub:      NewPublisher(url, exchange),
		outbox:   make(chan JamEvent, outboxSize),
		log:      log.With().Str("component", "relay").Logger(),
	}
}

// Origin returns the instance id stamped on outgoing events.
func (r *Relay) Origin() string { return r.origin }

// Emit implements the engine's event sink.  It never waits for the
// broker: the envelope is queued for the publisher goroutine started by Run.
func (r *Relay) Emit(_ context.Context, key model.ChannelKey, typ string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.log.Error().Err(err).Str("type", typ).Msg("marshal payload")
		return
	}
	r.sink.PublishRaw(key, typ, data)

	ev := JamEvent{
		Origin:    r.origin,
		EventID:   key.EventID,
		JamID:     key.JamID,
		Type:      typ,
		Payload:   data,
		EmittedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case r.outbox <- ev:
	default:
		r.log.Warn().Str("channel", key.String()).Str("type", typ).Msg("broker outbox full, delivered locally only")
	}
}

// publishLoop drains the outbox until ctx is cancelled.
func (r *Relay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.outbox:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			err := r.pub.Publish(pctx, ev)
			cancel()
			if err != nil {
				r.log.Warn().Err(err).Str("channel", ev.Key().String()).Str("type", ev.Type).Msg("broker publish failed, delivered locally only")
			}
		}
	}
}

// Run consumes events from the broker until ctx is cancelled,
// reconnecting with exponential backoff.  It also drains the outbox
// that Emit fills.
func (r *Relay) Run(ctx context.Context) error {
	go r.publishLoop(ctx)

	backoff := time.Second
	for {
		conn, err := dial(r.url)
		if err != nil {
			r.log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = r.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.log.Warn().Err(err).Msg("consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

// Close releases the publishing connection.
func (r *Relay) Close() error {
	if p, ok := r.pub.(*Publisher); ok {
		return p.Close()
	}
	return nil
}

func (r *Relay) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareExchange(ch, r.exchange); err != nil {
		return err
	}
	// Each instance gets its own exclusive queue bound to the fanout exchange.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", r.exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}
	if err := ch.Qos(100, 0, false); err != nil {
		r.log.Warn().Err(err).Msg("set QoS failed")
	}
	msgs, err := ch.Consume(q.Name, "", false, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	r.log.Info().Str("queue", q.Name).Str("exchange", r.exchange).Msg("relay consuming")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := r.handle(d.Body); err != nil {
				r.log.Warn().Err(err).Msg("handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handle decodes one envelope and forwards foreign events to the sink.
func (r *Relay) handle(body []byte) error {
	var ev JamEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.JamID == 0 {
		return errors.New("envelope missing type or jam id")
	}
	if ev.Origin == r.origin {
		return nil
	}
	r.sink.PublishRaw(ev.Key(), ev.Type, ev.Payload)
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
