package broadcast

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/jam-session-queue/internal/model"
)

var key = model.ChannelKey{EventID: 1, JamID: 2}

func recv(t *testing.T, sub *Subscription) Message {
	t.Helper()
	select {
	case m, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription closed")
		}
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func waitClosed(t *testing.T, sub *Subscription) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-sub.C:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription was not closed")
		}
	}
}

func TestPublishOrder(t *testing.T) {
	h := NewHub(Config{Buffer: 8}, zerolog.Nop())
	defer h.Close()
	sub, err := h.Subscribe(key, 0)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	for i := 1; i <= 3; i++ {
		h.Publish(key, model.EventSongCreated, map[string]int{"n": i})
	}
	for i := 1; i <= 3; i++ {
		m := recv(t, sub)
		var body map[string]int
		if err := json.Unmarshal(m.Data, &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if m.ID != uint64(i) || body["n"] != i || m.Type != model.EventSongCreated {
			t.Fatalf("message %d = %+v", i, m)
		}
	}
}

func TestChannelsAreIsolated(t *testing.T) {
	h := NewHub(Config{Buffer: 8}, zerolog.Nop())
	defer h.Close()
	other := model.ChannelKey{EventID: 1, JamID: 3}
	a, _ := h.Subscribe(key, 0)
	b, _ := h.Subscribe(other, 0)

	h.Publish(other, model.EventSongDeleted, nil)
	if m := recv(t, b); m.Type != model.EventSongDeleted {
		t.Fatalf("b got %+v", m)
	}
	select {
	case m := <-a.C:
		t.Fatalf("a received foreign message %+v", m)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestSlowSubscriberIsRemoved(t *testing.T) {
	h := NewHub(Config{Buffer: 2}, zerolog.Nop())
	defer h.Close()
	fast, _ := h.Subscribe(key, 0)
	slow, _ := h.Subscribe(key, 0)

	for i := 0; i < 3; i++ {
		h.Publish(key, model.EventSongOrderChanged, i)
		recv(t, fast)
	}
	if n := h.Subscribers(key); n != 1 {
		t.Fatalf("subscribers = %d", n)
	}
	waitClosed(t, slow)

	h.Publish(key, model.EventSongOrderChanged, 4)
	if m := recv(t, fast); m.ID != 4 {
		t.Fatalf("fast got %+v", m)
	}
	slow.Close()
}

func TestReplayAfterLastID(t *testing.T) {
	h := NewHub(Config{Buffer: 8, Replay: 2}, zerolog.Nop())
	defer h.Close()
	first, _ := h.Subscribe(key, 0)
	for i := 0; i < 3; i++ {
		h.Publish(key, model.EventCandidateApplied, i)
	}
	recv(t, first)

	again, err := h.Subscribe(key, 1)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if m := recv(t, again); m.ID != 2 {
		t.Fatalf("first replayed = %+v", m)
	}
	if m := recv(t, again); m.ID != 3 {
		t.Fatalf("second replayed = %+v", m)
	}
	h.Publish(key, model.EventCandidateApplied, 4)
	if m := recv(t, again); m.ID != 4 {
		t.Fatalf("live = %+v", m)
	}
}

func TestReplayGapSendsResync(t *testing.T) {
	h := NewHub(Config{Buffer: 8, Replay: 2}, zerolog.Nop())
	defer h.Close()
	first, _ := h.Subscribe(key, 0)
	for i := 0; i < 5; i++ {
		h.Publish(key, model.EventCandidateApplied, i)
	}
	recv(t, first)

	late, err := h.Subscribe(key, 1)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	m := recv(t, late)
	if m.Type != ResyncType || m.ID != 0 {
		t.Fatalf("expected resync, got %+v", m)
	}
	var body struct {
		LatestID uint64 `json:"latest_id"`
	}
	if err := json.Unmarshal(m.Data, &body); err != nil || body.LatestID != 5 {
		t.Fatalf("resync payload %s: %v", m.Data, err)
	}
	if m := recv(t, late); m.ID != 4 {
		t.Fatalf("first replayed = %+v", m)
	}
	if m := recv(t, late); m.ID != 5 {
		t.Fatalf("second replayed = %+v", m)
	}

	ahead, _ := h.Subscribe(key, 99)
	if m := recv(t, ahead); m.Type != ResyncType {
		t.Fatalf("expected resync for unknown id, got %+v", m)
	}

	current, _ := h.Subscribe(key, 5)
	h.Publish(key, model.EventCandidateApplied, 6)
	if m := recv(t, current); m.ID != 6 {
		t.Fatalf("caught-up subscriber got %+v", m)
	}
}

func TestHeartbeat(t *testing.T) {
	h := NewHub(Config{Buffer: 4, Heartbeat: 10 * time.Millisecond}, zerolog.Nop())
	defer h.Close()
	sub, _ := h.Subscribe(key, 0)
	if m := recv(t, sub); m.Type != HeartbeatType || m.ID != 0 {
		t.Fatalf("got %+v", m)
	}
}

func TestCloseIsIdempotentAndConcurrent(t *testing.T) {
	h := NewHub(Config{Buffer: 4}, zerolog.Nop())
	defer h.Close()
	sub, _ := h.Subscribe(key, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.Close()
		}()
	}
	wg.Wait()
	waitClosed(t, sub)
	if n := h.Subscribers(key); n != 0 {
		t.Fatalf("subscribers = %d", n)
	}
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	h := NewHub(Config{Buffer: 4}, zerolog.Nop())
	sub, _ := h.Subscribe(key, 0)
	h.Close()
	waitClosed(t, sub)
	sub.Close()
	h.Close()

	if _, err := h.Subscribe(key, 0); err != ErrClosed {
		t.Fatalf("subscribe after close: %v", err)
	}
	h.Publish(key, model.EventSongCreated, nil)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	h := NewHub(Config{}, zerolog.Nop())
	defer h.Close()
	h.Publish(model.ChannelKey{EventID: 9, JamID: 9}, model.EventSongCreated, nil)
	if n := h.Subscribers(model.ChannelKey{EventID: 9, JamID: 9}); n != 0 {
		t.Fatalf("subscribers = %d", n)
	}
}
