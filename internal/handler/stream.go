package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/jam-session-queue/internal/broadcast"
	"github.com/iliyamo/jam-session-queue/internal/model"
	"github.com/iliyamo/jam-session-queue/internal/service"
)

const wsWriteTimeout = 10 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Viewers are public displays served from other origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Subscriber is the part of the hub the stream endpoints use.
type Subscriber interface {
	Subscribe(key model.ChannelKey, lastID uint64) (*broadcast.Subscription, error)
}

// StreamHandler pushes jam change events to live viewers over SSE or
// websocket.
type StreamHandler struct {
	Svc *service.Service
	Hub Subscriber
	Log zerolog.Logger
}

// NewStreamHandler panics when a dependency is nil.
func NewStreamHandler(svc *service.Service, hub Subscriber, log zerolog.Logger) *StreamHandler {
	if svc == nil || hub == nil {
		panic("nil dependency passed to NewStreamHandler")
	}
	return &StreamHandler{Svc: svc, Hub: hub, Log: log}
}

// channelKey validates that :jam_id belongs to :event_id.
func (h *StreamHandler) channelKey(c echo.Context) (model.ChannelKey, error) {
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return model.ChannelKey{}, model.Errorf(model.KindInvalidInput, "invalid event_id")
	}
	jamID, ok := pathID(c, "jam_id")
	if !ok {
		return model.ChannelKey{}, model.Errorf(model.KindInvalidInput, "invalid jam_id")
	}
	jam, err := h.Svc.GetJam(c.Request().Context(), jamID)
	if err != nil {
		return model.ChannelKey{}, err
	}
	if jam.EventID != eventID {
		return model.ChannelKey{}, model.Errorf(model.KindNotFound, "jam %d not found", jamID)
	}
	return jam.Channel(), nil
}

// lastEventID reads the resume point from the Last-Event-ID header or the
// last_event_id query parameter.  Browsers cannot set headers on a
// websocket handshake.
func lastEventID(r *http.Request) uint64 {
	v := r.Header.Get("Last-Event-ID")
	if v == "" {
		v = r.URL.Query().Get("last_event_id")
	}
	id, _ := strconv.ParseUint(v, 10, 64)
	return id
}

// writeSSE writes one message as a server-sent event.  Heartbeats carry no
// id so they never move the client's resume point.
func writeSSE(w io.Writer, m broadcast.Message) error {
	data := m.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if m.ID != 0 {
		if _, err := fmt.Fprintf(w, "id: %d\n", m.ID); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", m.Type, data)
	return err
}

// SSE handles GET /v1/events/:event_id/jams/:jam_id/stream.
func (h *StreamHandler) SSE(c echo.Context) error {
	key, err := h.channelKey(c)
	if err != nil {
		return fail(c, err)
	}
	sub, err := h.Hub.Subscribe(key, lastEventID(c.Request()))
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "stream unavailable"})
	}
	defer sub.Close()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	log := h.Log.With().Stringer("channel", key).Str("transport", "sse").Logger()
	log.Debug().Msg("viewer connected")
	defer log.Debug().Msg("viewer disconnected")

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-sub.C:
			if !ok {
				return nil
			}
			if err := writeSSE(w, m); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

// wsFrame is the websocket wire shape of a message.
type wsFrame struct {
	Type    string          `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WebSocket handles GET /v1/events/:event_id/jams/:jam_id/ws.
func (h *StreamHandler) WebSocket(c echo.Context) error {
	key, err := h.channelKey(c)
	if err != nil {
		return fail(c, err)
	}
	sub, err := h.Hub.Subscribe(key, lastEventID(c.Request()))
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "stream unavailable"})
	}
	defer sub.Close()

	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.Log.Warn().Err(err).Stringer("channel", key).Msg("websocket upgrade failed")
		return nil
	}
	defer conn.Close()

	// Drain client frames so close and pong frames are processed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-gone:
			return nil
		case m, ok := <-sub.C:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"),
					time.Now().Add(wsWriteTimeout))
				return nil
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(wsFrame{Type: m.Type, Seq: m.ID, Payload: m.Data}); err != nil {
				return nil
			}
		}
	}
}
