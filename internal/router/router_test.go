package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/jam-session-queue/internal/broadcast"
	"github.com/iliyamo/jam-session-queue/internal/handler"
	"github.com/iliyamo/jam-session-queue/internal/memstore"
	"github.com/iliyamo/jam-session-queue/internal/service"
)

func newEcho(t *testing.T, cache, limiter echo.MiddlewareFunc) *echo.Echo {
	t.Helper()
	st := memstore.New()
	hub := broadcast.NewHub(broadcast.Config{}, zerolog.Nop())
	t.Cleanup(hub.Close)
	svc := service.New(st, st, hub, service.Options{Logger: zerolog.Nop()})

	e := echo.New()
	RegisterRoutes(e, handler.NewPublicHandler(svc), handler.NewStreamHandler(svc, hub, zerolog.Nop()), cache)
	RegisterStaff(e, handler.NewStaffHandler(svc), "secret")
	RegisterGuest(e, handler.NewGuestHandler(svc), "secret", limiter)
	return e
}

func TestRoutesRegistered(t *testing.T) {
	e := newEcho(t, nil, nil)
	have := make(map[string]bool)
	for _, r := range e.Routes() {
		have[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /healthz",
		"GET /v1/events/:event_id/jams",
		"GET /v1/songs/:song_id/rating",
		"GET /v1/events/:event_id/jams/:jam_id/stream",
		"GET /v1/events/:event_id/jams/:jam_id/ws",
		"POST /v1/staff/events/:event_id/jams",
		"POST /v1/staff/jams/:jam_id/songs/open",
		"PUT /v1/staff/jams/:jam_id/order",
		"PATCH /v1/staff/songs/:song_id/status",
		"POST /v1/staff/candidates/:candidate_id/approve",
		"POST /v1/jams/:jam_id/songs/:song_id/apply",
		"GET /v1/jams/:jam_id/position",
	} {
		if !have[want] {
			t.Errorf("route %q not registered", want)
		}
	}
}

func TestOptionalMiddlewareRuns(t *testing.T) {
	var cacheHits, limiterHits int
	cache := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error { cacheHits++; return next(c) }
	}
	limiter := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error { limiterHits++; return next(c) }
	}
	e := newEcho(t, cache, limiter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/events/1/jams", nil))
	if rec.Code != http.StatusOK || cacheHits != 1 {
		t.Fatalf("jam list: status %d, cache hits %d", rec.Code, cacheHits)
	}

	// Unauthenticated guest calls stop at JWTAuth before the limiter.
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jams/1/queue", nil))
	if rec.Code != http.StatusUnauthorized || limiterHits != 0 {
		t.Fatalf("guest queue: status %d, limiter hits %d", rec.Code, limiterHits)
	}
}
