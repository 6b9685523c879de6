// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4" // echo router and groups

	"github.com/iliyamo/jam-session-queue/internal/handler" // HTTP handlers
)

// RegisterRoutes registers the unauthenticated routes: the health check,
// the public jam listing (behind cache), song ratings and the live
// streams.  cache may be nil.
func RegisterRoutes(e *echo.Echo, p *handler.PublicHandler, s *handler.StreamHandler, cache echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health) // liveness check

	g := e.Group("/v1") // public API prefix
	if cache != nil {   // cache only the listing
		g.GET("/events/:event_id/jams", p.ListJams, cache)
	} else {
		g.GET("/events/:event_id/jams", p.ListJams)
	}
	g.GET("/songs/:song_id/rating", p.Rating) // aggregate rating of a song

	// Streams are long-lived and must not pass through the cache.
	g.GET("/events/:event_id/jams/:jam_id/stream", s.SSE)   // server-sent events
	g.GET("/events/:event_id/jams/:jam_id/ws", s.WebSocket) // websocket frames
}
