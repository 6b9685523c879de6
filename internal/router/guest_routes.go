package router

import (
	"github.com/labstack/echo/v4" // echo router and groups

	"github.com/iliyamo/jam-session-queue/internal/handler"    // guest handlers
	"github.com/iliyamo/jam-session-queue/internal/middleware" // JWT and role checks
)

// RegisterGuest registers the attendee endpoints under /v1/jams/:jam_id.
// Staff may call them too, e.g. to rate a song.  limiter runs after
// authentication so buckets are per user; it may be nil.
func RegisterGuest(e *echo.Echo, h *handler.GuestHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	mw := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret), // verify access token
		middleware.RequireRole(middleware.RoleGuest, middleware.RoleStaff),
	}
	if limiter != nil { // rate limit after auth so the user id is known
		mw = append(mw, limiter)
	}
	g := e.Group("/v1/jams/:jam_id", mw...) // every route is scoped to a jam

	g.GET("/queue", h.Queue)                 // open songs with availability
	g.GET("/applications", h.Applications)   // caller's applications
	g.GET("/position", h.Position)           // caller's place in the queue
	g.POST("/songs/:song_id/apply", h.Apply) // apply for an instrument
	g.POST("/songs/:song_id/rating", h.Rate) // rate a played song
}
