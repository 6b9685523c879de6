package router

import (
	"github.com/labstack/echo/v4" // echo router and groups

	"github.com/iliyamo/jam-session-queue/internal/handler"    // staff handlers
	"github.com/iliyamo/jam-session-queue/internal/middleware" // JWT and role checks
)

// RegisterStaff registers the curation endpoints under /v1/staff.  Every
// route requires a valid JWT with the STAFF role.
func RegisterStaff(e *echo.Echo, h *handler.StaffHandler, jwtSecret string) {
	g := e.Group(
		"/v1/staff",
		middleware.JWTAuth(jwtSecret),                // verify access token
		middleware.RequireRole(middleware.RoleStaff), // staff only
	)

	// ---- Jams ----
	g.POST("/events/:event_id/jams", h.CreateJam)
	g.GET("/jams/:jam_id", h.GetJam)

	// ---- Songs of a jam ----
	g.POST("/jams/:jam_id/songs", h.CreateSong)
	g.GET("/jams/:jam_id/songs", h.ListSongs)
	g.POST("/jams/:jam_id/songs/open", h.OpenSongs) // batch open
	g.PUT("/jams/:jam_id/order", h.Reorder)         // reorder one bucket

	// ---- Single song ----
	g.GET("/songs/:song_id", h.SongDetail)
	g.PUT("/songs/:song_id/instruments", h.ReplaceInstruments)
	g.GET("/songs/:song_id/instruments/:instrument", h.Remaining) // remaining seats
	g.POST("/songs/:song_id/close", h.CloseSong)
	g.PATCH("/songs/:song_id/status", h.ChangeStatus)
	g.PATCH("/songs/:song_id/ready", h.SetReady)
	g.DELETE("/songs/:song_id", h.DeleteSong)

	// ---- Candidates ----
	g.POST("/candidates/:candidate_id/approve", h.Approve)
	g.POST("/candidates/:candidate_id/reject", h.Reject)
}
