package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jam-session-queue/internal/service"
)

// PublicHandler serves unauthenticated read endpoints.
type PublicHandler struct {
	Svc *service.Service
}

// NewPublicHandler panics when svc is nil.
func NewPublicHandler(svc *service.Service) *PublicHandler {
	if svc == nil {
		panic("nil service passed to NewPublicHandler")
	}
	return &PublicHandler{Svc: svc}
}

// ListJams handles GET /v1/events/:event_id/jams.
func (h *PublicHandler) ListJams(c echo.Context) error {
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return badRequest(c, "invalid event_id")
	}
	jams, err := h.Svc.ListJams(c.Request().Context(), eventID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": eventID, "jams": jams})
}

// Rating handles GET /v1/songs/:song_id/rating.
func (h *PublicHandler) Rating(c echo.Context) error {
	songID, ok := pathID(c, "song_id")
	if !ok {
		return badRequest(c, "invalid song_id")
	}
	sum, err := h.Svc.RatingSummary(c.Request().Context(), songID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}
