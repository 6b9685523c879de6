package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jam-session-queue/internal/model"
	"github.com/iliyamo/jam-session-queue/internal/service"
)

// GuestHandler serves the attendee endpoints of a jam.  Every route is
// scoped by :jam_id and resolves the caller to a guest of the jam's event.
type GuestHandler struct {
	Svc *service.Service
}

// NewGuestHandler panics when svc is nil.
func NewGuestHandler(svc *service.Service) *GuestHandler {
	if svc == nil {
		panic("nil service passed to NewGuestHandler")
	}
	return &GuestHandler{Svc: svc}
}

// guest resolves the authenticated user to a checked-in guest.  A user
// missing from the guest list is treated like one who has not checked in.
func (h *GuestHandler) guest(c echo.Context) (uint64, *model.Guest, error) {
	jamID, ok := pathID(c, "jam_id") // jam from the route
	if !ok {                         // non-numeric or zero id
		return 0, nil, model.Errorf(model.KindInvalidInput, "invalid jam_id")
	}
	uid, err := userID(c) // caller from the token
	if err != nil {
		return 0, nil, err
	}
	ctx := c.Request().Context()
	if _, err := h.Svc.GetJam(ctx, jamID); err != nil { // unknown jam is a 404, not a 403
		return 0, nil, err
	}
	g, err := h.Svc.ResolveGuest(ctx, jamID, uid) // guest list of the jam's event
	if errors.Is(err, model.ErrNotFound) {        // not on the list
		return 0, nil, model.ErrGuestNotCheckedIn
	}
	if err != nil {
		return 0, nil, err
	}
	if !g.CheckedIn() { // listed but not at the venue yet
		return 0, nil, model.ErrGuestNotCheckedIn
	}
	return jamID, g, nil
}

func (h *GuestHandler) failOr(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return fail(c, err)
}

// Queue handles GET /v1/jams/:jam_id/queue.
func (h *GuestHandler) Queue(c echo.Context) error {
	jamID, g, err := h.guest(c)
	if err != nil {
		return h.failOr(c, err)
	}
	items, err := h.Svc.OpenQueue(c.Request().Context(), jamID, g)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"jam_id": jamID, "songs": items})
}

// Apply handles POST /v1/jams/:jam_id/songs/:song_id/apply.
func (h *GuestHandler) Apply(c echo.Context) error {
	jamID, g, err := h.guest(c)
	if err != nil {
		return h.failOr(c, err)
	}
	songID, ok := pathID(c, "song_id")
	if !ok {
		return badRequest(c, "invalid song_id")
	}
	var body struct { // request body
		Instrument string `json:"instrument"` // instrument key, e.g. "guitar"
	}
	if err := c.Bind(&body); err != nil { // malformed JSON
		return badRequest(c, "invalid request body")
	}
	cand, err := h.Svc.Apply(c.Request().Context(), jamID, songID, body.Instrument, g)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, cand)
}

// Applications handles GET /v1/jams/:jam_id/applications.
func (h *GuestHandler) Applications(c echo.Context) error {
	jamID, g, err := h.guest(c)
	if err != nil {
		return h.failOr(c, err)
	}
	apps, err := h.Svc.MyApplications(c.Request().Context(), jamID, g)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"applications": apps})
}

// Position handles GET /v1/jams/:jam_id/position.
func (h *GuestHandler) Position(c echo.Context) error {
	jamID, g, err := h.guest(c)
	if err != nil {
		return h.failOr(c, err)
	}
	pos, err := h.Svc.QueuePosition(c.Request().Context(), jamID, g)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, pos)
}

// Rate handles POST /v1/jams/:jam_id/songs/:song_id/rating.  Staff and
// users who are not on the guest list rate under their user id; listed
// guests must have checked in.
func (h *GuestHandler) Rate(c echo.Context) error {
	jamID, ok := pathID(c, "jam_id")
	if !ok {
		return badRequest(c, "invalid jam_id")
	}
	songID, ok := pathID(c, "song_id")
	if !ok {
		return badRequest(c, "invalid song_id")
	}
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var body struct { // request body
		Stars int `json:"stars"` // 1..5, validated by the engine
	}
	if err := c.Bind(&body); err != nil { // malformed JSON
		return badRequest(c, "invalid request body")
	}
	ctx := c.Request().Context()
	rater, err := h.Svc.RaterFor(ctx, jamID, uid) // guest identity when listed
	if err != nil {
		return fail(c, err)
	}
	sum, err := h.Svc.Rate(ctx, jamID, songID, rater, body.Stars) // upsert and re-aggregate
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}
