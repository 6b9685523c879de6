package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/jam-session-queue/internal/model"
	"github.com/iliyamo/jam-session-queue/internal/service"
)

// StaffHandler serves the curation endpoints used by event staff.
type StaffHandler struct {
	Svc *service.Service
}

// NewStaffHandler panics when svc is nil.
func NewStaffHandler(svc *service.Service) *StaffHandler {
	if svc == nil {
		panic("nil service passed to NewStaffHandler")
	}
	return &StaffHandler{Svc: svc}
}

// CreateJam handles POST /v1/staff/events/:event_id/jams.
func (h *StaffHandler) CreateJam(c echo.Context) error {
	eventID, ok := pathID(c, "event_id")
	if !ok {
		return badRequest(c, "invalid event_id")
	}
	var body struct {
		Name  string `json:"name"`
		Notes string `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	jam, err := h.Svc.CreateJam(c.Request().Context(), service.CreateJamInput{
		EventID: eventID,
		Name:    body.Name,
		Notes:   body.Notes,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, jam)
}

// GetJam handles GET /v1/staff/jams/:jam_id.
func (h *StaffHandler) GetJam(c echo.Context) error {
	jamID, ok := pathID(c, "jam_id")
	if !ok {
		return badRequest(c, "invalid jam_id")
	}
	jam, err := h.Svc.GetJam(c.Request().Context(), jamID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, jam)
}

// CreateSong handles POST /v1/staff/jams/:jam_id/songs.
func (h *StaffHandler) CreateSong(c echo.Context) error {
	jamID, ok := pathID(c, "jam_id")
	if !ok {
		return badRequest(c, "invalid jam_id")
	}
	var in service.CreateSongInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	song, err := h.Svc.CreateSong(c.Request().Context(), jamID, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, song)
}

// ListSongs handles GET /v1/staff/jams/:jam_id/songs.  Songs are grouped
// by status, each group in queue order.
func (h *StaffHandler) ListSongs(c echo.Context) error {
	jamID, ok := pathID(c, "jam_id")
	if !ok {
		return badRequest(c, "invalid jam_id")
	}
	buckets, err := h.Svc.ListSongs(c.Request().Context(), jamID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"jam_id": jamID, "buckets": buckets})
}

// OpenSongs handles POST /v1/staff/jams/:jam_id/songs/open.
func (h *StaffHandler) OpenSongs(c echo.Context) error {
	jamID, ok := pathID(c, "jam_id")
	if !ok {
		return badRequest(c, "invalid jam_id")
	}
	var body struct {
		SongIDs      []uint64 `json:"song_ids"`
		ReleaseBatch *string  `json:"release_batch"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(body.SongIDs) == 0 {
		return badRequest(c, "song_ids is required")
	}
	songs, err := h.Svc.OpenSongs(c.Request().Context(), jamID, body.SongIDs, body.ReleaseBatch)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"songs": songs})
}

// Reorder handles PUT /v1/staff/jams/:jam_id/order.
func (h *StaffHandler) Reorder(c echo.Context) error {
	jamID, ok := pathID(c, "jam_id")
	if !ok {
		return badRequest(c, "invalid jam_id")
	}
	var body struct {
		Status  model.SongStatus `json:"status"`
		SongIDs []uint64         `json:"song_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if !body.Status.Valid() {
		return badRequest(c, "invalid status")
	}
	order, err := h.Svc.Reorder(c.Request().Context(), jamID, body.Status, body.SongIDs)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": body.Status, "song_ids": order})
}

// SongDetail handles GET /v1/staff/songs/:song_id.
func (h *StaffHandler) SongDetail(c echo.Context) error {
	songID, ok := pathID(c, "song_id")
	if !ok {
		return badRequest(c, "invalid song_id")
	}
	d, err := h.Svc.SongDetail(c.Request().Context(), songID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// ReplaceInstruments handles PUT /v1/staff/songs/:song_id/instruments.
func (h *StaffHandler) ReplaceInstruments(c echo.Context) error {
	songID, ok := pathID(c, "song_id")
	if !ok {
		return badRequest(c, "invalid song_id")
	}
	var body struct {
		Instruments []model.InstrumentSlot `json:"instruments"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	slots, err := h.Svc.ReplaceInstruments(c.Request().Context(), songID, body.Instruments)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"song_id": songID, "instruments": slots})
}

// Remaining handles GET /v1/staff/songs/:song_id/instruments/:instrument.
func (h *StaffHandler) Remaining(c echo.Context) error {
	songID, ok := pathID(c, "song_id")
	if !ok {
		return badRequest(c, "invalid song_id")
	}
	instrument := c.Param("instrument")
	n, err := h.Svc.Ledger().RemainingSlots(c.Request().Context(), songID, instrument)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"song_id": songID, "instrument": instrument, "remaining": n})
}

// CloseSong handles POST /v1/staff/songs/:song_id/close.
func (h *StaffHandler) CloseSong(c echo.Context) error {
	songID, ok := pathID(c, "song_id")
	if !ok {
		return badRequest(c, "invalid song_id")
	}
	song, err := h.Svc.CloseSong(c.Request().Context(), songID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, song)
}

// ChangeStatus handles PATCH /v1/staff/songs/:song_id/status.
func (h *StaffHandler) ChangeStatus(c echo.Context) error {
	songID, ok := pathID(c, "song_id")
	if !ok {
		return badRequest(c, "invalid song_id")
	}
	var body struct {
		Status model.SongStatus `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if !body.Status.Valid() {
		return badRequest(c, "invalid status")
	}
	song, err := h.Svc.ChangeStatus(c.Request().Context(), songID, body.Status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, song)
}

// SetReady handles PATCH /v1/staff/songs/:song_id/ready.
func (h *StaffHandler) SetReady(c echo.Context) error {
	songID, ok := pathID(c, "song_id")
	if !ok {
		return badRequest(c, "invalid song_id")
	}
	var body struct {
		Ready *bool `json:"ready"`
	}
	if err := c.Bind(&body); err != nil || body.Ready == nil {
		return badRequest(c, "ready is required")
	}
	song, err := h.Svc.SetReady(c.Request().Context(), songID, *body.Ready)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, song)
}

// DeleteSong handles DELETE /v1/staff/songs/:song_id.
func (h *StaffHandler) DeleteSong(c echo.Context) error {
	songID, ok := pathID(c, "song_id")
	if !ok {
		return badRequest(c, "invalid song_id")
	}
	if err := h.Svc.DeleteSong(c.Request().Context(), songID); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Approve handles POST /v1/staff/candidates/:candidate_id/approve.
func (h *StaffHandler) Approve(c echo.Context) error {
	candidateID, ok := pathID(c, "candidate_id")
	if !ok {
		return badRequest(c, "invalid candidate_id")
	}
	uid, err := userID(c)
	if err != nil {
		return err
	}
	cand, remaining, err := h.Svc.Approve(c.Request().Context(), candidateID, strconv.FormatUint(uid, 10))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"candidate": cand, "remaining": remaining})
}

// Reject handles POST /v1/staff/candidates/:candidate_id/reject.
func (h *StaffHandler) Reject(c echo.Context) error {
	candidateID, ok := pathID(c, "candidate_id")
	if !ok {
		return badRequest(c, "invalid candidate_id")
	}
	cand, err := h.Svc.Reject(c.Request().Context(), candidateID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, cand)
}
