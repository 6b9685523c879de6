package handler // HTTP handlers for the jam API

import (
	"net/http" // status codes
	"strconv"  // path parameter parsing

	"github.com/labstack/echo/v4" // web framework

	"github.com/iliyamo/jam-session-queue/internal/logging"    // request-scoped logger
	"github.com/iliyamo/jam-session-queue/internal/middleware" // JWT claims in the context
	"github.com/iliyamo/jam-session-queue/internal/model"      // engine error kinds
)

// statusFor maps an engine error kind to an HTTP status.
func statusFor(kind model.Kind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindGuestNotCheckedIn:
		return http.StatusForbidden
	case model.KindInvalidStars, model.KindInvalidInput, model.KindOutOfBucket:
		return http.StatusBadRequest
	case model.KindInvalidState, model.KindSongNotOpen, model.KindNotReady, model.KindSongNotPlayed,
		model.KindCapacityExceeded, model.KindTooManyOpenSongs, model.KindDuplicateApplication:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error.  Engine errors keep their message and
// kind; anything else is logged and reported as a 500.
func fail(c echo.Context, err error) error {
	kind := model.KindOf(err) // empty for errors the engine did not classify
	if kind == "" {           // unexpected failure: log it, hide the detail
		logging.FromContext(c.Request().Context()).Error().Err(err).
			Str("path", c.Path()).Msg("request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(statusFor(kind), echo.Map{"error": err.Error(), "kind": kind})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "kind": model.KindInvalidInput})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64) // ids are unsigned
	return id, err == nil && id > 0                     // zero is never a valid id
}

func userID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c) // sub claim set by JWTAuth
	if !ok {                       // missing or malformed subject
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}
