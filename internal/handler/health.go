package handler // HTTP handlers for the jam API

import (
	"net/http" // status codes

	"github.com/labstack/echo/v4" // web framework
)

// Health is a liveness check used by load balancers and monitoring.  It
// returns a plain text "ok" with a 200 status.
func Health(c echo.Context) error { // no auth, no store access
	return c.String(http.StatusOK, "ok") // plain text body
}
