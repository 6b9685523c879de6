package middleware

import (
	"net/http" // status codes
	"strconv"  // numeric subject parsing

	"github.com/labstack/echo/v4" // middleware signatures
)

// Roles carried in the "role" claim.
const (
	RoleStaff = "STAFF"
	RoleGuest = "GUEST"
)

// RequireRole aborts with 403 unless the role stored by JWTAuth is one of
// roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles)) // set of accepted roles
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ContextRole).(string) // stored by JWTAuth
			if !ok || !allowed[role] {              // missing or not permitted
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c) // role accepted
		}
	}
}

// UserID returns the numeric subject stored by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	switch v := c.Get(ContextUserID).(type) {
	case string: // "sub" as minted by utils.NewAccessToken
		id, err := strconv.ParseUint(v, 10, 64)
		return id, err == nil && id != 0
	case float64: // numeric "sub" from older tokens
		return uint64(v), v > 0
	}
	return 0, false
}

// Role returns the role stored by JWTAuth.
func Role(c echo.Context) string {
	r, _ := c.Get(ContextRole).(string)
	return r
}
