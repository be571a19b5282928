package middleware

// identity.go holds the context keys JWTAuth writes and the accessors
// handlers and other middleware use to read them back.

import "github.com/labstack/echo/v4"

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// Role names carried in the access token.
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// UserID returns the authenticated user id, or false when the request did
// not pass through JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated role, or "" for anonymous requests.
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}
