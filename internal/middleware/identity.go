package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated caller's ID stored by JWTAuth.
func UserID(c echo.Context) (uint64, bool) {
	v, ok := c.Get(ctxUserID).(uint64)
	return v, ok && v != 0
}

// Role returns the authenticated caller's role, or "" for anonymous requests.
func Role(c echo.Context) string {
	v, _ := c.Get(ctxRole).(string)
	return v
}

// identity renders the caller for rate-limit keys and request logs.
func identity(c echo.Context) string {
	if uid, ok := UserID(c); ok {
		return strconv.FormatUint(uid, 10)
	}
	return "anon"
}
