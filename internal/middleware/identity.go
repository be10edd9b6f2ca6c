package middleware

// identity.go holds the helpers that turn JWT claims into the opaque user
// identifier the rest of the service works with.

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// UserID returns the caller identity stored by JWTAuth, or "" when the
// request was not authenticated.
func UserID(c echo.Context) string {
	if s, ok := c.Get(userIDKey).(string); ok {
		return s
	}
	return ""
}

// subject reads the "sub" claim.  Identity providers differ in whether
// they encode numeric user ids as strings or numbers; both are accepted and
// rendered as a decimal string.  A "user_id" claim is used as fallback.
func subject(claims jwt.MapClaims) string {
	for _, name := range []string{"sub", "user_id"} {
		switch v := claims[name].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			if v >= 0 && v == float64(uint64(v)) {
				return strconv.FormatUint(uint64(v), 10)
			}
		}
	}
	return ""
}
