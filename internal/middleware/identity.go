package middleware

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxHolder = "holder"
)

// HolderFor is the hold token of an authenticated user.  Seats are held
// and booked under it.
func HolderFor(userID uint64) string {
	return "user:" + strconv.FormatUint(userID, 10)
}

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Holder returns the authenticated caller's hold token.
func Holder(c echo.Context) (string, bool) {
	h, ok := c.Get(ctxHolder).(string)
	return h, ok && h != ""
}

// currentUserID identifies the caller for rate limiting; unauthenticated
// requests share the "anon" key.
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

// parseSubject converts a JWT "sub" claim to a user id.  Tokens minted by
// utils.NewAccessToken carry a number; RFC 7519 subjects are strings.
func parseSubject(v interface{}) (uint64, error) {
	switch t := v.(type) {
	case float64:
		if t <= 0 || t != float64(uint64(t)) {
			return 0, fmt.Errorf("invalid subject %v", t)
		}
		return uint64(t), nil
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		if err != nil || n == 0 {
			return 0, fmt.Errorf("invalid subject %q", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unsupported subject type %T", v)
	}
}
