// Package handler implements the HTTP boundary of the booking engine.
// Handlers parse and validate input, call into the hold manager, the
// booking committer and the seat inventory, and map their outcomes to
// status codes.  They assume JWTAuth and RequireRole already ran where a
// route needs them.
package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-engine/internal/logging"
	"github.com/iliyamo/cinema-booking-engine/internal/middleware"
)

// caller is the authenticated party behind a request.
type caller struct {
	UserID uint64
	Holder string
}

// currentCaller reads the identity JWTAuth put on the context.
func currentCaller(c echo.Context) (caller, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		return caller{}, false
	}
	holder, ok := middleware.Holder(c)
	if !ok {
		return caller{}, false
	}
	return caller{UserID: id, Holder: holder}, true
}

// showID parses the :id path parameter.
func showID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// positive drops zero ids, which never name a seat.
func positive(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id != 0 {
			out = append(out, id)
		}
	}
	return out
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// internalError logs err on the request logger and answers 500 without
// leaking the cause.
func internalError(c echo.Context, err error, msg string) error {
	logging.FromContext(c.Request().Context()).WithError(err).WithField("path", c.Path()).Error(msg)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}
