package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-engine/internal/handler"
	"github.com/iliyamo/cinema-booking-engine/internal/middleware"
)

// RegisterOwner registers OWNER-scoped endpoints under /v1/owner.
// All routes require a valid JWT and the OWNER role.
func RegisterOwner(e *echo.Echo, o *handler.OwnerHandler, jwtSecret string) {
	g := e.Group(
		"/v1/owner",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleOwner),
	)
	g.POST("/shows/:id/seats", o.SeedShowSeats)
	g.DELETE("/shows/:id/holds", o.ReleaseShowHolds)
}
