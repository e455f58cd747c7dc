package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking-engine/internal/handler"
	"github.com/iliyamo/cinema-booking-engine/internal/middleware"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.  All
// routes require a valid JWT and the CUSTOMER role, and are rate limited
// per user by limiter.
func RegisterCustomer(e *echo.Echo, h *handler.CustomerHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleCustomer),
		limiter,
	)
	g.POST("/shows/:id/hold", h.HoldSeats)
	g.DELETE("/shows/:id/hold", h.ReleaseHolds)
	g.GET("/shows/:id/hold", h.GetHold)
	g.POST("/shows/:id/confirm", h.ConfirmSeats)
	g.GET("/bookings/:id", h.GetBooking)
}
