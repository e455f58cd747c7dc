// Package router registers the HTTP routes on an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/cinema-booking-engine/internal/handler"
)

// RegisterRoutes registers the unauthenticated operational endpoints:
// the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterPublic registers the read endpoints guests may call.  cache
// fronts the reference data only; the seat map is always read fresh so
// clients never see a stale seat status.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/ticket-categories", p.TicketCategories, cache)
	e.GET("/v1/shows/:id/seats", p.ShowSeats)
}
