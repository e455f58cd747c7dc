package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v3"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-booking-engine/internal/logging"
)

// CorrelationHeader carries the request's correlation id in both
// directions.
const CorrelationHeader = "Correlation-ID"

// CorrelationID reuses the caller's Correlation-ID or mints one, echoes it
// in the response and puts a logger tagged with it on the request
// context.  Each request is logged once when it completes.
func CorrelationID(base *logrus.Logger) echo.MiddlewareFunc {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(CorrelationHeader)
			if id == "" {
				id = shortuuid.New()
			}
			c.Response().Header().Set(CorrelationHeader, id)

			logger := base.WithField("correlation_id", id)
			ctx := logging.ToContext(req.Context(), logger)
			ctx = logging.ContextWithCorrelationID(ctx, id)
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.WithFields(logrus.Fields{
				"method":   req.Method,
				"path":     c.Path(),
				"status":   c.Response().Status,
				"duration": time.Since(start).String(),
			}).Info("request handled")
			return nil
		}
	}
}
