package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lti-bridge-api/internal/observability"
)

// Observability attaches Prometheus metrics and structured latency/error
// logging for the launch surfaces. Query strings are never logged: launch
// follow-up requests carry bearer tokens there.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		if strings.HasPrefix(c.Path(), "/lti") {
			surface := routeTemplate(c)
			observability.LaunchLatency().WithLabelValues(surface).Observe(duration.Seconds())

			status := c.Response().StatusCode()
			requestLogger := logger.With().
				Str("correlation_id", GetCorrelationID(c)).
				Str("route", surface).
				Str("method", c.Method()).
				Int("status", status).
				Float64("latency_ms", float64(duration)/float64(time.Millisecond)).
				Logger()

			switch {
			case status >= fiber.StatusInternalServerError:
				requestLogger.Error().Msg("launch request failed")
			case status >= fiber.StatusBadRequest:
				requestLogger.Warn().Msg("launch request completed with client error")
			default:
				requestLogger.Info().Msg("launch request completed")
			}
		}

		return err
	}
}

func routeTemplate(c *fiber.Ctx) string {
	if c.Route() != nil && c.Route().Path != "" {
		return c.Route().Path
	}
	return c.Path()
}
