package handler

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lti-bridge-api/internal/config"
	"github.com/noah-isme/lti-bridge-api/internal/lti"
	"github.com/noah-isme/lti-bridge-api/internal/middleware"
	"github.com/noah-isme/lti-bridge-api/internal/web"
)

// formParams collects every submitted form field; the signature base string
// must be rebuilt over all of them.
func formParams(c *fiber.Ctx) map[string]string {
	params := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		params[string(key)] = string(value)
	})
	return params
}

func forwardedHeaders(c *fiber.Ctx) lti.ForwardedHeaders {
	return lti.ForwardedHeaders{
		Proto:  c.Get("X-Forwarded-Proto"),
		Host:   c.Get("X-Forwarded-Host"),
		Prefix: c.Get("X-Forwarded-Prefix"),
	}
}

// launchURL rebuilds the public URL the LMS signed against.
func launchURL(c *fiber.Ctx, cfg config.Config) string {
	return lti.PublicURL(c.Protocol(), c.Hostname(), c.Path(), forwardedHeaders(c), cfg.ProxyPathPrefix)
}

// pagePath builds the proxy-aware path of a follow-up page, with the token
// as its only query parameter.
func pagePath(c *fiber.Ctx, cfg config.Config, page, token string) string {
	prefix := forwardedHeaders(c).Prefix
	if prefix == "" {
		prefix = cfg.ProxyPathPrefix
	}
	prefix = strings.TrimSuffix(prefix, "/")

	return prefix + "/lti/" + page + "?token=" + url.QueryEscape(token)
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func activityIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals(middleware.LocalActivityID); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

func operatorIdentityFromContext(c *fiber.Ctx) string {
	if v := c.Locals(middleware.LocalOperatorIdentity); v != nil {
		if identity, ok := v.(string); ok {
			return identity
		}
	}
	return ""
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// Terminal pages shared by the launch handlers.

func renderTokenInvalid(c *fiber.Ctx, renderer *web.Renderer) error {
	return renderer.Render(c, fiber.StatusGone, "message", web.MessagePage{
		Title:   "Session expired",
		Heading: "This link has expired",
		Body:    "Your launch session has expired or was already used. Please relaunch the activity from your course.",
	})
}

func renderAuthFailed(c *fiber.Ctx, renderer *web.Renderer) error {
	// Deliberately generic: never distinguishes an unknown consumer key
	// from a bad signature.
	return renderer.Render(c, fiber.StatusUnauthorized, "message", web.MessagePage{
		Title:   "Launch rejected",
		Heading: "Launch could not be verified",
		Body:    "This launch request could not be authenticated. Please contact your course administrator.",
	})
}

func renderUpstreamError(c *fiber.Ctx, renderer *web.Renderer) error {
	return renderer.Render(c, fiber.StatusBadGateway, "message", web.MessagePage{
		Title:   "Service unavailable",
		Heading: "Something went wrong",
		Body:    "A service this activity depends on is currently unavailable. Please try again in a moment.",
	})
}

func renderInternalError(c *fiber.Ctx, renderer *web.Renderer) error {
	return renderer.Render(c, fiber.StatusInternalServerError, "message", web.MessagePage{
		Title:   "Error",
		Heading: "Something went wrong",
		Body:    "An unexpected error occurred. Please relaunch the activity from your course.",
	})
}
