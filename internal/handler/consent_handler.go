package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lti-bridge-api/internal/service"
	"github.com/noah-isme/lti-bridge-api/internal/tokenstore"
	"github.com/noah-isme/lti-bridge-api/internal/web"
)

// ConsentHandler serves the consent page and the accept action.
type ConsentHandler struct {
	consents service.ConsentService
	tokens   tokenstore.Store
	renderer *web.Renderer
	logger   zerolog.Logger
}

// NewConsentHandler creates a new consent handler.
func NewConsentHandler(consents service.ConsentService, tokens tokenstore.Store, renderer *web.Renderer, logger zerolog.Logger) *ConsentHandler {
	return &ConsentHandler{
		consents: consents,
		tokens:   tokens,
		renderer: renderer,
		logger:   logger.With().Str("component", "consent_handler").Logger(),
	}
}

// Register attaches the consent endpoints.
func (h *ConsentHandler) Register(router fiber.Router) {
	router.Get("/consent", h.showPage)
	router.Post("/consent", h.accept)
}

func (h *ConsentHandler) showPage(c *fiber.Ctx) error {
	tokenID := strings.TrimSpace(c.Query("token"))
	if tokenID == "" {
		return renderTokenInvalid(c, h.renderer)
	}

	// Peek only: the token is redeemed when the student accepts.
	payload, err := h.tokens.Peek(c.Context(), tokenID)
	if err != nil || payload.Class != tokenstore.ClassConsent {
		return renderTokenInvalid(c, h.renderer)
	}

	return h.renderer.Render(c, fiber.StatusOK, "consent", web.ConsentPage{
		Token:        tokenID,
		ActivityName: h.renderer.Sanitize(payload.ContextTitle),
	})
}

func (h *ConsentHandler) accept(c *fiber.Ctx) error {
	tokenID := strings.TrimSpace(c.FormValue("token"))
	if tokenID == "" {
		return renderTokenInvalid(c, h.renderer)
	}

	payload, err := h.tokens.Consume(c.Context(), tokenID)
	if err != nil || payload.Class != tokenstore.ClassConsent {
		return renderTokenInvalid(c, h.renderer)
	}

	redirectURL, err := h.consents.Accept(c.Context(), payload)
	if err != nil {
		logger := requestLogger(h.logger, c)
		logger.Error().Err(err).Str("placement_id", payload.PlacementID).Msg("consent acceptance failed")
		if errors.Is(err, service.ErrUpstreamUnavailable) {
			return renderUpstreamError(c, h.renderer)
		}
		return renderInternalError(c, h.renderer)
	}

	return c.Redirect(redirectURL, fiber.StatusSeeOther)
}
