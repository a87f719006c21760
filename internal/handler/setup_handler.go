package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lti-bridge-api/internal/config"
	"github.com/noah-isme/lti-bridge-api/internal/dto"
	"github.com/noah-isme/lti-bridge-api/internal/service"
	"github.com/noah-isme/lti-bridge-api/internal/tokenstore"
	"github.com/noah-isme/lti-bridge-api/internal/web"
)

// SetupHandler serves the setup form and its submission.
type SetupHandler struct {
	cfg      config.Config
	setups   service.SetupService
	tokens   tokenstore.Store
	renderer *web.Renderer
	logger   zerolog.Logger
}

// NewSetupHandler creates a new setup handler.
func NewSetupHandler(cfg config.Config, setups service.SetupService, tokens tokenstore.Store, renderer *web.Renderer, logger zerolog.Logger) *SetupHandler {
	return &SetupHandler{
		cfg:      cfg,
		setups:   setups,
		tokens:   tokens,
		renderer: renderer,
		logger:   logger.With().Str("component", "setup_handler").Logger(),
	}
}

// Register attaches the setup endpoints.
func (h *SetupHandler) Register(router fiber.Router) {
	router.Get("/setup", h.showForm)
	router.Post("/setup", h.submit)
}

// resolvePayload accepts a setup-class token, or a dashboard-class token for
// owner-driven reconfiguration from the dashboard. consume controls whether a
// setup token is redeemed; dashboard tokens are always peeked.
func (h *SetupHandler) resolvePayload(c *fiber.Ctx, tokenID string, consume bool) (tokenstore.Payload, error) {
	payload, err := h.tokens.Peek(c.Context(), tokenID)
	if err != nil {
		return tokenstore.Payload{}, err
	}

	switch payload.Class {
	case tokenstore.ClassSetup:
		if consume {
			return h.tokens.Consume(c.Context(), tokenID)
		}
		return payload, nil
	case tokenstore.ClassDashboard:
		return payload, nil
	default:
		return tokenstore.Payload{}, tokenstore.ErrTokenInvalid
	}
}

func (h *SetupHandler) showForm(c *fiber.Ctx) error {
	tokenID := strings.TrimSpace(c.Query("token"))
	if tokenID == "" {
		return renderTokenInvalid(c, h.renderer)
	}

	payload, err := h.resolvePayload(c, tokenID, false)
	if err != nil {
		return renderTokenInvalid(c, h.renderer)
	}

	form, err := h.setups.FormData(c.Context(), payload)
	if err != nil {
		if errors.Is(err, service.ErrPermissionDenied) {
			return h.renderPermissionDenied(c)
		}
		logger := requestLogger(h.logger, c)
		logger.Error().Err(err).Str("placement_id", payload.PlacementID).Msg("failed to build setup form")
		return renderInternalError(c, h.renderer)
	}

	form.SuggestedName = h.renderer.Sanitize(form.SuggestedName)

	attached := make(map[uint]bool, len(form.AttachedAssistantIDs))
	for _, id := range form.AttachedAssistantIDs {
		attached[id] = true
	}

	return h.renderer.Render(c, fiber.StatusOK, "setup", web.SetupPage{
		Token:    tokenID,
		Form:     form,
		Attached: attached,
	})
}

func (h *SetupHandler) submit(c *fiber.Ctx) error {
	tokenID := strings.TrimSpace(c.FormValue("token"))
	if tokenID == "" {
		return renderTokenInvalid(c, h.renderer)
	}

	payload, err := h.resolvePayload(c, tokenID, true)
	if err != nil {
		return renderTokenInvalid(c, h.renderer)
	}

	form, err := parseSetupForm(c)
	if err != nil {
		return h.renderer.Render(c, fiber.StatusBadRequest, "message", web.MessagePage{
			Title:   "Invalid form",
			Heading: "Invalid form submission",
			Body:    "The submitted configuration was invalid. Please relaunch the activity and try again.",
		})
	}

	activity, err := h.setups.Submit(c.Context(), payload, form)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionDenied):
			return h.renderPermissionDenied(c)
		case isValidationError(err), errors.Is(err, service.ErrNotFound):
			return h.renderer.Render(c, fiber.StatusBadRequest, "message", web.MessagePage{
				Title:   "Invalid form",
				Heading: "Invalid form submission",
				Body:    "The submitted configuration was invalid. Please relaunch the activity and try again.",
			})
		default:
			logger := requestLogger(h.logger, c)
			logger.Error().Err(err).Str("placement_id", payload.PlacementID).Msg("setup submission failed")
			return renderInternalError(c, h.renderer)
		}
	}

	return h.renderer.Render(c, fiber.StatusOK, "message", web.MessagePage{
		Title:   "Activity configured",
		Heading: h.renderer.Sanitize(activity.Name),
		Body:    "The activity is configured. Relaunch it from your course to open the dashboard.",
	})
}

func (h *SetupHandler) renderPermissionDenied(c *fiber.Ctx) error {
	return h.renderer.Render(c, fiber.StatusForbidden, "message", web.MessagePage{
		Title:   "Not permitted",
		Heading: "Not permitted",
		Body:    "You are not permitted to change this activity's configuration.",
	})
}

func parseSetupForm(c *fiber.Ctx) (dto.SetupSubmission, error) {
	form := dto.SetupSubmission{
		Name:           strings.TrimSpace(c.FormValue("name")),
		ChatVisibility: c.FormValue("chat_visibility") == "true",
	}

	args := c.Request().PostArgs().PeekMulti("assistant_ids")
	for _, raw := range args {
		id, err := strconv.ParseUint(string(raw), 10, 32)
		if err != nil {
			return dto.SetupSubmission{}, err
		}
		form.AssistantIDs = append(form.AssistantIDs, uint(id))
	}

	return form, nil
}
