package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lti-bridge-api/internal/repository"
	"github.com/noah-isme/lti-bridge-api/internal/service"
	"github.com/noah-isme/lti-bridge-api/internal/tokenstore"
	"github.com/noah-isme/lti-bridge-api/internal/utils"
	"github.com/noah-isme/lti-bridge-api/internal/web"
)

// DashboardHandler serves the dashboard shell page and the JSON sub-API.
type DashboardHandler struct {
	dashboards service.DashboardService
	activities repository.ActivityRepository
	tokens     tokenstore.Store
	renderer   *web.Renderer
	logger     zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(dashboards service.DashboardService, activities repository.ActivityRepository, tokens tokenstore.Store, renderer *web.Renderer, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboards: dashboards,
		activities: activities,
		tokens:     tokens,
		renderer:   renderer,
		logger:     logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// RegisterPage attaches the server-rendered dashboard shell.
func (h *DashboardHandler) RegisterPage(router fiber.Router) {
	router.Get("/dashboard", h.showPage)
}

// RegisterAPI attaches the JSON sub-API; the router wraps it with the
// dashboard token guard.
func (h *DashboardHandler) RegisterAPI(router fiber.Router) {
	router.Get("/summary", h.summary)
	router.Get("/members", h.members)
	router.Get("/conversations", h.conversations)
	router.Get("/conversations/:id", h.transcript)
}

func (h *DashboardHandler) showPage(c *fiber.Ctx) error {
	tokenID := strings.TrimSpace(c.Query("token"))
	if tokenID == "" {
		return renderTokenInvalid(c, h.renderer)
	}

	payload, err := h.tokens.Peek(c.Context(), tokenID)
	if err != nil || payload.Class != tokenstore.ClassDashboard {
		return renderTokenInvalid(c, h.renderer)
	}

	activity, err := h.activities.GetByID(c.Context(), payload.ActivityID)
	if err != nil {
		logger := requestLogger(h.logger, c)
		logger.Error().Err(err).Str("placement_id", payload.PlacementID).Msg("failed to load activity for dashboard")
		return renderInternalError(c, h.renderer)
	}

	// Ownership is re-derived server-side; it only controls whether the
	// reconfigure affordance renders.
	isOwner := payload.OperatorIdentity != "" && payload.OperatorIdentity == activity.OwnerIdentity

	return h.renderer.Render(c, fiber.StatusOK, "dashboard", web.DashboardPage{
		Token:        tokenID,
		ActivityName: h.renderer.Sanitize(activity.Name),
		IsOwner:      isOwner,
	})
}

func (h *DashboardHandler) summary(c *fiber.Ctx) error {
	summary, err := h.dashboards.Summary(c.Context(), activityIDFromContext(c))
	if err != nil {
		return h.sendAPIError(c, err, "failed to load summary")
	}

	return utils.SendSuccess(c, "summary retrieved", summary)
}

func (h *DashboardHandler) members(c *fiber.Ctx) error {
	page, perPage, err := pagination(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination")
	}

	members, err := h.dashboards.Members(c.Context(), activityIDFromContext(c), page, perPage)
	if err != nil {
		return h.sendAPIError(c, err, "failed to load members")
	}

	return utils.SendSuccess(c, "members retrieved", members)
}

func (h *DashboardHandler) conversations(c *fiber.Ctx) error {
	page, perPage, err := pagination(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid pagination")
	}

	conversations, err := h.dashboards.Conversations(c.Context(), activityIDFromContext(c), page, perPage)
	if err != nil {
		return h.sendAPIError(c, err, "failed to load conversations")
	}

	return utils.SendSuccess(c, "conversations retrieved", conversations)
}

func (h *DashboardHandler) transcript(c *fiber.Ctx) error {
	conversationID, err := c.ParamsInt("id")
	if err != nil || conversationID <= 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid conversation id")
	}

	transcript, err := h.dashboards.Transcript(c.Context(), activityIDFromContext(c), uint(conversationID))
	if err != nil {
		return h.sendAPIError(c, err, "failed to load transcript")
	}

	return utils.SendSuccess(c, "transcript retrieved", transcript)
}

func (h *DashboardHandler) sendAPIError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		return utils.SendError(c, fiber.StatusForbidden, "not permitted")
	case errors.Is(err, service.ErrNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, service.ErrUpstreamUnavailable):
		return utils.SendError(c, fiber.StatusBadGateway, "conversation store unavailable")
	default:
		logger := requestLogger(h.logger, c)
		logger.Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}

func pagination(c *fiber.Ctx) (int, int, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return 0, 0, err
	}
	perPage, err := parseQueryInt(c, "per_page")
	if err != nil {
		return 0, 0, err
	}
	return page, perPage, nil
}
