package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/lti-bridge-api/internal/config"
	"github.com/noah-isme/lti-bridge-api/internal/lti"
	"github.com/noah-isme/lti-bridge-api/internal/observability"
	"github.com/noah-isme/lti-bridge-api/internal/repository"
	"github.com/noah-isme/lti-bridge-api/internal/service"
	"github.com/noah-isme/lti-bridge-api/internal/tokenstore"
	"github.com/noah-isme/lti-bridge-api/internal/web"
)

// Launch surfaces, used as metric labels.
const (
	surfaceGlobal   = "global"
	surfaceTenant   = "tenant"
	surfaceResource = "resource"
)

// LaunchHandler terminates the one-shot LMS POSTs.
type LaunchHandler struct {
	cfg              config.Config
	launches         service.LaunchService
	assistants       repository.AssistantRepository
	globalResolver   service.SecretResolver
	tenantResolver   service.SecretResolver
	resourceResolver service.SecretResolver
	renderer         *web.Renderer
	logger           zerolog.Logger
}

// NewLaunchHandler creates a new launch handler.
func NewLaunchHandler(
	cfg config.Config,
	launches service.LaunchService,
	assistants repository.AssistantRepository,
	globalResolver, tenantResolver, resourceResolver service.SecretResolver,
	renderer *web.Renderer,
	logger zerolog.Logger,
) *LaunchHandler {
	return &LaunchHandler{
		cfg:              cfg,
		launches:         launches,
		assistants:       assistants,
		globalResolver:   globalResolver,
		tenantResolver:   tenantResolver,
		resourceResolver: resourceResolver,
		renderer:         renderer,
		logger:           logger.With().Str("component", "launch_handler").Logger(),
	}
}

// Register attaches the launch endpoints.
func (h *LaunchHandler) Register(router fiber.Router) {
	router.Post("/launch", h.globalLaunch)
	router.Post("/tenants/launch", h.tenantLaunch)
	router.Post("/assistants/launch", h.assistantLaunch)
}

func (h *LaunchHandler) globalLaunch(c *fiber.Ctx) error {
	return h.activityLaunch(c, surfaceGlobal, h.globalResolver)
}

func (h *LaunchHandler) tenantLaunch(c *fiber.Ctx) error {
	return h.activityLaunch(c, surfaceTenant, h.tenantResolver)
}

// activityLaunch serves the two per-activity surfaces; they differ only in
// how the shared secret is resolved.
func (h *LaunchHandler) activityLaunch(c *fiber.Ctx, surface string, resolver service.SecretResolver) error {
	req, ok, err := h.authenticate(c, surface, resolver)
	if err != nil {
		return err
	}
	if !ok {
		return renderAuthFailed(c, h.renderer)
	}

	outcome, err := h.launches.Decide(c.Context(), req)
	if err != nil {
		logger := requestLogger(h.logger, c)
		logger.Error().Err(err).Str("placement_id", req.PlacementID).Str("role", req.Role).Msg("launch decision failed")
		if errors.Is(err, service.ErrUpstreamUnavailable) {
			return renderUpstreamError(c, h.renderer)
		}
		return renderInternalError(c, h.renderer)
	}

	observability.Launches().WithLabelValues(surface, outcome.Kind).Inc()

	return h.applyOutcome(c, outcome)
}

func (h *LaunchHandler) assistantLaunch(c *fiber.Ctx) error {
	req, ok, err := h.authenticate(c, surfaceResource, h.resourceResolver)
	if err != nil {
		return err
	}
	if !ok {
		return renderAuthFailed(c, h.renderer)
	}

	// The consumer key is the published assistant name; the resolver
	// already proved it exists.
	assistant, err := h.assistants.GetByPublishedName(c.Context(), req.ConsumerKey)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return renderAuthFailed(c, h.renderer)
		}
		return renderInternalError(c, h.renderer)
	}

	outcome, err := h.launches.ResourceHandoff(c.Context(), req, assistant)
	if err != nil {
		logger := requestLogger(h.logger, c)
		logger.Error().Err(err).Str("placement_id", req.PlacementID).Msg("resource handoff failed")
		if errors.Is(err, service.ErrUpstreamUnavailable) {
			return renderUpstreamError(c, h.renderer)
		}
		return renderInternalError(c, h.renderer)
	}

	observability.Launches().WithLabelValues(surfaceResource, outcome.Kind).Inc()

	return c.Redirect(outcome.RedirectURL, fiber.StatusSeeOther)
}

// authenticate parses and signature-checks the inbound POST. The bool result
// reports whether the launch may proceed; the error is reserved for render
// failures.
func (h *LaunchHandler) authenticate(c *fiber.Ctx, surface string, resolver service.SecretResolver) (lti.LaunchRequest, bool, error) {
	params := formParams(c)

	req, err := lti.ParseLaunchRequest(params, fiber.MethodPost, launchURL(c, h.cfg))
	if err != nil {
		observability.LaunchRejects().WithLabelValues(surface, "malformed").Inc()
		logger := requestLogger(h.logger, c)
		logger.Warn().Err(err).Str("surface", surface).Msg("malformed launch request")
		return lti.LaunchRequest{}, false, h.renderer.Render(c, fiber.StatusBadRequest, "message", web.MessagePage{
			Title:   "Launch rejected",
			Heading: "Invalid launch request",
			Body:    "The launch request was missing required fields. Please contact your course administrator.",
		})
	}

	secret, err := resolver.ResolveSecret(c.Context(), req.ConsumerKey)
	if err != nil {
		observability.LaunchRejects().WithLabelValues(surface, "authentication").Inc()
		h.launches.RecordFailure(c.Context(), req.PlacementID, req.Role, "authentication")
		logger := requestLogger(h.logger, c)
		logger.Warn().Str("surface", surface).Str("placement_id", req.PlacementID).Str("role", req.Role).Msg("credential resolution failed")
		return lti.LaunchRequest{}, false, nil
	}

	if !lti.ValidateSignature(req.Params, req.Method, req.URL, secret) {
		observability.LaunchRejects().WithLabelValues(surface, "authentication").Inc()
		h.launches.RecordFailure(c.Context(), req.PlacementID, req.Role, "authentication")
		logger := requestLogger(h.logger, c)
		logger.Warn().Str("surface", surface).Str("placement_id", req.PlacementID).Str("role", req.Role).Msg("signature validation failed")
		return lti.LaunchRequest{}, false, nil
	}

	return req, true, nil
}

// applyOutcome maps a state machine outcome to its HTTP effect: a redirect
// into a tokened page, a provider handoff, or a terminal notice.
func (h *LaunchHandler) applyOutcome(c *fiber.Ctx, outcome service.Outcome) error {
	switch outcome.Kind {
	case service.OutcomeSetupForm:
		observability.TokensIssued().WithLabelValues(tokenstore.ClassSetup).Inc()
		return c.Redirect(pagePath(c, h.cfg, "setup", outcome.Token), fiber.StatusSeeOther)

	case service.OutcomeDashboard:
		observability.TokensIssued().WithLabelValues(tokenstore.ClassDashboard).Inc()
		return c.Redirect(pagePath(c, h.cfg, "dashboard", outcome.Token), fiber.StatusSeeOther)

	case service.OutcomeConsentPage:
		observability.TokensIssued().WithLabelValues(tokenstore.ClassConsent).Inc()
		return c.Redirect(pagePath(c, h.cfg, "consent", outcome.Token), fiber.StatusSeeOther)

	case service.OutcomeHandoff:
		return c.Redirect(outcome.RedirectURL, fiber.StatusSeeOther)

	case service.OutcomeNotConfigured:
		return h.renderer.Render(c, fiber.StatusOK, "message", web.MessagePage{
			Title:   "Not ready yet",
			Heading: "This activity is not ready yet",
			Body:    "Your instructor has not finished configuring this activity. Please check back later.",
		})

	case service.OutcomeContactAdmin:
		return h.renderer.Render(c, fiber.StatusOK, "message", web.MessagePage{
			Title:   "Account required",
			Heading: "No platform account found",
			Body:    "We could not match your LMS account to a platform account. Please contact your administrator to get access.",
		})

	case service.OutcomeDisabledNotice:
		return h.renderer.Render(c, fiber.StatusOK, "message", web.MessagePage{
			Title:   "Activity disabled",
			Heading: h.renderer.Sanitize(outcome.ActivityName),
			Body:    "This activity has been disabled. Re-enable it from the platform before launching again.",
		})

	default:
		return renderInternalError(c, h.renderer)
	}
}
