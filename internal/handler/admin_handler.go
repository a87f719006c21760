package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lti-bridge-api/internal/dto"
	"github.com/noah-isme/lti-bridge-api/internal/service"
	"github.com/noah-isme/lti-bridge-api/internal/utils"
)

// AdminHandler exposes administrative operations outside the launch path.
type AdminHandler struct {
	admin  service.AdminService
	logger zerolog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admin service.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		admin:  admin,
		logger: logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register attaches the admin endpoints.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Post("/activities/:id/transfer", h.transferOwnership)
}

func (h *AdminHandler) transferOwnership(c *fiber.Ctx) error {
	activityID, err := c.ParamsInt("id")
	if err != nil || activityID <= 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid activity id")
	}

	var req dto.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.admin.TransferOwnership(c.Context(), uint(activityID), req); err != nil {
		switch {
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		case errors.Is(err, service.ErrNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "activity not found")
		default:
			logger := requestLogger(h.logger, c)
			logger.Error().Err(err).Int("activity_id", activityID).Msg("ownership transfer failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "ownership transfer failed")
		}
	}

	return utils.SendSuccess(c, "ownership transferred", nil)
}
