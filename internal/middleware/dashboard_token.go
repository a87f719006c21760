package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/lti-bridge-api/internal/tokenstore"
	"github.com/noah-isme/lti-bridge-api/internal/utils"
)

// Locals keys set by DashboardToken.
const (
	LocalActivityID       = "activity_id"
	LocalOperatorIdentity = "operator_identity"
)

// DashboardToken guards the dashboard JSON sub-API: the request must carry a
// live dashboard-class token in the token query parameter. The token is
// peeked, not consumed, so one dashboard session can poll repeatedly until it
// expires.
func DashboardToken(tokens tokenstore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenID := strings.TrimSpace(c.Query("token"))
		if tokenID == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "token missing, relaunch from your course")
		}

		payload, err := tokens.Peek(c.Context(), tokenID)
		if err != nil || payload.Class != tokenstore.ClassDashboard {
			return utils.SendError(c, fiber.StatusUnauthorized, "token invalid or expired, relaunch from your course")
		}

		c.Locals(LocalActivityID, payload.ActivityID)
		c.Locals(LocalOperatorIdentity, payload.OperatorIdentity)

		return c.Next()
	}
}
