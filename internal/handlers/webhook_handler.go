package handlers

import (
	"crypto/subtle"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/thousandways/scitore-api/internal/dto"
	"github.com/thousandways/scitore-api/internal/services"
)

type WebhookHandler struct {
	entitlements *services.EntitlementService
	expectedAuth string
}

// NewWebhookHandler checks the Authorization header against expectedAuth
// when it is non-empty.
func NewWebhookHandler(entitlements *services.EntitlementService, expectedAuth string) *WebhookHandler {
	return &WebhookHandler{
		entitlements: entitlements,
		expectedAuth: expectedAuth,
	}
}

func (h *WebhookHandler) HandleRevenueCat(c *fiber.Ctx) error {
	if h.expectedAuth != "" {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if subtle.ConstantTimeCompare([]byte(authHeader), []byte(h.expectedAuth)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
		}
	}

	event, err := services.NormalizeRevenueCatPayload(c.Body())
	if err != nil {
		slog.Warn("rejected webhook payload", "error", err)
		return respondError(c, err, "revenuecat_webhook")
	}

	result, err := h.entitlements.Apply(c.UserContext(), event)
	if err != nil {
		slog.Warn("webhook not applied", "event_type", event.Type, "event_id", event.ID, "error", err)
		return respondError(c, err, "revenuecat_webhook")
	}

	slog.Info("webhook processed",
		"event_type", event.Type,
		"event_id", event.ID,
		"user_id", result.User.ID.String(),
		"is_premium", result.User.IsPremium,
		"duplicate", result.Duplicate,
	)
	return c.JSON(dto.WebhookAck{Success: true, Duplicate: result.Duplicate})
}
