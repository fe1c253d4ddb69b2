package handler

import (
	"github.com/gofiber/fiber/v2"

	"batiflow/internal/service"
)

// stripeSignatureHeader carries the webhook signature to verify against the
// endpoint secret.
const stripeSignatureHeader = "Stripe-Signature"

// StripeWebhook handles POST /webhooks/stripe. The raw body is passed through
// untouched: signature verification runs over the exact bytes Stripe sent.
func StripeWebhook(svc service.PaymentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sig := c.Get(stripeSignatureHeader)
		if sig == "" {
			return writeError(c, fiber.StatusBadRequest, "MISSING_SIGNATURE", "signature header required")
		}

		if err := svc.HandleWebhook(c.UserContext(), c.Body(), sig); err != nil {
			// A non-2xx makes Stripe redeliver; settlement is idempotent so
			// replays are safe.
			return writeError(c, fiber.StatusBadRequest, "WEBHOOK_ERROR", "event not processed")
		}
		return c.JSON(fiber.Map{"received": true})
	}
}
