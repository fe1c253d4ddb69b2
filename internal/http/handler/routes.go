package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"batiflow/internal/http/middleware"
	"batiflow/internal/service"
)

// HealthCheck reports dependency health; it fails when the database is
// unreachable.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// Liveness is the bare liveness probe.
func Liveness() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// RegisterRoutes attaches all HTTP routes.
//
// Three surfaces share the app:
//   - back-office routes under the tenant header (documents and their actions)
//   - public signing routes keyed by capability token, no tenant required
//   - the provider webhook, authenticated by its signature header
func RegisterRoutes(
	app *fiber.App,
	db *sql.DB,
	docSvc service.DocumentService,
	sigSvc service.SignatureService,
	paySvc service.PaymentService,
) {
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs/*", swagger.HandlerDefault)

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", Liveness())

	documents := app.Group("/documents", middleware.Tenant())
	documents.Get("/", ListDocuments(docSvc))
	documents.Post("/", CreateDocument(docSvc))
	documents.Get("/:id", GetDocument(docSvc))
	documents.Post("/:id/send", SendDocument(sigSvc))
	documents.Post("/:id/payment-link", CreatePaymentLink(paySvc))

	signatures := app.Group("/signatures")
	signatures.Get("/:token", GetSignatureSession(sigSvc))
	signatures.Post("/:token/otp", RequestSignatureOTP(sigSvc))
	signatures.Post("/:token/otp/verify", VerifySignatureOTP(sigSvc))
	signatures.Post("/:token/sign", SignDocument(sigSvc))

	app.Post("/webhooks/stripe", StripeWebhook(paySvc))
}
