package middleware

import (
	"github.com/gofiber/fiber/v2"
)

const (
	// TenantHeader identifies the calling tenant on back-office routes.
	TenantHeader = "X-Tenant-ID"
	// TenantLocalKey stores the tenant ID in Fiber's context locals.
	TenantLocalKey = "tenant_id"
)

// Tenant requires the tenant header on every route it guards. Public signing
// and webhook routes are registered outside this middleware: their callers
// are not tenants.
func Tenant() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(TenantHeader)
		if id == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "tenant header required")
		}
		c.Locals(TenantLocalKey, id)
		return c.Next()
	}
}

// TenantFromCtx returns the tenant ID stored by Tenant.
func TenantFromCtx(c *fiber.Ctx) string {
	if v, ok := c.Locals(TenantLocalKey).(string); ok {
		return v
	}
	return ""
}
