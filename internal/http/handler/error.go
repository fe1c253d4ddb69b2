package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"batiflow/internal/http/middleware"
	"batiflow/internal/payment"
	"batiflow/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "NOT_FOUND", "ALREADY_SIGNED")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps the known service errors onto the error envelope.
// Anything unrecognized becomes an opaque 500.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrClientNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, service.ErrIDRequired),
		errors.Is(err, service.ErrInvalidDocType),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPaymentType),
		errors.Is(err, service.ErrInvalidSignature):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, service.ErrNumberConflict):
		return writeError(c, fiber.StatusConflict, "NUMBER_CONFLICT", err.Error())
	case errors.Is(err, service.ErrSessionConflict):
		return writeError(c, fiber.StatusConflict, "SESSION_CONFLICT", err.Error())
	case errors.Is(err, service.ErrAlreadySigned):
		return writeError(c, fiber.StatusConflict, "ALREADY_SIGNED", err.Error())
	case errors.Is(err, service.ErrOTPNotVerified):
		return writeError(c, fiber.StatusForbidden, "OTP_REQUIRED", err.Error())
	case errors.Is(err, service.ErrInvalidOrExpiredCode):
		return writeError(c, fiber.StatusUnprocessableEntity, "OTP_INVALID", err.Error())
	case errors.Is(err, service.ErrCodeAlreadyUsed):
		return writeError(c, fiber.StatusConflict, "OTP_ALREADY_USED", err.Error())
	case errors.Is(err, service.ErrTooManyAttempts):
		return writeError(c, fiber.StatusTooManyRequests, "OTP_TOO_MANY_ATTEMPTS", err.Error())
	case errors.Is(err, service.ErrMissingCustomerContact):
		return writeError(c, fiber.StatusUnprocessableEntity, "MISSING_CUSTOMER_CONTACT", err.Error())
	case errors.Is(err, service.ErrPaymentDisabled):
		return writeError(c, fiber.StatusUnprocessableEntity, "PAYMENT_DISABLED", err.Error())
	case errors.Is(err, service.ErrNothingDue):
		return writeError(c, fiber.StatusUnprocessableEntity, "NOTHING_DUE", err.Error())
	case errors.Is(err, payment.ErrNotConfigured):
		return writeError(c, fiber.StatusUnprocessableEntity, "PAYMENT_NOT_CONFIGURED", err.Error())
	case errors.Is(err, service.ErrPaymentProvider):
		return writeError(c, fiber.StatusBadGateway, "PROVIDER_ERROR", "payment provider error")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", "authentication required")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
