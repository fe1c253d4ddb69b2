package handler

import (
	"github.com/gofiber/fiber/v2"

	"batiflow/internal/service"
)

// signOrigin tags audit entries written from the public signing routes.
const signOrigin = "public_link"

// GetSignatureSession handles GET /signatures/:token. The token is treated as
// an opaque capability: whoever holds the link may view the document. Tokens
// arrive mangled by some messaging apps; the service recovers the canonical
// form.
func GetSignatureSession(svc service.SignatureService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := svc.Get(c.UserContext(), c.Params("token"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(view)
	}
}

// RequestSignatureOTP handles POST /signatures/:token/otp.
func RequestSignatureOTP(svc service.SignatureService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.RequestOTP(c.UserContext(), c.Params("token")); err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "sent"})
	}
}

type verifyOTPRequest struct {
	Code string `json:"code"`
}

// VerifySignatureOTP handles POST /signatures/:token/otp/verify.
func VerifySignatureOTP(svc service.SignatureService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req verifyOTPRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if req.Code == "" {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "code is required")
		}

		if err := svc.VerifyOTP(c.UserContext(), c.Params("token"), req.Code, signOrigin); err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"verified": true})
	}
}

type signRequest struct {
	SignerName    string `json:"signer_name"`
	SignatureData string `json:"signature_data"`
}

// SignDocument handles POST /signatures/:token/sign.
func SignDocument(svc service.SignatureService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req signRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if req.SignatureData == "" {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "signature_data is required")
		}

		session, err := svc.Sign(c.UserContext(), c.Params("token"), service.SignInput{
			SignerName:       req.SignerName,
			SignatureDataURL: req.SignatureData,
			Origin:           signOrigin,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(session)
	}
}
