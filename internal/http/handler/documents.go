package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"batiflow/internal/http/middleware"
	"batiflow/internal/model"
	"batiflow/internal/service"
)

type createDocumentRequest struct {
	ClientID   string          `json:"client_id"`
	Type       model.DocType   `json:"type"`
	LineItems  string          `json:"line_items"`
	TaxRate    decimal.Decimal `json:"tax_rate"`
	TotalGross decimal.Decimal `json:"total_gross"`
	TotalNet   decimal.Decimal `json:"total_net"`
}

// CreateDocument handles POST /documents: a new draft quote or invoice with
// an allocated number.
func CreateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createDocumentRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		if req.ClientID == "" {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "client_id is required")
		}

		doc, err := svc.Create(c.UserContext(), middleware.TenantFromCtx(c), service.CreateDocumentInput{
			ClientID:   req.ClientID,
			Type:       req.Type,
			LineItems:  req.LineItems,
			TaxRate:    req.TaxRate,
			GrossTotal: req.TotalGross,
			NetTotal:   req.TotalNet,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument handles GET /documents/:id.
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), middleware.TenantFromCtx(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(doc)
	}
}

// ListDocuments handles GET /documents with limit & offset.
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), middleware.TenantFromCtx(c), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// SendDocument handles POST /documents/:id/send: creates the signature
// session and emails the capability link to the client.
func SendDocument(svc service.SignatureService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		session, err := svc.SendForSignature(c.UserContext(), middleware.TenantFromCtx(c), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(session)
	}
}

type paymentLinkRequest struct {
	PaymentType    model.PaymentType `json:"payment_type"`
	DepositPercent *int              `json:"deposit_percent"`
}

// CreatePaymentLink handles POST /documents/:id/payment-link.
func CreatePaymentLink(svc service.PaymentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var req paymentLinkRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
			}
		}

		res, err := svc.CreateLink(c.UserContext(), middleware.TenantFromCtx(c), id, service.CreateLinkInput{
			Type:                   req.PaymentType,
			DepositPercentOverride: req.DepositPercent,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}
