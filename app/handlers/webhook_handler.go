package handlers

import (
	"encoding/json"
	"log"

	"boitata/app/dto"
	"boitata/app/middleware"
	businessflow "boitata/business_flow"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// WebhookHandlerInterface defines the contract for payment webhook handlers
type WebhookHandlerInterface interface {
	HandleArkamaWebhook(c fiber.Ctx) error
	ListAcceptedEvents(c fiber.Ctx) error
}

// WebhookHandler handles inbound payment gateway webhooks
type WebhookHandler struct {
	purchaseFlow businessflow.PurchaseFlow
	validator    *validator.Validate

	// Shared HMAC secret. Empty means verification is skipped with a warning
	// unless strict mode refuses to serve at all.
	secret string
	strict bool
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(purchaseFlow businessflow.PurchaseFlow, secret string, strict bool) *WebhookHandler {
	return &WebhookHandler{
		purchaseFlow: purchaseFlow,
		validator:    validator.New(),
		secret:       secret,
		strict:       strict,
	}
}

// HandleArkamaWebhook verifies and applies one payment gateway event.
// Responses: 200 success/no-op, 401 bad signature, 404 unknown
// transaction/purchase, 400 unrecognized event, 500 otherwise.
func (h *WebhookHandler) HandleArkamaWebhook(c fiber.Ctx) error {
	raw := c.Body()
	signature := c.Get("x-arkama-signature")

	if h.secret == "" {
		if h.strict {
			log.Println("webhook rejected: no secret configured in strict mode")
			return errorResponse(c, fiber.StatusUnauthorized, "Webhook secret not configured", "WEBHOOK_SECRET_MISSING", nil)
		}
		log.Println("warning: webhook signature verification skipped, no secret configured")
	} else if !businessflow.VerifyArkamaSignature(h.secret, raw, signature) {
		middleware.CountWebhookEvent("rejected")
		return errorResponse(c, fiber.StatusUnauthorized, "Invalid webhook signature", "INVALID_SIGNATURE", nil)
	}

	var event dto.ArkamaWebhookEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid webhook body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&event); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	ctx, cancel := createRequestContext(0)
	defer cancel()

	result, err := h.purchaseFlow.HandleWebhook(ctx, &event)
	if err != nil {
		if businessflow.IsNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Transaction or purchase not found", "PAYMENT_NOT_FOUND", nil)
		}
		var bizErr *businessflow.BusinessError
		if ok := asBusinessError(err, &bizErr); ok && bizErr.Code == "UNKNOWN_EVENT" {
			return errorResponse(c, fiber.StatusBadRequest, "Unrecognized event", "UNKNOWN_EVENT", nil)
		}

		log.Println("webhook processing failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Webhook processing failed", "WEBHOOK_FAILED", nil)
	}

	if result.Duplicate {
		middleware.CountWebhookEvent("duplicate")
	} else {
		middleware.CountWebhookEvent("applied")
	}
	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// ListAcceptedEvents is the GET health check on the webhook path
func (h *WebhookHandler) ListAcceptedEvents(c fiber.Ctx) error {
	return successResponse(c, fiber.StatusOK, "Accepted webhook events", fiber.Map{
		"events": dto.AcceptedWebhookEvents(),
	})
}
