package handlers

import (
	"errors"
	"log"

	"boitata/app/dto"
	businessflow "boitata/business_flow"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// PurchaseHandlerInterface defines the contract for purchase handlers
type PurchaseHandlerInterface interface {
	CreateCheckout(c fiber.Ctx) error
	CheckStatus(c fiber.Ctx) error
}

// PurchaseHandler handles checkout creation and status polling
type PurchaseHandler struct {
	purchaseFlow businessflow.PurchaseFlow
	validator    *validator.Validate
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(purchaseFlow businessflow.PurchaseFlow) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseFlow: purchaseFlow,
		validator:    validator.New(),
	}
}

// CreateCheckout opens a pending purchase and returns the PIX payment material
func (h *PurchaseHandler) CreateCheckout(c fiber.Ctx) error {
	var req dto.CreateCheckoutRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return errorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	ctx, cancel := createRequestContext(0)
	defer cancel()

	result, err := h.purchaseFlow.CreateCheckout(ctx, &req)
	if err != nil {
		if errors.Is(err, businessflow.ErrModelNotFound) || errors.Is(err, businessflow.ErrProductNotFound) {
			return errorResponse(c, fiber.StatusNotFound, "Model or product not found", "PRODUCT_NOT_FOUND", nil)
		}
		if errors.Is(err, businessflow.ErrProductInactive) {
			return errorResponse(c, fiber.StatusBadRequest, "Product is not for sale", "PRODUCT_INACTIVE", nil)
		}

		log.Println("checkout creation failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Checkout creation failed", "CHECKOUT_FAILED", nil)
	}

	return successResponse(c, fiber.StatusCreated, "Checkout created", result)
}

// CheckStatus polls the gateway and returns the purchase's current state
func (h *PurchaseHandler) CheckStatus(c fiber.Ctx) error {
	purchaseUUID := c.Params("uuid")
	if purchaseUUID == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Purchase UUID is required", "MISSING_UUID", nil)
	}

	ctx, cancel := createRequestContext(0)
	defer cancel()

	result, err := h.purchaseFlow.CheckStatus(ctx, purchaseUUID)
	if err != nil {
		if businessflow.IsNotFound(err) {
			return errorResponse(c, fiber.StatusNotFound, "Purchase not found", "PURCHASE_NOT_FOUND", nil)
		}

		log.Println("purchase status check failed", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Status check failed", "STATUS_CHECK_FAILED", nil)
	}

	return successResponse(c, fiber.StatusOK, "Purchase status", result)
}
