package businessflow

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"boitata/app/dto"
	"boitata/app/services"
	"boitata/models"
	"boitata/queue"
	"boitata/repository"
	"boitata/utils"
)

// DeliveryEnqueuer submits delivery jobs to the durable delivery queue
type DeliveryEnqueuer interface {
	EnqueueDelivery(ctx context.Context, payload queue.DeliveryJobPayload) error
}

// VerifyArkamaSignature checks the HMAC-SHA256 hex signature computed over the
// raw webhook body. Comparison is constant-time.
func VerifyArkamaSignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// PurchaseFlow handles checkout creation and the payment state machine
type PurchaseFlow interface {
	CreateCheckout(ctx context.Context, req *dto.CreateCheckoutRequest) (*dto.CreateCheckoutResponse, error)
	// HandleWebhook applies one gateway event. Duplicate deliveries of a
	// confirmation return a response with Duplicate=true and mutate nothing.
	HandleWebhook(ctx context.Context, event *dto.ArkamaWebhookEvent) (*dto.WebhookAckResponse, error)
	// CheckStatus polls the gateway and applies the same transitions as the
	// webhook path
	CheckStatus(ctx context.Context, purchaseUUID string) (*dto.PurchaseStatusResponse, error)
}

// PurchaseFlowImpl implements the purchase business flow
type PurchaseFlowImpl struct {
	purchaseRepo repository.PurchaseRepository
	txnRepo      repository.TransactionRepository
	buyerRepo    repository.BuyerRepository
	modelRepo    repository.ModelProfileRepository
	gateway      services.PixGateway
	delivery     DeliveryEnqueuer
	audit        AuditEnqueuer
	now          func() time.Time
}

// NewPurchaseFlow creates a new purchase flow instance
func NewPurchaseFlow(
	purchaseRepo repository.PurchaseRepository,
	txnRepo repository.TransactionRepository,
	buyerRepo repository.BuyerRepository,
	modelRepo repository.ModelProfileRepository,
	gateway services.PixGateway,
	delivery DeliveryEnqueuer,
	audit AuditEnqueuer,
) PurchaseFlow {
	return &PurchaseFlowImpl{
		purchaseRepo: purchaseRepo,
		txnRepo:      txnRepo,
		buyerRepo:    buyerRepo,
		modelRepo:    modelRepo,
		gateway:      gateway,
		delivery:     delivery,
		audit:        audit,
		now:          utils.UTCNow,
	}
}

// CreateCheckout opens a pending purchase and provisions its PIX charge
func (s *PurchaseFlowImpl) CreateCheckout(ctx context.Context, req *dto.CreateCheckoutRequest) (*dto.CreateCheckoutResponse, error) {
	model, err := s.modelRepo.ByID(ctx, req.ModelID)
	if err != nil {
		return nil, NewBusinessError("MODEL_LOOKUP_FAILED", "Failed to lookup model profile", err)
	}
	if model == nil {
		return nil, NewBusinessError("MODEL_NOT_FOUND", "Model profile not found", ErrModelNotFound)
	}

	product := model.ProductByID(req.ProductID)
	if product == nil {
		return nil, NewBusinessError("PRODUCT_NOT_FOUND", "Product not found", ErrProductNotFound)
	}
	if !utils.IsTrue(product.IsActive) {
		return nil, NewBusinessError("PRODUCT_INACTIVE", "Product is inactive", ErrProductInactive)
	}

	buyer, err := s.buyerRepo.GetOrCreate(ctx, req.BuyerTelegramID, req.BuyerName)
	if err != nil {
		return nil, NewBusinessError("BUYER_LOOKUP_FAILED", "Failed to resolve buyer", err)
	}

	purchase := &models.Purchase{
		BuyerID:     buyer.ID,
		BuyerChatID: req.BuyerChatID,
		BuyerName:   req.BuyerName,
		ModelID:     model.ID,
		ProductID:   product.ID,
		Snapshot:    product.Snapshot(),
		AmountCents: product.PriceCents,
		Currency:    product.Currency,
		Status:      models.PurchaseStatusPending,
	}
	if err := s.purchaseRepo.Save(ctx, purchase); err != nil {
		return nil, NewBusinessError("PURCHASE_CREATE_FAILED", "Failed to create purchase", err)
	}

	charge, err := s.gateway.CreatePixCharge(ctx, services.CreateChargeInput{
		ReferenceID: purchase.UUID.String(),
		AmountCents: purchase.AmountCents,
		Currency:    purchase.Currency,
		Description: fmt.Sprintf("%s - %s", model.DisplayName, product.Name),
		BuyerName:   req.BuyerName,
	})
	if err != nil {
		return nil, NewBusinessError("CHARGE_CREATE_FAILED", "Failed to provision PIX charge", err)
	}

	txn := &models.Transaction{
		PurchaseID:   purchase.ID,
		AmountCents:  purchase.AmountCents,
		Currency:     purchase.Currency,
		PixKey:       charge.PixKey,
		PixQRCode:    charge.PixQRCode,
		PixCopyPaste: charge.PixCopyPaste,
		PixExpiresAt: charge.ExpiresAt,
		ExternalID:   charge.ExternalID,
		Status:       models.TransactionStatusPending,
	}
	if err := s.txnRepo.Save(ctx, txn); err != nil {
		return nil, NewBusinessError("TRANSACTION_CREATE_FAILED", "Failed to create transaction", err)
	}

	submitAudit(ctx, s.audit, &req.BuyerTelegramID, models.AuditActionPurchaseCreated, "purchase", &purchase.ID, nil, purchase, true)

	return &dto.CreateCheckoutResponse{
		PurchaseUUID: purchase.UUID.String(),
		Status:       string(purchase.Status),
		AmountCents:  purchase.AmountCents,
		Currency:     purchase.Currency,
		PixKey:       charge.PixKey,
		PixQRCode:    charge.PixQRCode,
		PixCopyPaste: charge.PixCopyPaste,
		PixExpiresAt: charge.ExpiresAt,
		CreatedAt:    purchase.CreatedAt.Format(time.RFC3339),
	}, nil
}

// HandleWebhook applies one gateway event to the transaction and purchase it
// references. Lookup misses are hard errors, never swallowed.
func (s *PurchaseFlowImpl) HandleWebhook(ctx context.Context, event *dto.ArkamaWebhookEvent) (*dto.WebhookAckResponse, error) {
	txn, err := s.txnRepo.ByExternalID(ctx, event.Payment.ID)
	if err != nil {
		return nil, NewBusinessError("TRANSACTION_LOOKUP_FAILED", "Failed to lookup transaction", err)
	}
	if txn == nil {
		return nil, NewBusinessError("TRANSACTION_NOT_FOUND", "Transaction not found for payment id", ErrTransactionNotFound)
	}

	purchase, err := s.purchaseRepo.ByID(ctx, txn.PurchaseID)
	if err != nil {
		return nil, NewBusinessError("PURCHASE_LOOKUP_FAILED", "Failed to lookup purchase", err)
	}
	if purchase == nil {
		return nil, NewBusinessError("PURCHASE_NOT_FOUND", "Purchase not found for transaction", ErrPurchaseNotFound)
	}

	switch event.Event {
	case dto.WebhookEventPaymentConfirmed:
		paidAt := s.now()
		if event.Payment.PaidAt != nil {
			paidAt = *event.Payment.PaidAt
		}
		return s.confirmPayment(ctx, txn, purchase, paidAt)

	case dto.WebhookEventPaymentFailed:
		return s.closePayment(ctx, txn, purchase,
			models.TransactionStatusFailed, models.PurchaseStatusFailed,
			models.AuditActionPaymentFailed, event.Payment.Reason)

	case dto.WebhookEventPaymentExpired:
		return s.closePayment(ctx, txn, purchase,
			models.TransactionStatusExpired, models.PurchaseStatusExpired,
			models.AuditActionPaymentExpired, event.Payment.Reason)

	case dto.WebhookEventPaymentRefunded:
		return s.refundPayment(ctx, txn, purchase)

	default:
		return nil, NewBusinessError("UNKNOWN_EVENT", fmt.Sprintf("Unrecognized webhook event %q", event.Event), ErrUnknownEvent)
	}
}

// confirmPayment performs the pending->paid transition exactly once. The CAS
// on the transaction row is the idempotency barrier: only the winner
// increments buyer stats and enqueues delivery.
func (s *PurchaseFlowImpl) confirmPayment(ctx context.Context, txn *models.Transaction, purchase *models.Purchase, paidAt time.Time) (*dto.WebhookAckResponse, error) {
	won, err := s.txnRepo.MarkPaidIfPending(ctx, txn.ID, paidAt)
	if err != nil {
		return nil, NewBusinessError("TRANSACTION_UPDATE_FAILED", "Failed to mark transaction paid", err)
	}
	if !won {
		return &dto.WebhookAckResponse{
			Message:        "already processed",
			PurchaseUUID:   purchase.UUID.String(),
			PurchaseStatus: string(purchase.Status),
			Duplicate:      true,
		}, nil
	}

	if _, err := s.purchaseRepo.UpdateStatusIf(ctx, purchase.ID, models.PurchaseStatusPending, models.PurchaseStatusPaid); err != nil {
		return nil, NewBusinessError("PURCHASE_UPDATE_FAILED", "Failed to mark purchase paid", err)
	}

	if err := s.buyerRepo.IncrementStats(ctx, purchase.BuyerID, purchase.AmountCents); err != nil {
		return nil, NewBusinessError("BUYER_STATS_FAILED", "Failed to increment buyer stats", err)
	}

	if err := s.delivery.EnqueueDelivery(ctx, queue.DeliveryJobPayload{PurchaseID: purchase.ID}); err != nil {
		return nil, NewBusinessError("DELIVERY_ENQUEUE_FAILED", "Failed to enqueue content delivery", err)
	}

	submitAudit(ctx, s.audit, nil, models.AuditActionPaymentConfirmed, "purchase", &purchase.ID,
		map[string]string{"status": string(models.PurchaseStatusPending)},
		map[string]string{"status": string(models.PurchaseStatusPaid)}, true)

	return &dto.WebhookAckResponse{
		Message:        "payment confirmed",
		PurchaseUUID:   purchase.UUID.String(),
		PurchaseStatus: string(models.PurchaseStatusPaid),
	}, nil
}

// closePayment applies a failed/expired event. Expiry may also take down an
// already-paid purchase (unpaid PIX timeout vs subscription end).
func (s *PurchaseFlowImpl) closePayment(ctx context.Context, txn *models.Transaction, purchase *models.Purchase, txnStatus models.TransactionStatus, purchaseStatus models.PurchaseStatus, auditAction string, reason *string) (*dto.WebhookAckResponse, error) {
	won, err := s.txnRepo.MarkStatusIfPending(ctx, txn.ID, txnStatus, reason)
	if err != nil {
		return nil, NewBusinessError("TRANSACTION_UPDATE_FAILED", "Failed to update transaction", err)
	}
	if !won {
		return &dto.WebhookAckResponse{
			Message:        "already processed",
			PurchaseUUID:   purchase.UUID.String(),
			PurchaseStatus: string(purchase.Status),
			Duplicate:      true,
		}, nil
	}

	moved, err := s.purchaseRepo.UpdateStatusIf(ctx, purchase.ID, models.PurchaseStatusPending, purchaseStatus)
	if err != nil {
		return nil, NewBusinessError("PURCHASE_UPDATE_FAILED", "Failed to update purchase", err)
	}
	if !moved && purchaseStatus == models.PurchaseStatusExpired {
		// pending|paid -> expired
		if _, err := s.purchaseRepo.UpdateStatusIf(ctx, purchase.ID, models.PurchaseStatusPaid, models.PurchaseStatusExpired); err != nil {
			return nil, NewBusinessError("PURCHASE_UPDATE_FAILED", "Failed to expire purchase", err)
		}
	}

	submitAudit(ctx, s.audit, nil, auditAction, "purchase", &purchase.ID,
		map[string]string{"status": string(purchase.Status)},
		map[string]string{"status": string(purchaseStatus)}, true)

	return &dto.WebhookAckResponse{
		Message:        "payment " + string(txnStatus),
		PurchaseUUID:   purchase.UUID.String(),
		PurchaseStatus: string(purchaseStatus),
	}, nil
}

// refundPayment reverses a paid purchase. The purchase CAS is the idempotency
// barrier: refunds apply from paid only, so an unpaid or already-refunded
// purchase makes this a no-op.
func (s *PurchaseFlowImpl) refundPayment(ctx context.Context, txn *models.Transaction, purchase *models.Purchase) (*dto.WebhookAckResponse, error) {
	moved, err := s.purchaseRepo.UpdateStatusIf(ctx, purchase.ID, models.PurchaseStatusPaid, models.PurchaseStatusRefunded)
	if err != nil {
		return nil, NewBusinessError("PURCHASE_UPDATE_FAILED", "Failed to refund purchase", err)
	}
	if !moved {
		return &dto.WebhookAckResponse{
			Message:        "already processed",
			PurchaseUUID:   purchase.UUID.String(),
			PurchaseStatus: string(purchase.Status),
			Duplicate:      true,
		}, nil
	}

	if err := s.txnRepo.UpdateStatus(ctx, txn.ID, models.TransactionStatusRefunded); err != nil {
		return nil, NewBusinessError("TRANSACTION_UPDATE_FAILED", "Failed to refund transaction", err)
	}

	submitAudit(ctx, s.audit, nil, models.AuditActionPaymentRefunded, "purchase", &purchase.ID,
		map[string]string{"status": string(models.PurchaseStatusPaid)},
		map[string]string{"status": string(models.PurchaseStatusRefunded)}, true)

	return &dto.WebhookAckResponse{
		Message:        "payment refunded",
		PurchaseUUID:   purchase.UUID.String(),
		PurchaseStatus: string(models.PurchaseStatusRefunded),
	}, nil
}

// CheckStatus polls the gateway for the purchase's charge and applies the
// resulting transition, mirroring the webhook path
func (s *PurchaseFlowImpl) CheckStatus(ctx context.Context, purchaseUUID string) (*dto.PurchaseStatusResponse, error) {
	purchase, err := s.purchaseRepo.ByUUID(ctx, purchaseUUID)
	if err != nil {
		return nil, NewBusinessError("PURCHASE_LOOKUP_FAILED", "Failed to lookup purchase", err)
	}
	if purchase == nil {
		return nil, NewBusinessError("PURCHASE_NOT_FOUND", "Purchase not found", ErrPurchaseNotFound)
	}

	txn, err := s.txnRepo.ByPurchaseID(ctx, purchase.ID)
	if err != nil {
		return nil, NewBusinessError("TRANSACTION_LOOKUP_FAILED", "Failed to lookup transaction", err)
	}
	if txn == nil {
		return nil, NewBusinessError("TRANSACTION_NOT_FOUND", "Transaction not found for purchase", ErrTransactionNotFound)
	}

	// Pending transactions may still confirm, fail or expire; paid ones may
	// come back refunded. Other states are terminal and never re-polled.
	if txn.IsPending() || txn.Status == models.TransactionStatusPaid {
		status, err := s.gateway.GetPaymentStatus(ctx, txn.ExternalID)
		if err != nil {
			return nil, NewBusinessError("GATEWAY_STATUS_FAILED", "Failed to query payment gateway", err)
		}

		switch status.Status {
		case "paid", "confirmed":
			paidAt := s.now()
			if status.PaidAt != nil {
				paidAt = *status.PaidAt
			}
			if _, err := s.confirmPayment(ctx, txn, purchase, paidAt); err != nil {
				return nil, err
			}
		case "failed":
			if _, err := s.closePayment(ctx, txn, purchase,
				models.TransactionStatusFailed, models.PurchaseStatusFailed,
				models.AuditActionPaymentFailed, nil); err != nil {
				return nil, err
			}
		case "expired":
			if _, err := s.closePayment(ctx, txn, purchase,
				models.TransactionStatusExpired, models.PurchaseStatusExpired,
				models.AuditActionPaymentExpired, nil); err != nil {
				return nil, err
			}
		case "refunded":
			if _, err := s.refundPayment(ctx, txn, purchase); err != nil {
				return nil, err
			}
		}
	}

	// Re-read for the post-transition view
	purchase, err = s.purchaseRepo.ByID(ctx, purchase.ID)
	if err != nil || purchase == nil {
		return nil, NewBusinessError("PURCHASE_LOOKUP_FAILED", "Failed to reload purchase", err)
	}

	return &dto.PurchaseStatusResponse{
		PurchaseUUID: purchase.UUID.String(),
		Status:       string(purchase.Status),
		PaidAt:       purchase.PaidAt,
		DeliveredAt:  purchase.DeliveredAt,
		ExpiresAt:    purchase.ExpiresAt,
	}, nil
}
