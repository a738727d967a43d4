package businessflow

import (
	"context"
	"time"

	"boitata/models"
	"boitata/repository"
	"boitata/utils"
)

// MessageDeleter removes previously delivered messages on expiry
type MessageDeleter interface {
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendText(ctx context.Context, chatID int64, text string) (int, error)
}

// ExpiryResult reports what one expiry sweep did
type ExpiryResult struct {
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

// SubscriptionFlow retires subscription purchases whose access window ended
type SubscriptionFlow interface {
	// SweepExpired expires every due subscription purchase: deletes the
	// delivered messages, marks the purchase expired, and notifies the buyer.
	// Per-purchase failures are counted and the batch continues.
	SweepExpired(ctx context.Context) (*ExpiryResult, error)
	// ExpireOne applies the same path to a single purchase
	ExpireOne(ctx context.Context, purchaseID uint) error
}

// SubscriptionFlowImpl implements the subscription expiry flow
type SubscriptionFlowImpl struct {
	purchaseRepo repository.PurchaseRepository
	deleter      MessageDeleter
	audit        AuditEnqueuer
	batchLimit   int
	expiredNote  string
	now          func() time.Time
}

// NewSubscriptionFlow creates a new subscription flow instance
func NewSubscriptionFlow(
	purchaseRepo repository.PurchaseRepository,
	deleter MessageDeleter,
	audit AuditEnqueuer,
	batchLimit int,
) SubscriptionFlow {
	if batchLimit <= 0 {
		batchLimit = 100
	}
	return &SubscriptionFlowImpl{
		purchaseRepo: purchaseRepo,
		deleter:      deleter,
		audit:        audit,
		batchLimit:   batchLimit,
		expiredNote:  "Sua assinatura expirou. Renove para continuar com acesso ao conteúdo.",
		now:          utils.UTCNow,
	}
}

// SweepExpired expires every due subscription purchase
func (s *SubscriptionFlowImpl) SweepExpired(ctx context.Context) (*ExpiryResult, error) {
	due, err := s.purchaseRepo.ListExpiredSubscriptions(ctx, s.now(), s.batchLimit)
	if err != nil {
		return nil, NewBusinessError("EXPIRY_LIST_FAILED", "Failed to list expired subscriptions", err)
	}

	result := &ExpiryResult{}
	for _, purchase := range due {
		if err := s.expire(ctx, purchase); err != nil {
			result.Failed++
			continue
		}
		result.Expired++
	}
	return result, nil
}

// ExpireOne applies the expiry path to a single purchase
func (s *SubscriptionFlowImpl) ExpireOne(ctx context.Context, purchaseID uint) error {
	purchase, err := s.purchaseRepo.ByID(ctx, purchaseID)
	if err != nil {
		return err
	}
	if purchase == nil {
		return NewBusinessError("PURCHASE_NOT_FOUND", "Purchase not found", ErrPurchaseNotFound)
	}
	if purchase.ExpiresAt == nil || s.now().Before(*purchase.ExpiresAt) {
		return nil
	}
	return s.expire(ctx, purchase)
}

func (s *SubscriptionFlowImpl) expire(ctx context.Context, purchase *models.Purchase) error {
	// Best-effort message cleanup; a message already deleted by the buyer or
	// Telegram is not a failure
	for _, batch := range purchase.SentMessages {
		for _, messageID := range batch.MessageIDs {
			_ = s.deleter.DeleteMessage(ctx, batch.ChatID, messageID)
		}
	}

	moved, err := s.purchaseRepo.UpdateStatusIf(ctx, purchase.ID, models.PurchaseStatusCompleted, models.PurchaseStatusExpired)
	if err != nil {
		return err
	}
	if !moved {
		if _, err := s.purchaseRepo.UpdateStatusIf(ctx, purchase.ID, models.PurchaseStatusPaid, models.PurchaseStatusExpired); err != nil {
			return err
		}
	}

	if !utils.IsTrue(purchase.ExpiryNotified) {
		if _, err := s.deleter.SendText(ctx, purchase.BuyerChatID, s.expiredNote); err == nil {
			_ = s.purchaseRepo.MarkExpiryNotified(ctx, purchase.ID)
		}
	}

	submitAudit(ctx, s.audit, nil, models.AuditActionSubscriptionExpired, "purchase", &purchase.ID,
		map[string]string{"status": string(purchase.Status)},
		map[string]string{"status": string(models.PurchaseStatusExpired)}, true)
	return nil
}
