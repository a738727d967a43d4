package businessflow

import (
	"context"
	"fmt"
	"time"

	"boitata/models"
	"boitata/repository"
	"boitata/telegram"
	"boitata/utils"
)

// ContentSender is the transport surface content delivery needs
type ContentSender interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	SendTextWithButton(ctx context.Context, chatID int64, text, label, url string) (int, error)
	SendPhotoBatch(ctx context.Context, chatID int64, fileIDs []string) ([]int, error)
}

// DeliveryMessages holds the buyer-facing copy around the content drop
type DeliveryMessages struct {
	Intro         string
	Confirmation  string
	FollowUpLabel string
	FollowUpURL   string
}

// DefaultDeliveryMessages returns the stock pt-BR delivery copy
func DefaultDeliveryMessages() DeliveryMessages {
	return DeliveryMessages{
		Intro:        "Pagamento confirmado! Seu conteúdo está chegando...",
		Confirmation: "Pronto! Aproveite. Qualquer problema, fale com o suporte.",
	}
}

// DeliveryFlow pushes purchased content to the buyer exactly once per purchase
type DeliveryFlow interface {
	// DeliverContent resolves the purchase's product and sends its content
	// set in media-group batches, recording every sent message id in the
	// purchase ledger. Data-integrity misses abort without a retryable error.
	DeliverContent(ctx context.Context, purchaseID uint) error
}

// DeliveryFlowImpl implements the delivery flow
type DeliveryFlowImpl struct {
	purchaseRepo repository.PurchaseRepository
	modelRepo    repository.ModelProfileRepository
	sender       ContentSender
	audit        AuditEnqueuer
	messages     DeliveryMessages
	now          func() time.Time
}

// NewDeliveryFlow creates a new delivery flow instance
func NewDeliveryFlow(
	purchaseRepo repository.PurchaseRepository,
	modelRepo repository.ModelProfileRepository,
	sender ContentSender,
	audit AuditEnqueuer,
	messages DeliveryMessages,
) DeliveryFlow {
	return &DeliveryFlowImpl{
		purchaseRepo: purchaseRepo,
		modelRepo:    modelRepo,
		sender:       sender,
		audit:        audit,
		messages:     messages,
		now:          utils.UTCNow,
	}
}

// DeliverContent pushes the purchased content set to the buyer's chat
func (s *DeliveryFlowImpl) DeliverContent(ctx context.Context, purchaseID uint) error {
	purchase, err := s.purchaseRepo.ByID(ctx, purchaseID)
	if err != nil {
		return err
	}
	if purchase == nil {
		return NewBusinessError("PURCHASE_NOT_FOUND", "Purchase not found", ErrPurchaseNotFound)
	}
	if purchase.DeliveredAt != nil {
		// At-most-once: a retried job after a partial failure must not resend
		return NewBusinessError("ALREADY_DELIVERED", "Content already delivered", ErrAlreadyDelivered)
	}

	model, err := s.modelRepo.ByID(ctx, purchase.ModelID)
	if err != nil {
		return err
	}
	if model == nil {
		return NewBusinessError("MODEL_NOT_FOUND", "Model profile not found for purchase", ErrModelNotFound)
	}

	product := model.ProductByID(purchase.ProductID)
	if product == nil {
		return NewBusinessError("PRODUCT_NOT_FOUND", "Product not found for purchase", ErrProductNotFound)
	}
	if len(product.ContentFileIDs) == 0 {
		return NewBusinessError("NOTHING_TO_DELIVER", "Product has no content file ids", ErrNothingToDeliver)
	}

	chatID := purchase.BuyerChatID
	sent := make([]int, 0, len(product.ContentFileIDs)+2)

	introID, err := s.sender.SendText(ctx, chatID, s.messages.Intro)
	if err != nil {
		return fmt.Errorf("failed to send delivery intro: %w", err)
	}
	sent = append(sent, introID)

	for _, chunk := range utils.Chunk([]string(product.ContentFileIDs), telegram.MediaGroupLimit) {
		ids, err := s.sender.SendPhotoBatch(ctx, chatID, chunk)
		if err != nil {
			return fmt.Errorf("failed to send content batch: %w", err)
		}
		sent = append(sent, ids...)
	}

	confirmID, err := s.sendConfirmation(ctx, chatID)
	if err != nil {
		return fmt.Errorf("failed to send delivery confirmation: %w", err)
	}
	sent = append(sent, confirmID)

	now := s.now()
	batch := models.SentMessageBatch{ChatID: chatID, MessageIDs: sent, SentAt: now}
	if err := s.purchaseRepo.AppendSentMessages(ctx, purchase.ID, batch); err != nil {
		return fmt.Errorf("failed to record sent messages: %w", err)
	}

	var expiresAt *time.Time
	if purchase.Snapshot.Type == models.ProductTypeSubscription && purchase.Snapshot.SubscriptionDays > 0 {
		exp := now.AddDate(0, 0, purchase.Snapshot.SubscriptionDays)
		expiresAt = &exp
	}

	if err := s.purchaseRepo.MarkDelivered(ctx, purchase.ID, now, expiresAt); err != nil {
		return fmt.Errorf("failed to mark purchase delivered: %w", err)
	}
	if _, err := s.purchaseRepo.UpdateStatusIf(ctx, purchase.ID, models.PurchaseStatusPaid, models.PurchaseStatusCompleted); err != nil {
		return fmt.Errorf("failed to complete purchase: %w", err)
	}

	submitAudit(ctx, s.audit, nil, models.AuditActionContentDelivered, "purchase", &purchase.ID, nil, batch, true)
	return nil
}

func (s *DeliveryFlowImpl) sendConfirmation(ctx context.Context, chatID int64) (int, error) {
	if s.messages.FollowUpURL != "" {
		label := s.messages.FollowUpLabel
		if label == "" {
			label = s.messages.FollowUpURL
		}
		return s.sender.SendTextWithButton(ctx, chatID, s.messages.Confirmation, label, s.messages.FollowUpURL)
	}
	return s.sender.SendText(ctx, chatID, s.messages.Confirmation)
}
