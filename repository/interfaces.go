// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"boitata/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
}

// CampaignRepository defines operations for campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	ListActive(ctx context.Context) ([]*models.Campaign, error)
	// UpdateStatusIf transitions the status only when the current status still
	// matches from; returns false when another writer got there first.
	UpdateStatusIf(ctx context.Context, id uint, from, to models.CampaignStatus) (bool, error)
	IncrementPerformance(ctx context.Context, id uint, delta models.CampaignPerformance) error
}

// CreativeRepository defines operations for creatives
type CreativeRepository interface {
	Repository[models.Creative, models.CreativeFilter]
	ByIDs(ctx context.Context, ids []int64) ([]*models.Creative, error)
	IncrementTimesPosted(ctx context.Context, id uint) error
}

// RotationStateRepository defines operations for campaign rotation state
type RotationStateRepository interface {
	ByCampaignID(ctx context.Context, campaignID uint) (*models.RotationState, error)
	Save(ctx context.Context, state *models.RotationState) error
	// SaveIfVersion persists the state only when the stored Version still equals
	// state.Version, bumping it by one. A false return means a concurrent tick
	// advanced the rotation first and the caller must discard its work.
	SaveIfVersion(ctx context.Context, state *models.RotationState) (bool, error)
}

// TelegramGroupRepository defines operations for Telegram groups
type TelegramGroupRepository interface {
	Repository[models.TelegramGroup, models.TelegramGroupFilter]
	ByChatID(ctx context.Context, chatID int64) (*models.TelegramGroup, error)
	ListActive(ctx context.Context) ([]*models.TelegramGroup, error)
	// Upsert inserts or updates by chat id, preserving DiscoveredAt and
	// IsAutoDiscovered from the existing record on update. Returns whether a
	// new record was created.
	Upsert(ctx context.Context, group *models.TelegramGroup) (bool, error)
	// Deactivate soft-removes the group: clears permissions, sets inactive.
	Deactivate(ctx context.Context, chatID int64) error
}

// ModelProfileRepository defines operations for seller profiles and their products
type ModelProfileRepository interface {
	ByID(ctx context.Context, id uint) (*models.ModelProfile, error)
	Save(ctx context.Context, profile *models.ModelProfile) error
	ProductByID(ctx context.Context, productID uint) (*models.ModelProduct, error)
	SaveProduct(ctx context.Context, product *models.ModelProduct) error
}

// BuyerRepository defines operations for buyers
type BuyerRepository interface {
	ByID(ctx context.Context, id uint) (*models.Buyer, error)
	ByTelegramUserID(ctx context.Context, telegramUserID int64) (*models.Buyer, error)
	GetOrCreate(ctx context.Context, telegramUserID int64, displayName string) (*models.Buyer, error)
	// IncrementStats bumps the aggregate purchase counters on payment confirmation.
	IncrementStats(ctx context.Context, id uint, amountCents int64) error
}

// PurchaseRepository defines operations for purchases
type PurchaseRepository interface {
	Repository[models.Purchase, models.PurchaseFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Purchase, error)
	// UpdateStatusIf transitions only when the current status still matches from.
	UpdateStatusIf(ctx context.Context, id uint, from, to models.PurchaseStatus) (bool, error)
	AppendSentMessages(ctx context.Context, id uint, batch models.SentMessageBatch) error
	MarkDelivered(ctx context.Context, id uint, deliveredAt time.Time, expiresAt *time.Time) error
	ListExpiredSubscriptions(ctx context.Context, now time.Time, limit int) ([]*models.Purchase, error)
	MarkExpiryNotified(ctx context.Context, id uint) error
}

// TransactionRepository defines operations for payment transactions
type TransactionRepository interface {
	Repository[models.Transaction, models.TransactionFilter]
	ByExternalID(ctx context.Context, externalID string) (*models.Transaction, error)
	ByPurchaseID(ctx context.Context, purchaseID uint) (*models.Transaction, error)
	// MarkPaidIfPending transitions pending->paid atomically; false means the
	// transaction had already left pending (duplicate webhook, manual check).
	MarkPaidIfPending(ctx context.Context, id uint, paidAt time.Time) (bool, error)
	// MarkStatusIfPending transitions pending->status with an optional failure reason.
	MarkStatusIfPending(ctx context.Context, id uint, status models.TransactionStatus, reason *string) (bool, error)
	UpdateStatus(ctx context.Context, id uint, status models.TransactionStatus) error
}

// PostRecordRepository defines operations for the post history
type PostRecordRepository interface {
	Repository[models.PostRecord, models.PostRecordFilter]
	ListUnaggregated(ctx context.Context, limit int) ([]*models.PostRecord, error)
	MarkAggregated(ctx context.Context, ids []uint) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByEntity(ctx context.Context, entityType string, entityID uint, limit, offset int) ([]*models.AuditLog, error)
}
