package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"boitata/models"
	"boitata/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseRepositoryImpl implements the PurchaseRepository interface
type PurchaseRepositoryImpl struct {
	*BaseRepository[models.Purchase, models.PurchaseFilter]
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &PurchaseRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Purchase, models.PurchaseFilter](db),
	}
}

// ByUUID retrieves a purchase by UUID
func (r *PurchaseRepositoryImpl) ByUUID(ctx context.Context, id string) (*models.Purchase, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	purchases, err := r.ByFilter(ctx, models.PurchaseFilter{UUID: &parsed}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(purchases) == 0 {
		return nil, nil
	}
	return purchases[0], nil
}

// UpdateStatusIf transitions the purchase status with a conditional update
func (r *PurchaseRepositoryImpl) UpdateStatusIf(ctx context.Context, id uint, from, to models.PurchaseStatus) (bool, error) {
	db := r.getDB(ctx)

	updates := map[string]any{
		"status":     to,
		"updated_at": utils.UTCNow(),
	}
	if to == models.PurchaseStatusPaid {
		updates["paid_at"] = utils.UTCNow()
	}

	res := db.Model(&models.Purchase{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update purchase status: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// AppendSentMessages appends a delivered message batch to the ledger.
// The ledger is append-only; entries are never rewritten.
func (r *PurchaseRepositoryImpl) AppendSentMessages(ctx context.Context, id uint, batch models.SentMessageBatch) error {
	db := r.getDB(ctx)

	encoded, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to encode sent message batch: %w", err)
	}

	return db.Model(&models.Purchase{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"sent_messages": gorm.Expr("sent_messages || ?::jsonb", string(encoded)),
			"updated_at":    utils.UTCNow(),
		}).Error
}

// MarkDelivered stamps delivery completion and optional subscription expiry
func (r *PurchaseRepositoryImpl) MarkDelivered(ctx context.Context, id uint, deliveredAt time.Time, expiresAt *time.Time) error {
	db := r.getDB(ctx)

	updates := map[string]any{
		"delivered_at": deliveredAt,
		"updated_at":   utils.UTCNow(),
	}
	if expiresAt != nil {
		updates["expires_at"] = *expiresAt
	}

	return db.Model(&models.Purchase{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ListExpiredSubscriptions finds delivered purchases whose access window has
// lapsed and which have not been expired yet
func (r *PurchaseRepositoryImpl) ListExpiredSubscriptions(ctx context.Context, now time.Time, limit int) ([]*models.Purchase, error) {
	db := r.getDB(ctx)

	var purchases []*models.Purchase
	query := db.Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.PurchaseStatusCompleted, now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired subscriptions: %w", err)
	}

	return purchases, nil
}

// MarkExpiryNotified flags the purchase so the buyer is warned only once
func (r *PurchaseRepositoryImpl) MarkExpiryNotified(ctx context.Context, id uint) error {
	db := r.getDB(ctx)

	return db.Model(&models.Purchase{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"expiry_notified": true,
			"updated_at":      utils.UTCNow(),
		}).Error
}

// ByFilter retrieves purchases based on filter criteria
func (r *PurchaseRepositoryImpl) ByFilter(ctx context.Context, filter models.PurchaseFilter, orderBy string, limit, offset int) ([]*models.Purchase, error) {
	db := r.getDB(ctx)

	var purchases []*models.Purchase
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&purchases).Error
	if err != nil {
		return nil, err
	}

	return purchases, nil
}

// Count returns the number of purchases matching the filter
func (r *PurchaseRepositoryImpl) Count(ctx context.Context, filter models.PurchaseFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db.Model(&models.Purchase{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *PurchaseRepositoryImpl) applyFilter(db *gorm.DB, filter models.PurchaseFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.BuyerID != nil {
		db = db.Where("buyer_id = ?", *filter.BuyerID)
	}
	if filter.ModelID != nil {
		db = db.Where("model_id = ?", *filter.ModelID)
	}
	if filter.ProductID != nil {
		db = db.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.ExpiresBefore != nil {
		db = db.Where("expires_at <= ?", *filter.ExpiresBefore)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
