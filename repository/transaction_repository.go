package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boitata/models"
	"boitata/utils"

	"gorm.io/gorm"
)

// TransactionRepositoryImpl implements the TransactionRepository interface
type TransactionRepositoryImpl struct {
	*BaseRepository[models.Transaction, models.TransactionFilter]
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &TransactionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Transaction, models.TransactionFilter](db),
	}
}

// ByExternalID retrieves a transaction by the gateway's payment id
func (r *TransactionRepositoryImpl) ByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	db := r.getDB(ctx)

	var txn models.Transaction
	err := db.Where("external_id = ?", externalID).Last(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find transaction by external id %s: %w", externalID, err)
	}

	return &txn, nil
}

// ByPurchaseID retrieves the transaction owned by a purchase
func (r *TransactionRepositoryImpl) ByPurchaseID(ctx context.Context, purchaseID uint) (*models.Transaction, error) {
	db := r.getDB(ctx)

	var txn models.Transaction
	err := db.Where("purchase_id = ?", purchaseID).Last(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find transaction for purchase %d: %w", purchaseID, err)
	}

	return &txn, nil
}

// MarkPaidIfPending transitions pending->paid atomically. A false return means
// the transaction had already left pending (duplicate webhook delivery).
func (r *TransactionRepositoryImpl) MarkPaidIfPending(ctx context.Context, id uint, paidAt time.Time) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Updates(map[string]any{
			"status":     models.TransactionStatusPaid,
			"paid_at":    paidAt,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark transaction %d paid: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// MarkStatusIfPending transitions pending to the given terminal status
func (r *TransactionRepositoryImpl) MarkStatusIfPending(ctx context.Context, id uint, status models.TransactionStatus, reason *string) (bool, error) {
	db := r.getDB(ctx)

	updates := map[string]any{
		"status":     status,
		"updated_at": utils.UTCNow(),
	}
	if reason != nil {
		updates["failure_reason"] = *reason
	}

	res := db.Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark transaction %d %s: %w", id, status, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// UpdateStatus unconditionally updates the transaction status (refunds)
func (r *TransactionRepositoryImpl) UpdateStatus(ctx context.Context, id uint, status models.TransactionStatus) error {
	db := r.getDB(ctx)

	return db.Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"updated_at": utils.UTCNow(),
		}).Error
}

// ByFilter retrieves transactions based on filter criteria
func (r *TransactionRepositoryImpl) ByFilter(ctx context.Context, filter models.TransactionFilter, orderBy string, limit, offset int) ([]*models.Transaction, error) {
	db := r.getDB(ctx)

	var txns []*models.Transaction
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

	err := query.Find(&txns).Error
	if err != nil {
		return nil, err
	}

	return txns, nil
}

// Count returns the number of transactions matching the filter
func (r *TransactionRepositoryImpl) Count(ctx context.Context, filter models.TransactionFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db.Model(&models.Transaction{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *TransactionRepositoryImpl) applyFilter(db *gorm.DB, filter models.TransactionFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.PurchaseID != nil {
		db = db.Where("purchase_id = ?", *filter.PurchaseID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.ExternalID != nil {
		db = db.Where("external_id = ?", *filter.ExternalID)
	}
	return db
}
