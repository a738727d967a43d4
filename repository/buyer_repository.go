package repository

import (
	"context"
	"errors"
	"fmt"

	"boitata/models"
	"boitata/utils"

	"gorm.io/gorm"
)

// BuyerRepositoryImpl implements the BuyerRepository interface
type BuyerRepositoryImpl struct {
	db *gorm.DB
}

// NewBuyerRepository creates a new buyer repository
func NewBuyerRepository(db *gorm.DB) BuyerRepository {
	return &BuyerRepositoryImpl{db: db}
}

func (r *BuyerRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// ByID retrieves a buyer by ID
func (r *BuyerRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Buyer, error) {
	db := r.getDB(ctx)

	var buyer models.Buyer
	err := db.Last(&buyer, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find buyer %d: %w", id, err)
	}

	return &buyer, nil
}

// ByTelegramUserID retrieves a buyer by Telegram user id
func (r *BuyerRepositoryImpl) ByTelegramUserID(ctx context.Context, telegramUserID int64) (*models.Buyer, error) {
	db := r.getDB(ctx)

	var buyer models.Buyer
	err := db.Where("telegram_user_id = ?", telegramUserID).Last(&buyer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find buyer by telegram user id %d: %w", telegramUserID, err)
	}

	return &buyer, nil
}

// GetOrCreate finds the buyer by Telegram user id, creating a record on first
// purchase. The cached display name is refreshed on every call.
func (r *BuyerRepositoryImpl) GetOrCreate(ctx context.Context, telegramUserID int64, displayName string) (*models.Buyer, error) {
	db := r.getDB(ctx)

	buyer, err := r.ByTelegramUserID(ctx, telegramUserID)
	if err != nil {
		return nil, err
	}
	if buyer != nil {
		if displayName != "" && buyer.DisplayName != displayName {
			buyer.DisplayName = displayName
			if err := db.Model(&models.Buyer{}).
				Where("id = ?", buyer.ID).
				Updates(map[string]any{"display_name": displayName, "updated_at": utils.UTCNow()}).Error; err != nil {
				return nil, fmt.Errorf("failed to refresh buyer name: %w", err)
			}
		}
		return buyer, nil
	}

	buyer = &models.Buyer{
		TelegramUserID: telegramUserID,
		DisplayName:    displayName,
	}
	if err := db.Create(buyer).Error; err != nil {
		return nil, fmt.Errorf("failed to create buyer: %w", err)
	}
	return buyer, nil
}

// IncrementStats bumps the buyer's aggregate purchase counters
func (r *BuyerRepositoryImpl) IncrementStats(ctx context.Context, id uint, amountCents int64) error {
	db := r.getDB(ctx)

	return db.Model(&models.Buyer{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"purchase_count":    gorm.Expr("purchase_count + 1"),
			"total_spent_cents": gorm.Expr("total_spent_cents + ?", amountCents),
			"updated_at":        utils.UTCNow(),
		}).Error
}
