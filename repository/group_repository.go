package repository

import (
	"context"
	"errors"
	"fmt"

	"boitata/models"
	"boitata/utils"

	"gorm.io/gorm"
)

// TelegramGroupRepositoryImpl implements the TelegramGroupRepository interface
type TelegramGroupRepositoryImpl struct {
	*BaseRepository[models.TelegramGroup, models.TelegramGroupFilter]
}

// NewTelegramGroupRepository creates a new telegram group repository
func NewTelegramGroupRepository(db *gorm.DB) TelegramGroupRepository {
	return &TelegramGroupRepositoryImpl{
		BaseRepository: NewBaseRepository[models.TelegramGroup, models.TelegramGroupFilter](db),
	}
}

// ByChatID retrieves a group by its external Telegram chat id
func (r *TelegramGroupRepositoryImpl) ByChatID(ctx context.Context, chatID int64) (*models.TelegramGroup, error) {
	db := r.getDB(ctx)

	var group models.TelegramGroup
	err := db.Where("chat_id = ?", chatID).Last(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find group by chat id %d: %w", chatID, err)
	}

	return &group, nil
}

// ListActive retrieves all active groups
func (r *TelegramGroupRepositoryImpl) ListActive(ctx context.Context) ([]*models.TelegramGroup, error) {
	active := true
	return r.ByFilter(ctx, models.TelegramGroupFilter{IsActive: &active}, "chat_id ASC", 0, 0)
}

// Upsert inserts or updates a group by chat id. Discovery metadata of the
// existing record survives the update; only a fresh insert sets it.
func (r *TelegramGroupRepositoryImpl) Upsert(ctx context.Context, group *models.TelegramGroup) (bool, error) {
	db := r.getDB(ctx)

	existing, err := r.ByChatID(ctx, group.ChatID)
	if err != nil {
		return false, err
	}

	if existing == nil {
		if group.DiscoveredAt.IsZero() {
			group.DiscoveredAt = utils.UTCNow()
		}
		if err := db.Create(group).Error; err != nil {
			return false, fmt.Errorf("failed to insert group %d: %w", group.ChatID, err)
		}
		return true, nil
	}

	group.ID = existing.ID
	group.DiscoveredAt = existing.DiscoveredAt
	group.IsAutoDiscovered = existing.IsAutoDiscovered
	group.CreatedAt = existing.CreatedAt
	if err := db.Save(group).Error; err != nil {
		return false, fmt.Errorf("failed to update group %d: %w", group.ChatID, err)
	}
	return false, nil
}

// Deactivate marks the group inactive and clears the permission snapshot.
// The record itself is kept.
func (r *TelegramGroupRepositoryImpl) Deactivate(ctx context.Context, chatID int64) error {
	db := r.getDB(ctx)

	return db.Model(&models.TelegramGroup{}).
		Where("chat_id = ?", chatID).
		Updates(map[string]any{
			"is_active":   false,
			"permissions": models.GroupPermissions{},
			"updated_at":  utils.UTCNow(),
		}).Error
}

// ByFilter retrieves groups based on filter criteria
func (r *TelegramGroupRepositoryImpl) ByFilter(ctx context.Context, filter models.TelegramGroupFilter, orderBy string, limit, offset int) ([]*models.TelegramGroup, error) {
	db := r.getDB(ctx)

	var groups []*models.TelegramGroup
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

	err := query.Find(&groups).Error
	if err != nil {
		return nil, err
	}

	return groups, nil
}

// Count returns the number of groups matching the filter
func (r *TelegramGroupRepositoryImpl) Count(ctx context.Context, filter models.TelegramGroupFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db.Model(&models.TelegramGroup{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *TelegramGroupRepositoryImpl) applyFilter(db *gorm.DB, filter models.TelegramGroupFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.ChatID != nil {
		db = db.Where("chat_id = ?", *filter.ChatID)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Type != nil {
		db = db.Where("type = ?", *filter.Type)
	}
	return db
}
