package repository

import (
	"context"
	"fmt"

	"boitata/models"

	"gorm.io/gorm"
)

// PostRecordRepositoryImpl implements the PostRecordRepository interface
type PostRecordRepositoryImpl struct {
	*BaseRepository[models.PostRecord, models.PostRecordFilter]
}

// NewPostRecordRepository creates a new post record repository
func NewPostRecordRepository(db *gorm.DB) PostRecordRepository {
	return &PostRecordRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PostRecord, models.PostRecordFilter](db),
	}
}

// ListUnaggregated retrieves post records the analytics job has not folded
// into campaign counters yet
func (r *PostRecordRepositoryImpl) ListUnaggregated(ctx context.Context, limit int) ([]*models.PostRecord, error) {
	db := r.getDB(ctx)

	var records []*models.PostRecord
	query := db.Where("aggregated = ?", false).Order("posted_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err := query.Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unaggregated post records: %w", err)
	}

	return records, nil
}

// MarkAggregated flags the records as folded into campaign performance
func (r *PostRecordRepositoryImpl) MarkAggregated(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	db := r.getDB(ctx)

	return db.Model(&models.PostRecord{}).
		Where("id IN ?", ids).
		Update("aggregated", true).Error
}

// ByFilter retrieves post records based on filter criteria
func (r *PostRecordRepositoryImpl) ByFilter(ctx context.Context, filter models.PostRecordFilter, orderBy string, limit, offset int) ([]*models.PostRecord, error) {
	db := r.getDB(ctx)

	var records []*models.PostRecord
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

	err := query.Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

// Count returns the number of post records matching the filter
func (r *PostRecordRepositoryImpl) Count(ctx context.Context, filter models.PostRecordFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db.Model(&models.PostRecord{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *PostRecordRepositoryImpl) applyFilter(db *gorm.DB, filter models.PostRecordFilter) *gorm.DB {
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.GroupChatID != nil {
		db = db.Where("group_chat_id = ?", *filter.GroupChatID)
	}
	if filter.CreativeID != nil {
		db = db.Where("creative_id = ?", *filter.CreativeID)
	}
	if filter.Aggregated != nil {
		db = db.Where("aggregated = ?", *filter.Aggregated)
	}
	if filter.PostedAfter != nil {
		db = db.Where("posted_at >= ?", *filter.PostedAfter)
	}
	if filter.PostedBefore != nil {
		db = db.Where("posted_at <= ?", *filter.PostedBefore)
	}
	return db
}
