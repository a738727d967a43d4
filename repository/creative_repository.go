package repository

import (
	"context"
	"fmt"

	"boitata/models"
	"boitata/utils"

	"gorm.io/gorm"
)

// CreativeRepositoryImpl implements the CreativeRepository interface
type CreativeRepositoryImpl struct {
	*BaseRepository[models.Creative, models.CreativeFilter]
}

// NewCreativeRepository creates a new creative repository
func NewCreativeRepository(db *gorm.DB) CreativeRepository {
	return &CreativeRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Creative, models.CreativeFilter](db),
	}
}

// ByIDs retrieves creatives by id list, in no particular order
func (r *CreativeRepositoryImpl) ByIDs(ctx context.Context, ids []int64) ([]*models.Creative, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db := r.getDB(ctx)

	var creatives []*models.Creative
	err := db.Where("id IN ?", ids).Find(&creatives).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load creatives: %w", err)
	}
	return creatives, nil
}

// IncrementTimesPosted bumps the usage counter in the jsonb stats blob
func (r *CreativeRepositoryImpl) IncrementTimesPosted(ctx context.Context, id uint) error {
	db := r.getDB(ctx)

	return db.Model(&models.Creative{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stats":      gorm.Expr(`jsonb_set(stats, '{times_posted}', (COALESCE((stats->>'times_posted')::bigint, 0) + 1)::text::jsonb)`),
			"updated_at": utils.UTCNow(),
		}).Error
}

// ByFilter retrieves creatives based on filter criteria
func (r *CreativeRepositoryImpl) ByFilter(ctx context.Context, filter models.CreativeFilter, orderBy string, limit, offset int) ([]*models.Creative, error) {
	db := r.getDB(ctx)

	var creatives []*models.Creative
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

	err := query.Find(&creatives).Error
	if err != nil {
		return nil, err
	}

	return creatives, nil
}

// Count returns the number of creatives matching the filter
func (r *CreativeRepositoryImpl) Count(ctx context.Context, filter models.CreativeFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db.Model(&models.Creative{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *CreativeRepositoryImpl) applyFilter(db *gorm.DB, filter models.CreativeFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Kind != nil {
		db = db.Where("kind = ?", *filter.Kind)
	}
	if filter.IsCompliant != nil {
		db = db.Where("is_compliant = ?", *filter.IsCompliant)
	}
	return db
}
