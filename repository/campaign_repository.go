package repository

import (
	"context"
	"fmt"

	"boitata/models"
	"boitata/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CampaignRepositoryImpl implements the CampaignRepository interface
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db),
	}
}

// ByUUID retrieves a campaign by UUID
func (r *CampaignRepositoryImpl) ByUUID(ctx context.Context, id string) (*models.Campaign, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	campaigns, err := r.ByFilter(ctx, models.CampaignFilter{UUID: &parsed}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(campaigns) == 0 {
		return nil, nil
	}
	return campaigns[0], nil
}

// ListActive retrieves all campaigns currently in active status
func (r *CampaignRepositoryImpl) ListActive(ctx context.Context) ([]*models.Campaign, error) {
	status := models.CampaignStatusActive
	return r.ByFilter(ctx, models.CampaignFilter{Status: &status}, "priority DESC, id ASC", 0, 0)
}

// UpdateStatusIf transitions the campaign status with a conditional update
func (r *CampaignRepositoryImpl) UpdateStatusIf(ctx context.Context, id uint, from, to models.CampaignStatus) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.Campaign{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update campaign status: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// IncrementPerformance adds the delta counters to the campaign's jsonb performance blob
func (r *CampaignRepositoryImpl) IncrementPerformance(ctx context.Context, id uint, delta models.CampaignPerformance) error {
	db := r.getDB(ctx)

	var campaign models.Campaign
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&campaign, id).Error
	if err != nil {
		return fmt.Errorf("failed to load campaign %d for performance update: %w", id, err)
	}

	perf := campaign.Performance
	perf.Posts += delta.Posts
	perf.Views += delta.Views
	perf.Clicks += delta.Clicks
	perf.RevenueCents += delta.RevenueCents
	if perf.Views > 0 {
		perf.CTR = float64(perf.Clicks) / float64(perf.Views)
	}

	return db.Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"performance": perf,
			"updated_at":  utils.UTCNow(),
		}).Error
}

// ByFilter retrieves campaigns based on filter criteria
func (r *CampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.Campaign
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

	err := query.Find(&campaigns).Error
	if err != nil {
		return nil, err
	}

	return campaigns, nil
}

// Count returns the number of campaigns matching the filter
func (r *CampaignRepositoryImpl) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Campaign{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *CampaignRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Type != nil {
		db = db.Where("type = ?", *filter.Type)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Name != nil {
		db = db.Where("name = ?", *filter.Name)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return db
}
