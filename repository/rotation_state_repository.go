package repository

import (
	"context"
	"errors"
	"fmt"

	"boitata/models"
	"boitata/utils"

	"gorm.io/gorm"
)

// RotationStateRepositoryImpl implements the RotationStateRepository interface
type RotationStateRepositoryImpl struct {
	db *gorm.DB
}

// NewRotationStateRepository creates a new rotation state repository
func NewRotationStateRepository(db *gorm.DB) RotationStateRepository {
	return &RotationStateRepositoryImpl{db: db}
}

func (r *RotationStateRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// ByCampaignID retrieves the rotation state for a campaign
func (r *RotationStateRepositoryImpl) ByCampaignID(ctx context.Context, campaignID uint) (*models.RotationState, error) {
	db := r.getDB(ctx)

	var state models.RotationState
	err := db.Where("campaign_id = ?", campaignID).Last(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load rotation state for campaign %d: %w", campaignID, err)
	}

	return &state, nil
}

// Save inserts a new rotation state
func (r *RotationStateRepositoryImpl) Save(ctx context.Context, state *models.RotationState) error {
	db := r.getDB(ctx)

	if err := db.Create(state).Error; err != nil {
		return fmt.Errorf("failed to save rotation state: %w", err)
	}
	return nil
}

// SaveIfVersion persists the state with a compare-and-swap on the version
// column. This is the serialization point for concurrent rotation ticks.
func (r *RotationStateRepositoryImpl) SaveIfVersion(ctx context.Context, state *models.RotationState) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.RotationState{}).
		Where("id = ? AND version = ?", state.ID, state.Version).
		Updates(map[string]any{
			"cursor":       state.Cursor,
			"groups":       state.Groups,
			"daily_count":  state.DailyCount,
			"day_anchor":   state.DayAnchor,
			"weekly_count": state.WeeklyCount,
			"week_anchor":  state.WeekAnchor,
			"version":      state.Version + 1,
			"updated_at":   utils.UTCNow(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to advance rotation state %d: %w", state.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	state.Version++
	return true, nil
}
