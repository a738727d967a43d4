package repository

import (
	"context"
	"errors"
	"fmt"

	"boitata/models"

	"gorm.io/gorm"
)

// ModelProfileRepositoryImpl implements the ModelProfileRepository interface
type ModelProfileRepositoryImpl struct {
	db *gorm.DB
}

// NewModelProfileRepository creates a new model profile repository
func NewModelProfileRepository(db *gorm.DB) ModelProfileRepository {
	return &ModelProfileRepositoryImpl{db: db}
}

func (r *ModelProfileRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// ByID retrieves a model profile with its products preloaded
func (r *ModelProfileRepositoryImpl) ByID(ctx context.Context, id uint) (*models.ModelProfile, error) {
	db := r.getDB(ctx)

	var profile models.ModelProfile
	err := db.Preload("Products").Last(&profile, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find model profile %d: %w", id, err)
	}

	return &profile, nil
}

// Save inserts a new model profile
func (r *ModelProfileRepositoryImpl) Save(ctx context.Context, profile *models.ModelProfile) error {
	db := r.getDB(ctx)

	if err := db.Create(profile).Error; err != nil {
		return fmt.Errorf("failed to save model profile: %w", err)
	}
	return nil
}

// ProductByID retrieves a single product
func (r *ModelProfileRepositoryImpl) ProductByID(ctx context.Context, productID uint) (*models.ModelProduct, error) {
	db := r.getDB(ctx)

	var product models.ModelProduct
	err := db.Last(&product, productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find product %d: %w", productID, err)
	}

	return &product, nil
}

// SaveProduct inserts a new product
func (r *ModelProfileRepositoryImpl) SaveProduct(ctx context.Context, product *models.ModelProduct) error {
	db := r.getDB(ctx)

	if err := db.Create(product).Error; err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}
