// Package testing provides test utilities and database setup for testing the posting platform
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"boitata/models"
	"boitata/utils"

	"github.com/lib/pq"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestGroup creates an active group the bot can post into
func (tf *TestFixtures) CreateTestGroup(chatID int64) (*models.TelegramGroup, error) {
	group := &models.TelegramGroup{
		ChatID:      chatID,
		Title:       fmt.Sprintf("Test Group %d", chatID),
		Type:        "supergroup",
		Permissions: models.GroupPermissions{CanPostMessages: true, CanDeleteMessages: true},
		MemberCount: rand.Intn(5000) + 100,
		IsActive:    utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(group).Error; err != nil {
		return nil, fmt.Errorf("failed to create test group: %w", err)
	}
	return group, nil
}

// CreateTestCreative creates a compliant image creative
func (tf *TestFixtures) CreateTestCreative() (*models.Creative, error) {
	creative := &models.Creative{
		Kind:        models.CreativeKindImage,
		MediaFileID: fmt.Sprintf("AgACAgEAAx%09d", rand.Intn(1000000000)),
		Caption:     "Test caption",
		CTALabel:    "Open",
		CTAURL:      "https://example.com",
		IsCompliant: utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(creative).Error; err != nil {
		return nil, fmt.Errorf("failed to create test creative: %w", err)
	}
	return creative, nil
}

// CreateTestCampaign creates an active campaign rotating the given creatives
func (tf *TestFixtures) CreateTestCampaign(creativeIDs []int64) (*models.Campaign, error) {
	campaign := &models.Campaign{
		Name:        fmt.Sprintf("Test Campaign %d", rand.Intn(100000)),
		Type:        models.CampaignTypeOnlyfans,
		Status:      models.CampaignStatusActive,
		CreativeIDs: pq.Int64Array(creativeIDs),
	}

	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}
	return campaign, nil
}

// CreateTestModel creates an active model profile with one sellable product
func (tf *TestFixtures) CreateTestModel() (*models.ModelProfile, error) {
	model := &models.ModelProfile{
		DisplayName: fmt.Sprintf("Test Model %d", rand.Intn(100000)),
		Bio:         "Test bio",
		IsActive:    utils.ToPtr(true),
	}
	if err := tf.DB.DB.Create(model).Error; err != nil {
		return nil, fmt.Errorf("failed to create test model: %w", err)
	}

	product := &models.ModelProduct{
		ModelID:        model.ID,
		Name:           "Test Pack",
		Type:           models.ProductTypeContent,
		PriceCents:     2990,
		Currency:       "BRL",
		ContentFileIDs: pq.StringArray{"file-1", "file-2", "file-3"},
		IsActive:       utils.ToPtr(true),
	}
	if err := tf.DB.DB.Create(product).Error; err != nil {
		return nil, fmt.Errorf("failed to create test product: %w", err)
	}

	model.Products = []models.ModelProduct{*product}
	return model, nil
}

// CreateTestBuyer creates a buyer with a unique telegram user id
func (tf *TestFixtures) CreateTestBuyer() (*models.Buyer, error) {
	buyer := &models.Buyer{
		TelegramUserID: int64(rand.Intn(900000000) + 100000000),
		DisplayName:    "Test Buyer",
	}

	if err := tf.DB.DB.Create(buyer).Error; err != nil {
		return nil, fmt.Errorf("failed to create test buyer: %w", err)
	}
	return buyer, nil
}

// CreateTestPurchase creates a pending purchase with its PIX transaction
func (tf *TestFixtures) CreateTestPurchase(buyer *models.Buyer, model *models.ModelProfile) (*models.Purchase, *models.Transaction, error) {
	product := &model.Products[0]

	purchase := &models.Purchase{
		BuyerID:     buyer.ID,
		BuyerChatID: buyer.TelegramUserID,
		BuyerName:   buyer.DisplayName,
		ModelID:     model.ID,
		ProductID:   product.ID,
		Snapshot:    product.Snapshot(),
		AmountCents: product.PriceCents,
		Currency:    product.Currency,
		Status:      models.PurchaseStatusPending,
	}
	if err := tf.DB.DB.Create(purchase).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create test purchase: %w", err)
	}

	expires := time.Now().UTC().Add(30 * time.Minute)
	txn := &models.Transaction{
		PurchaseID:   purchase.ID,
		Status:       models.TransactionStatusPending,
		AmountCents:  purchase.AmountCents,
		Currency:     purchase.Currency,
		PixKey:       "test-pix-key",
		PixQRCode:    "test-qr-code",
		PixCopyPaste: "test-copy-paste",
		PixExpiresAt: &expires,
		ExternalID:   fmt.Sprintf("pay_%d", rand.Intn(100000000)),
	}
	if err := tf.DB.DB.Create(txn).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create test transaction: %w", err)
	}

	return purchase, txn, nil
}
