package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"boitata/models"
	boitatatesting "boitata/testing"
	"boitata/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupDB provisions a throwaway database per test. Tests are skipped when no
// Postgres is reachable (set TEST_DB_HOST etc. to point at one).
func setupDB(t *testing.T) *boitatatesting.TestDB {
	t.Helper()
	if os.Getenv("TEST_DB_SKIP") != "" {
		t.Skip("TEST_DB_SKIP set")
	}

	db, err := boitatatesting.SetupTestDB()
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := db.TeardownTestDB(); err != nil {
			t.Logf("teardown: %v", err)
		}
	})
	return db
}

func TestRotationStateRepository_SaveIfVersion(t *testing.T) {
	db := setupDB(t)
	fixtures := boitatatesting.NewTestFixtures(db)
	ctx := context.Background()

	creative, err := fixtures.CreateTestCreative()
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign([]int64{int64(creative.ID)})
	require.NoError(t, err)

	repo := NewRotationStateRepository(db.DB)

	now := utils.UTCNow()
	state := &models.RotationState{
		CampaignID: campaign.ID,
		Groups:     models.GroupRotationMap{},
		DayAnchor:  utils.StartOfDay(now),
		WeekAnchor: utils.StartOfWeek(now),
	}
	require.NoError(t, repo.Save(ctx, state))

	// First writer advances the version
	state.Cursor = 1
	state.DailyCount = 1
	ok, err := repo.SaveIfVersion(ctx, state)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), state.Version)

	// A stale writer holding the old version loses
	stale := &models.RotationState{
		ID:         state.ID,
		CampaignID: campaign.ID,
		Version:    0,
		Groups:     models.GroupRotationMap{},
	}
	ok, err = repo.SaveIfVersion(ctx, stale)
	require.NoError(t, err)
	assert.False(t, ok)

	// The stored state is the winner's
	loaded, err := repo.ByCampaignID(ctx, campaign.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 1, loaded.Cursor)
	assert.Equal(t, int64(1), loaded.Version)
}

func TestTransactionRepository_MarkPaidIfPending(t *testing.T) {
	db := setupDB(t)
	fixtures := boitatatesting.NewTestFixtures(db)
	ctx := context.Background()

	buyer, err := fixtures.CreateTestBuyer()
	require.NoError(t, err)
	model, err := fixtures.CreateTestModel()
	require.NoError(t, err)
	_, txn, err := fixtures.CreateTestPurchase(buyer, model)
	require.NoError(t, err)

	repo := NewTransactionRepository(db.DB)

	paidAt := utils.UTCNow()
	won, err := repo.MarkPaidIfPending(ctx, txn.ID, paidAt)
	require.NoError(t, err)
	assert.True(t, won)

	// The duplicate delivery loses the CAS
	won, err = repo.MarkPaidIfPending(ctx, txn.ID, paidAt.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, won)

	loaded, err := repo.ByExternalID(ctx, txn.ExternalID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, models.TransactionStatusPaid, loaded.Status)
	require.NotNil(t, loaded.PaidAt)
}

func TestPurchaseRepository_StatusTransitions(t *testing.T) {
	db := setupDB(t)
	fixtures := boitatatesting.NewTestFixtures(db)
	ctx := context.Background()

	buyer, err := fixtures.CreateTestBuyer()
	require.NoError(t, err)
	model, err := fixtures.CreateTestModel()
	require.NoError(t, err)
	purchase, _, err := fixtures.CreateTestPurchase(buyer, model)
	require.NoError(t, err)

	repo := NewPurchaseRepository(db.DB)

	moved, err := repo.UpdateStatusIf(ctx, purchase.ID, models.PurchaseStatusPending, models.PurchaseStatusPaid)
	require.NoError(t, err)
	assert.True(t, moved)

	// The from-status no longer matches
	moved, err = repo.UpdateStatusIf(ctx, purchase.ID, models.PurchaseStatusPending, models.PurchaseStatusFailed)
	require.NoError(t, err)
	assert.False(t, moved)

	now := utils.UTCNow()
	expires := now.AddDate(0, 0, 30)
	require.NoError(t, repo.MarkDelivered(ctx, purchase.ID, now, &expires))

	batch := models.SentMessageBatch{ChatID: buyer.TelegramUserID, MessageIDs: []int{1, 2, 3}, SentAt: now}
	require.NoError(t, repo.AppendSentMessages(ctx, purchase.ID, batch))

	loaded, err := repo.ByUUID(ctx, purchase.UUID.String())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, models.PurchaseStatusPaid, loaded.Status)
	require.NotNil(t, loaded.DeliveredAt)
	require.Len(t, loaded.SentMessages, 1)
	assert.Equal(t, []int{1, 2, 3}, loaded.SentMessages[0].MessageIDs)
}

func TestTelegramGroupRepository_Upsert(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	repo := NewTelegramGroupRepository(db.DB)

	group := &models.TelegramGroup{
		ChatID:           -1001234,
		Title:            "Original",
		Type:             "supergroup",
		Permissions:      models.GroupPermissions{CanPostMessages: true},
		IsActive:         utils.ToPtr(true),
		IsAutoDiscovered: utils.ToPtr(true),
	}

	isNew, err := repo.Upsert(ctx, group)
	require.NoError(t, err)
	assert.True(t, isNew)

	// A later sync updates metadata but keeps the discovery provenance
	resynced := &models.TelegramGroup{
		ChatID:           -1001234,
		Title:            "Renamed",
		Type:             "supergroup",
		Permissions:      models.GroupPermissions{CanPostMessages: false},
		IsActive:         utils.ToPtr(true),
		IsAutoDiscovered: utils.ToPtr(false),
	}
	isNew, err = repo.Upsert(ctx, resynced)
	require.NoError(t, err)
	assert.False(t, isNew)

	loaded, err := repo.ByChatID(ctx, -1001234)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, group.ID, loaded.ID)
	assert.Equal(t, "Renamed", loaded.Title)
	assert.True(t, utils.IsTrue(loaded.IsAutoDiscovered))
	assert.False(t, loaded.Permissions.CanPostMessages)

	require.NoError(t, repo.Deactivate(ctx, -1001234))
	loaded, err = repo.ByChatID(ctx, -1001234)
	require.NoError(t, err)
	assert.False(t, loaded.CanPost())
}
