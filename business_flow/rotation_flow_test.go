package businessflow

import (
	"context"
	"testing"
	"time"

	"boitata/models"
	"boitata/utils"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeGroup(chatID int64) *models.TelegramGroup {
	return &models.TelegramGroup{
		ChatID:      chatID,
		IsActive:    utils.ToPtr(true),
		Permissions: models.GroupPermissions{CanPostMessages: true},
	}
}

func compliantCreative(id uint) *models.Creative {
	return &models.Creative{
		ID:          id,
		Kind:        models.CreativeKindImage,
		MediaFileID: "file",
		IsCompliant: utils.ToPtr(true),
	}
}

type rotationHarness struct {
	campaigns *fakeCampaignRepo
	creatives *fakeCreativeRepo
	rotation  *fakeRotationRepo
	groups    *fakeGroupRepo
	enqueuer  *recordingEnqueuer
	flow      RotationFlow
}

func newRotationHarness(campaign *models.Campaign, groups []*models.TelegramGroup, creatives []*models.Creative) *rotationHarness {
	h := &rotationHarness{
		campaigns: newFakeCampaignRepo(campaign),
		creatives: &fakeCreativeRepo{creatives: creatives},
		rotation:  newFakeRotationRepo(),
		groups:    &fakeGroupRepo{active: groups},
		enqueuer:  &recordingEnqueuer{},
	}
	h.flow = NewRotationFlow(h.campaigns, h.creatives, h.rotation, h.groups, h.enqueuer, h.enqueuer, 30*time.Minute)
	return h
}

func TestRotationTick_EnqueuesPostsPerGroup(t *testing.T) {
	campaign := &models.Campaign{
		ID:          1,
		Status:      models.CampaignStatusActive,
		CreativeIDs: pq.Int64Array{10, 11},
	}
	h := newRotationHarness(campaign,
		[]*models.TelegramGroup{activeGroup(-100111), activeGroup(-100222)},
		[]*models.Creative{compliantCreative(10), compliantCreative(11)},
	)

	res, err := h.flow.Tick(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Enqueued)
	assert.Empty(t, res.Skipped)

	require.Len(t, h.enqueuer.posts, 2)
	// Each group gets the next creative in rotation order
	assert.Equal(t, uint(10), h.enqueuer.posts[0].CreativeID)
	assert.Equal(t, uint(11), h.enqueuer.posts[1].CreativeID)
	assert.Equal(t, int64(-100111), h.enqueuer.posts[0].GroupChatID)
	assert.Equal(t, int64(-100222), h.enqueuer.posts[1].GroupChatID)

	state := h.rotation.states[1]
	require.NotNil(t, state)
	assert.Equal(t, 2, state.DailyCount)
	assert.Equal(t, 2, state.WeeklyCount)
	assert.Equal(t, int64(1), state.Version)
}

func TestRotationTick_DailyCapReached(t *testing.T) {
	campaign := &models.Campaign{
		ID:          1,
		Status:      models.CampaignStatusActive,
		CreativeIDs: pq.Int64Array{10},
		Schedule:    models.CampaignSchedule{DailyPostCap: 3},
	}
	h := newRotationHarness(campaign,
		[]*models.TelegramGroup{activeGroup(-100111)},
		[]*models.Creative{compliantCreative(10)},
	)

	now := utils.UTCNow()
	h.rotation.states[1] = &models.RotationState{
		CampaignID: 1,
		DailyCount: 3,
		DayAnchor:  utils.StartOfDay(now),
		WeekAnchor: utils.StartOfWeek(now),
		Groups:     models.GroupRotationMap{},
	}

	res, err := h.flow.Tick(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "posting cap reached", res.Skipped)
	assert.Empty(t, h.enqueuer.posts)
}

func TestRotationTick_CapResetsOnNewDay(t *testing.T) {
	campaign := &models.Campaign{
		ID:          1,
		Status:      models.CampaignStatusActive,
		CreativeIDs: pq.Int64Array{10},
		Schedule:    models.CampaignSchedule{DailyPostCap: 3},
	}
	h := newRotationHarness(campaign,
		[]*models.TelegramGroup{activeGroup(-100111)},
		[]*models.Creative{compliantCreative(10)},
	)

	// Counter exhausted yesterday; the window rolls and posting resumes
	yesterday := utils.UTCNow().AddDate(0, 0, -1)
	h.rotation.states[1] = &models.RotationState{
		CampaignID: 1,
		DailyCount: 3,
		DayAnchor:  utils.StartOfDay(yesterday),
		WeekAnchor: utils.StartOfWeek(yesterday),
		Groups:     models.GroupRotationMap{},
	}

	res, err := h.flow.Tick(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Enqueued)
}

func TestRotationTick_GroupCoolingDown(t *testing.T) {
	campaign := &models.Campaign{
		ID:          1,
		Status:      models.CampaignStatusActive,
		CreativeIDs: pq.Int64Array{10},
	}
	h := newRotationHarness(campaign,
		[]*models.TelegramGroup{activeGroup(-100111)},
		[]*models.Creative{compliantCreative(10)},
	)

	now := utils.UTCNow()
	state := &models.RotationState{
		CampaignID: 1,
		DayAnchor:  utils.StartOfDay(now),
		WeekAnchor: utils.StartOfWeek(now),
		Groups:     models.GroupRotationMap{},
	}
	state.RecordPost(-100111, 10, now.Add(-5*time.Minute))
	state.DailyCount = 0
	state.WeeklyCount = 0
	h.rotation.states[1] = state

	res, err := h.flow.Tick(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "all groups cooling down", res.Skipped)
	assert.Empty(t, h.enqueuer.posts)
}

func TestRotationTick_ConflictEnqueuesNothing(t *testing.T) {
	campaign := &models.Campaign{
		ID:          1,
		Status:      models.CampaignStatusActive,
		CreativeIDs: pq.Int64Array{10},
	}
	h := newRotationHarness(campaign,
		[]*models.TelegramGroup{activeGroup(-100111)},
		[]*models.Creative{compliantCreative(10)},
	)
	h.rotation.conflict = true

	_, err := h.flow.Tick(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRotationConflict)
	assert.Empty(t, h.enqueuer.posts)
}

func TestRotationTick_NoConsecutiveRepeatPerGroup(t *testing.T) {
	campaign := &models.Campaign{
		ID:          1,
		Status:      models.CampaignStatusActive,
		CreativeIDs: pq.Int64Array{10, 11},
	}
	h := newRotationHarness(campaign,
		[]*models.TelegramGroup{activeGroup(-100111)},
		[]*models.Creative{compliantCreative(10), compliantCreative(11)},
	)

	now := utils.UTCNow()
	state := &models.RotationState{
		CampaignID: 1,
		Cursor:     0,
		DayAnchor:  utils.StartOfDay(now),
		WeekAnchor: utils.StartOfWeek(now),
		Groups: models.GroupRotationMap{
			// Last post to the group was creative 10, an hour ago
			models.GroupKey(-100111): {LastPostAt: now.Add(-time.Hour), LastCreativeID: 10},
		},
	}
	h.rotation.states[1] = state

	res, err := h.flow.Tick(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, res.Enqueued)
	assert.Equal(t, uint(11), h.enqueuer.posts[0].CreativeID)
}

func TestRotationTick_SkipsNonCompliantCreatives(t *testing.T) {
	bad := compliantCreative(11)
	bad.IsCompliant = utils.ToPtr(false)

	campaign := &models.Campaign{
		ID:          1,
		Status:      models.CampaignStatusActive,
		CreativeIDs: pq.Int64Array{11},
	}
	h := newRotationHarness(campaign,
		[]*models.TelegramGroup{activeGroup(-100111)},
		[]*models.Creative{bad},
	)

	res, err := h.flow.Tick(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "no compliant creatives", res.Skipped)
}

func TestRotationTick_TargetingExclusionWins(t *testing.T) {
	campaign := &models.Campaign{
		ID:               1,
		Status:           models.CampaignStatusActive,
		CreativeIDs:      pq.Int64Array{10},
		IncludedGroupIDs: pq.Int64Array{-100111, -100222},
		ExcludedGroupIDs: pq.Int64Array{-100222},
	}
	h := newRotationHarness(campaign,
		[]*models.TelegramGroup{activeGroup(-100111), activeGroup(-100222), activeGroup(-100333)},
		[]*models.Creative{compliantCreative(10)},
	)

	res, err := h.flow.Tick(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, res.Enqueued)
	assert.Equal(t, int64(-100111), h.enqueuer.posts[0].GroupChatID)
}

func TestRotationTick_EndsCampaignPastSchedule(t *testing.T) {
	ended := utils.UTCNow().Add(-time.Hour)
	campaign := &models.Campaign{
		ID:          1,
		Status:      models.CampaignStatusActive,
		CreativeIDs: pq.Int64Array{10},
		Schedule:    models.CampaignSchedule{EndDate: &ended},
	}
	h := newRotationHarness(campaign, nil, nil)

	res, err := h.flow.Tick(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, res.Ended)
	assert.Equal(t, models.CampaignStatusEnded, h.campaigns.campaigns[1].Status)
	// The transition was audited
	require.NotEmpty(t, h.enqueuer.audits)
	assert.Equal(t, models.AuditActionCampaignStatus, h.enqueuer.audits[0].Action)
}

func TestRotationTick_ActivatesScheduledCampaign(t *testing.T) {
	started := utils.UTCNow().Add(-time.Hour)
	campaign := &models.Campaign{
		ID:          1,
		Status:      models.CampaignStatusScheduled,
		CreativeIDs: pq.Int64Array{10},
		Schedule:    models.CampaignSchedule{StartDate: &started},
	}
	h := newRotationHarness(campaign,
		[]*models.TelegramGroup{activeGroup(-100111)},
		[]*models.Creative{compliantCreative(10)},
	)

	res, err := h.flow.Tick(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusActive, h.campaigns.campaigns[1].Status)
	assert.Equal(t, 1, res.Enqueued)
}

func TestRotationTickAll_RecordsPerCampaignFailures(t *testing.T) {
	good := &models.Campaign{
		ID:          1,
		Status:      models.CampaignStatusActive,
		CreativeIDs: pq.Int64Array{10},
	}
	paused := &models.Campaign{
		ID:          2,
		Status:      models.CampaignStatusPaused,
		CreativeIDs: pq.Int64Array{10},
	}

	h := newRotationHarness(good,
		[]*models.TelegramGroup{activeGroup(-100111)},
		[]*models.Creative{compliantCreative(10)},
	)
	h.campaigns.campaigns[2] = paused

	results, err := h.flow.TickAll(context.Background())
	require.NoError(t, err)
	// ListActive only returns the active campaign; the paused one is invisible
	require.Len(t, results, 1)
	assert.Equal(t, uint(1), results[0].CampaignID)
	assert.Equal(t, 1, results[0].Enqueued)
}
