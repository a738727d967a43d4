package businessflow

import (
	"context"
	"slices"
	"time"

	"boitata/models"
	"boitata/queue"
	"boitata/repository"
	"boitata/utils"
)

// PostEnqueuer submits post jobs to the per-group post queues
type PostEnqueuer interface {
	EnqueuePost(ctx context.Context, payload queue.PostJobPayload) error
}

// TickResult reports what one rotation tick did for a campaign
type TickResult struct {
	CampaignID uint   `json:"campaign_id"`
	Enqueued   int    `json:"enqueued"`
	Skipped    string `json:"skipped,omitempty"`
	Ended      bool   `json:"ended,omitempty"`
}

// RotationFlow drives the campaign rotation engine: each tick picks eligible
// groups, selects the next creative per group, and enqueues post jobs.
type RotationFlow interface {
	// Tick advances one campaign's rotation
	Tick(ctx context.Context, campaignID uint) (*TickResult, error)
	// TickAll advances every active campaign; per-campaign failures are
	// recorded in the results, not fatal to the batch
	TickAll(ctx context.Context) ([]TickResult, error)
}

// RotationFlowImpl implements the rotation engine
type RotationFlowImpl struct {
	campaignRepo    repository.CampaignRepository
	creativeRepo    repository.CreativeRepository
	rotationRepo    repository.RotationStateRepository
	groupRepo       repository.TelegramGroupRepository
	enqueuer        PostEnqueuer
	audit           AuditEnqueuer
	defaultCooldown time.Duration
	now             func() time.Time
}

// NewRotationFlow creates a new rotation flow instance
func NewRotationFlow(
	campaignRepo repository.CampaignRepository,
	creativeRepo repository.CreativeRepository,
	rotationRepo repository.RotationStateRepository,
	groupRepo repository.TelegramGroupRepository,
	enqueuer PostEnqueuer,
	audit AuditEnqueuer,
	defaultCooldown time.Duration,
) RotationFlow {
	if defaultCooldown <= 0 {
		defaultCooldown = 30 * time.Minute
	}
	return &RotationFlowImpl{
		campaignRepo:    campaignRepo,
		creativeRepo:    creativeRepo,
		rotationRepo:    rotationRepo,
		groupRepo:       groupRepo,
		enqueuer:        enqueuer,
		audit:           audit,
		defaultCooldown: defaultCooldown,
		now:             utils.UTCNow,
	}
}

// TickAll advances every active campaign
func (s *RotationFlowImpl) TickAll(ctx context.Context) ([]TickResult, error) {
	campaigns, err := s.campaignRepo.ListActive(ctx)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", "Failed to list active campaigns", err)
	}

	results := make([]TickResult, 0, len(campaigns))
	for _, campaign := range campaigns {
		res, err := s.Tick(ctx, campaign.ID)
		if err != nil {
			results = append(results, TickResult{CampaignID: campaign.ID, Skipped: err.Error()})
			continue
		}
		results = append(results, *res)
	}
	return results, nil
}

// Tick advances one campaign's rotation. Concurrent ticks for the same
// campaign are serialized by the rotation state's version column: the loser
// discards its work without having enqueued anything.
func (s *RotationFlowImpl) Tick(ctx context.Context, campaignID uint) (*TickResult, error) {
	campaign, err := s.campaignRepo.ByID(ctx, campaignID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_LOOKUP_FAILED", "Failed to lookup campaign", err)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}

	now := s.now()

	if ended, err := s.endIfPastSchedule(ctx, campaign, now); err != nil {
		return nil, err
	} else if ended {
		return &TickResult{CampaignID: campaign.ID, Ended: true}, nil
	}

	if err := s.activateIfDue(ctx, campaign, now); err != nil {
		return nil, err
	}

	if !campaign.IsPostable(now) {
		return &TickResult{CampaignID: campaign.ID, Skipped: "not postable"}, nil
	}

	state, err := s.loadState(ctx, campaign.ID, now)
	if err != nil {
		return nil, err
	}

	state.RollWindows(now)
	if state.CapReached(campaign.Schedule) {
		return &TickResult{CampaignID: campaign.ID, Skipped: "posting cap reached"}, nil
	}

	groups, err := s.eligibleGroups(ctx, campaign)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return &TickResult{CampaignID: campaign.ID, Skipped: "no eligible groups"}, nil
	}

	creatives, err := s.compliantCreatives(ctx, campaign)
	if err != nil {
		return nil, err
	}
	if len(creatives) == 0 {
		return &TickResult{CampaignID: campaign.ID, Skipped: "no compliant creatives"}, nil
	}

	plan := s.planPosts(campaign, state, groups, creatives, now)
	if len(plan) == 0 {
		return &TickResult{CampaignID: campaign.ID, Skipped: "all groups cooling down"}, nil
	}

	// Reserve the rotation advance before enqueueing: if a concurrent tick
	// beat us to the version bump, nothing was sent and the caller retries
	// on the next tick.
	ok, err := s.rotationRepo.SaveIfVersion(ctx, state)
	if err != nil {
		return nil, NewBusinessError("ROTATION_SAVE_FAILED", "Failed to save rotation state", err)
	}
	if !ok {
		return nil, NewBusinessError("ROTATION_CONFLICT", "Rotation state changed concurrently", ErrRotationConflict)
	}

	enqueued := 0
	for _, payload := range plan {
		if err := s.enqueuer.EnqueuePost(ctx, payload); err != nil {
			// The reserved slot is burned; the post is simply lost to this
			// window rather than risking a duplicate.
			continue
		}
		enqueued++
	}

	return &TickResult{CampaignID: campaign.ID, Enqueued: enqueued}, nil
}

// endIfPastSchedule transitions the campaign to ended once its end date passed
func (s *RotationFlowImpl) endIfPastSchedule(ctx context.Context, campaign *models.Campaign, now time.Time) (bool, error) {
	if campaign.Schedule.EndDate == nil || now.Before(*campaign.Schedule.EndDate) {
		return false, nil
	}
	if campaign.Status != models.CampaignStatusActive && campaign.Status != models.CampaignStatusScheduled {
		return false, nil
	}

	ok, err := s.campaignRepo.UpdateStatusIf(ctx, campaign.ID, campaign.Status, models.CampaignStatusEnded)
	if err != nil {
		return false, NewBusinessError("CAMPAIGN_END_FAILED", "Failed to end campaign", err)
	}
	if ok {
		submitAudit(ctx, s.audit, nil, models.AuditActionCampaignStatus, "campaign", &campaign.ID,
			map[string]string{"status": string(campaign.Status)},
			map[string]string{"status": string(models.CampaignStatusEnded)}, true)
	}
	return true, nil
}

// activateIfDue promotes a scheduled campaign whose start date arrived
func (s *RotationFlowImpl) activateIfDue(ctx context.Context, campaign *models.Campaign, now time.Time) error {
	if campaign.Status != models.CampaignStatusScheduled {
		return nil
	}
	if campaign.Schedule.StartDate != nil && now.Before(*campaign.Schedule.StartDate) {
		return nil
	}

	ok, err := s.campaignRepo.UpdateStatusIf(ctx, campaign.ID, models.CampaignStatusScheduled, models.CampaignStatusActive)
	if err != nil {
		return NewBusinessError("CAMPAIGN_ACTIVATE_FAILED", "Failed to activate campaign", err)
	}
	if ok {
		campaign.Status = models.CampaignStatusActive
		submitAudit(ctx, s.audit, nil, models.AuditActionCampaignStatus, "campaign", &campaign.ID,
			map[string]string{"status": string(models.CampaignStatusScheduled)},
			map[string]string{"status": string(models.CampaignStatusActive)}, true)
	}
	return nil
}

// loadState fetches or initializes the campaign's rotation state
func (s *RotationFlowImpl) loadState(ctx context.Context, campaignID uint, now time.Time) (*models.RotationState, error) {
	state, err := s.rotationRepo.ByCampaignID(ctx, campaignID)
	if err != nil {
		return nil, NewBusinessError("ROTATION_LOOKUP_FAILED", "Failed to lookup rotation state", err)
	}
	if state == nil {
		state = &models.RotationState{
			CampaignID: campaignID,
			Groups:     models.GroupRotationMap{},
			DayAnchor:  utils.StartOfDay(now),
			WeekAnchor: utils.StartOfWeek(now),
		}
		if err := s.rotationRepo.Save(ctx, state); err != nil {
			return nil, NewBusinessError("ROTATION_INIT_FAILED", "Failed to initialize rotation state", err)
		}
	}
	return state, nil
}

// eligibleGroups resolves campaign targeting against the active group set.
// Exclusion wins over inclusion.
func (s *RotationFlowImpl) eligibleGroups(ctx context.Context, campaign *models.Campaign) ([]*models.TelegramGroup, error) {
	active, err := s.groupRepo.ListActive(ctx)
	if err != nil {
		return nil, NewBusinessError("GROUP_LIST_FAILED", "Failed to list active groups", err)
	}

	eligible := make([]*models.TelegramGroup, 0, len(active))
	for _, group := range active {
		if !group.CanPost() {
			continue
		}
		if slices.Contains(campaign.ExcludedGroupIDs, group.ChatID) {
			continue
		}
		if len(campaign.IncludedGroupIDs) > 0 && !slices.Contains(campaign.IncludedGroupIDs, group.ChatID) {
			continue
		}
		eligible = append(eligible, group)
	}
	return eligible, nil
}

// compliantCreatives loads the campaign's rotation list, keeping order and
// dropping non-compliant entries
func (s *RotationFlowImpl) compliantCreatives(ctx context.Context, campaign *models.Campaign) ([]*models.Creative, error) {
	loaded, err := s.creativeRepo.ByIDs(ctx, campaign.CreativeIDs)
	if err != nil {
		return nil, NewBusinessError("CREATIVE_LOOKUP_FAILED", "Failed to lookup creatives", err)
	}

	byID := make(map[int64]*models.Creative, len(loaded))
	for _, c := range loaded {
		if utils.IsTrue(c.IsCompliant) {
			byID[int64(c.ID)] = c
		}
	}

	ordered := make([]*models.Creative, 0, len(campaign.CreativeIDs))
	for _, id := range campaign.CreativeIDs {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

// planPosts walks the eligible groups, skipping those still cooling down, and
// assigns each the next creative in the rotation. A group never receives the
// same creative twice in a row when an alternative exists. The state is
// mutated in memory; the caller persists it.
func (s *RotationFlowImpl) planPosts(campaign *models.Campaign, state *models.RotationState, groups []*models.TelegramGroup, creatives []*models.Creative, now time.Time) []queue.PostJobPayload {
	cooldown := campaign.GroupCooldown(s.defaultCooldown)

	plan := make([]queue.PostJobPayload, 0, len(groups))
	for _, group := range groups {
		if state.CapReached(campaign.Schedule) {
			break
		}

		if last, ok := state.LastPost(group.ChatID); ok {
			if now.Sub(last.LastPostAt) < cooldown {
				continue
			}
		}

		creative := s.nextCreative(state, creatives, group.ChatID)

		plan = append(plan, queue.PostJobPayload{
			CampaignID:  campaign.ID,
			GroupChatID: group.ChatID,
			CreativeID:  creative.ID,
		})
		state.RecordPost(group.ChatID, int64(creative.ID), now)
	}
	return plan
}

// nextCreative picks the creative at the cursor, advancing past the group's
// last-posted creative when more than one is available
func (s *RotationFlowImpl) nextCreative(state *models.RotationState, creatives []*models.Creative, chatID int64) *models.Creative {
	idx := state.Cursor % len(creatives)
	candidate := creatives[idx]

	if len(creatives) > 1 {
		if last, ok := state.LastPost(chatID); ok && last.LastCreativeID == int64(candidate.ID) {
			idx = (idx + 1) % len(creatives)
			candidate = creatives[idx]
		}
	}

	state.Cursor = (idx + 1) % len(creatives)
	return candidate
}
