package businessflow

import (
	"context"

	"boitata/models"
	"boitata/queue"
	"boitata/repository"
	"boitata/telegram"
)

// PostDispatcher sends a creative into a group chat
type PostDispatcher interface {
	Post(ctx context.Context, chatID int64, creative *models.Creative) (*telegram.PostResult, error)
}

// PostingFlow executes post jobs pulled from the per-group queues
type PostingFlow interface {
	// ExecutePost sends one creative to one group and records the result.
	// Data-integrity misses return a non-retryable BusinessError; transport
	// failures return the raw error so the queue's backoff retries them.
	ExecutePost(ctx context.Context, payload queue.PostJobPayload) error
}

// PostingFlowImpl implements the posting flow
type PostingFlowImpl struct {
	campaignRepo   repository.CampaignRepository
	creativeRepo   repository.CreativeRepository
	groupRepo      repository.TelegramGroupRepository
	postRecordRepo repository.PostRecordRepository
	dispatcher     PostDispatcher
	audit          AuditEnqueuer
}

// NewPostingFlow creates a new posting flow instance
func NewPostingFlow(
	campaignRepo repository.CampaignRepository,
	creativeRepo repository.CreativeRepository,
	groupRepo repository.TelegramGroupRepository,
	postRecordRepo repository.PostRecordRepository,
	dispatcher PostDispatcher,
	audit AuditEnqueuer,
) PostingFlow {
	return &PostingFlowImpl{
		campaignRepo:   campaignRepo,
		creativeRepo:   creativeRepo,
		groupRepo:      groupRepo,
		postRecordRepo: postRecordRepo,
		dispatcher:     dispatcher,
		audit:          audit,
	}
}

// ExecutePost sends one creative to one group and records the result
func (s *PostingFlowImpl) ExecutePost(ctx context.Context, payload queue.PostJobPayload) error {
	campaign, err := s.campaignRepo.ByID(ctx, payload.CampaignID)
	if err != nil {
		return err
	}
	if campaign == nil {
		return NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found", ErrCampaignNotFound)
	}
	// A campaign paused or ended after the job was enqueued drops the post
	if campaign.Status != models.CampaignStatusActive {
		return NewBusinessError("CAMPAIGN_NOT_POSTABLE", "Campaign left active state", ErrCampaignNotPostable)
	}

	creative, err := s.creativeRepo.ByID(ctx, payload.CreativeID)
	if err != nil {
		return err
	}
	if creative == nil {
		return NewBusinessError("CREATIVE_NOT_FOUND", "Creative not found", ErrCreativeNotFound)
	}

	group, err := s.groupRepo.ByChatID(ctx, payload.GroupChatID)
	if err != nil {
		return err
	}
	if group == nil {
		return NewBusinessError("GROUP_NOT_FOUND", "Group not found", ErrGroupNotFound)
	}
	if !group.CanPost() {
		return NewBusinessError("GROUP_NOT_POSTABLE", "Group is inactive or bot cannot post", ErrGroupNotPostable)
	}

	result, err := s.dispatcher.Post(ctx, group.ChatID, creative)
	if err != nil {
		// Transport failure: let the queue's backoff policy retry
		return err
	}

	record := &models.PostRecord{
		CampaignID:  campaign.ID,
		GroupChatID: group.ChatID,
		CreativeID:  creative.ID,
		MessageID:   result.MessageID,
		PostedAt:    result.PostedAt,
	}
	if err := s.postRecordRepo.Save(ctx, record); err != nil {
		return err
	}

	_ = s.creativeRepo.IncrementTimesPosted(ctx, creative.ID)

	submitAudit(ctx, s.audit, nil, models.AuditActionPostSent, "post_record", &record.ID, nil, record, true)
	return nil
}
