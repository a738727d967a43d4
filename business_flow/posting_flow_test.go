package businessflow

import (
	"context"
	"errors"
	"testing"

	"boitata/models"
	"boitata/queue"
	"boitata/telegram"
	"boitata/utils"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePostDispatcher struct {
	posts   []queue.PostJobPayload
	sendErr error
	nextID  int
}

func (f *fakePostDispatcher) Post(ctx context.Context, chatID int64, creative *models.Creative) (*telegram.PostResult, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	f.posts = append(f.posts, queue.PostJobPayload{GroupChatID: chatID, CreativeID: creative.ID})
	return &telegram.PostResult{ChatID: chatID, MessageID: f.nextID, PostedAt: utils.UTCNow()}, nil
}

type postingHarness struct {
	campaigns  *fakeCampaignRepo
	creatives  *fakeCreativeRepo
	groups     *fakeGroupRepo
	records    *fakePostRecordRepo
	dispatcher *fakePostDispatcher
	enqueuer   *recordingEnqueuer
	flow       PostingFlow
}

func newPostingHarness() *postingHarness {
	h := &postingHarness{
		campaigns: newFakeCampaignRepo(&models.Campaign{
			ID:          1,
			Status:      models.CampaignStatusActive,
			CreativeIDs: pq.Int64Array{10},
		}),
		creatives:  &fakeCreativeRepo{creatives: []*models.Creative{compliantCreative(10)}},
		groups:     &fakeGroupRepo{active: []*models.TelegramGroup{activeGroup(-100111)}},
		records:    &fakePostRecordRepo{},
		dispatcher: &fakePostDispatcher{},
		enqueuer:   &recordingEnqueuer{},
	}
	h.flow = NewPostingFlow(h.campaigns, h.creatives, h.groups, h.records, h.dispatcher, h.enqueuer)
	return h
}

func payload() queue.PostJobPayload {
	return queue.PostJobPayload{CampaignID: 1, GroupChatID: -100111, CreativeID: 10}
}

func TestExecutePost_RecordsHistory(t *testing.T) {
	h := newPostingHarness()

	require.NoError(t, h.flow.ExecutePost(context.Background(), payload()))

	require.Len(t, h.records.records, 1)
	record := h.records.records[0]
	assert.Equal(t, uint(1), record.CampaignID)
	assert.Equal(t, int64(-100111), record.GroupChatID)
	assert.Equal(t, uint(10), record.CreativeID)
	assert.NotZero(t, record.MessageID)

	assert.Equal(t, int64(1), h.creatives.creatives[0].Stats.TimesPosted)

	require.Len(t, h.enqueuer.audits, 1)
	assert.Equal(t, models.AuditActionPostSent, h.enqueuer.audits[0].Action)
}

func TestExecutePost_DropsWhenCampaignLeftActive(t *testing.T) {
	h := newPostingHarness()
	h.campaigns.campaigns[1].Status = models.CampaignStatusPaused

	err := h.flow.ExecutePost(context.Background(), payload())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCampaignNotPostable)
	assert.Empty(t, h.dispatcher.posts)
}

func TestExecutePost_DropsWhenGroupLostPosting(t *testing.T) {
	h := newPostingHarness()
	h.groups.active[0].Permissions.CanPostMessages = false

	err := h.flow.ExecutePost(context.Background(), payload())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGroupNotPostable)
}

func TestExecutePost_TransportErrorIsRetryable(t *testing.T) {
	h := newPostingHarness()
	transport := errors.New("telegram: 502")
	h.dispatcher.sendErr = transport

	err := h.flow.ExecutePost(context.Background(), payload())
	// The raw error surfaces so the queue's backoff retries it
	assert.ErrorIs(t, err, transport)

	var bizErr *BusinessError
	assert.False(t, errors.As(err, &bizErr))
	assert.Empty(t, h.records.records)
}

func TestExecutePost_UnknownCreative(t *testing.T) {
	h := newPostingHarness()

	err := h.flow.ExecutePost(context.Background(), queue.PostJobPayload{CampaignID: 1, GroupChatID: -100111, CreativeID: 99})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCreativeNotFound)
}
