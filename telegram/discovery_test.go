package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"boitata/models"
	"boitata/repository"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeChatID(t *testing.T) {
	cases := []struct {
		name string
		raw  int64
		want int64
	}{
		{"negative without supergroup prefix", -12345, -10012345},
		{"negative already prefixed", -1001234567890, -1001234567890},
		{"positive longer than ten digits", 12345678901, -10012345678901},
		{"positive short id untouched", 12345, 12345},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeChatID(tc.raw))
		})
	}
}

// fakeGroupRepo implements the surface discovery touches; unused methods come
// from the embedded nil interface and panic if reached.
type fakeGroupRepo struct {
	repository.TelegramGroupRepository

	groups      []*models.TelegramGroup
	upserted    []*models.TelegramGroup
	deactivated []int64
}

func (f *fakeGroupRepo) ByFilter(ctx context.Context, filter models.TelegramGroupFilter, orderBy string, limit, offset int) ([]*models.TelegramGroup, error) {
	return f.groups, nil
}

func (f *fakeGroupRepo) Upsert(ctx context.Context, group *models.TelegramGroup) (bool, error) {
	f.upserted = append(f.upserted, group)
	group.ID = uint(len(f.upserted))
	return true, nil
}

func (f *fakeGroupRepo) Deactivate(ctx context.Context, chatID int64) error {
	f.deactivated = append(f.deactivated, chatID)
	return nil
}

func adminBotAPI(failChat int64) *fakeBotAPI {
	return &fakeBotAPI{
		getMe: func(ctx context.Context) (*tgmodels.User, error) {
			return &tgmodels.User{ID: 999}, nil
		},
		getChat: func(ctx context.Context, params *bot.GetChatParams) (*tgmodels.ChatFullInfo, error) {
			chatID := params.ChatID.(int64)
			if chatID == failChat {
				return nil, errors.New("chat not found")
			}
			return &tgmodels.ChatFullInfo{
				ID:    chatID,
				Title: "Group",
				Type:  tgmodels.ChatTypeSupergroup,
			}, nil
		},
		getChatMember: func(ctx context.Context, params *bot.GetChatMemberParams) (*tgmodels.ChatMember, error) {
			return &tgmodels.ChatMember{
				Type: tgmodels.ChatMemberTypeAdministrator,
				Administrator: &tgmodels.ChatMemberAdministrator{
					CanDeleteMessages: true,
					CanPinMessages:    true,
				},
			}, nil
		},
		getChatMemberCount: func(ctx context.Context, params *bot.GetChatMemberCountParams) (int, error) {
			return 250, nil
		},
	}
}

func TestSyncGroupToDatabase(t *testing.T) {
	repo := &fakeGroupRepo{}
	d := NewDiscovery(adminBotAPI(0), repo, time.Millisecond)

	res := d.SyncGroupToDatabase(context.Background(), -1001234, false)

	require.True(t, res.Success, res.Error)
	assert.True(t, res.IsNew)
	assert.Equal(t, int64(-1001234), res.ChatID)

	require.Len(t, repo.upserted, 1)
	group := repo.upserted[0]
	assert.Equal(t, "supergroup", group.Type)
	assert.Equal(t, 250, group.MemberCount)
	// Supergroup admins can always post, the can_post_messages bit is channel-only
	assert.True(t, group.Permissions.CanPostMessages)
	assert.True(t, group.Permissions.CanDeleteMessages)
	assert.False(t, group.Permissions.IsCreator)
}

func TestSyncGroupToDatabase_NotAdministrator(t *testing.T) {
	api := adminBotAPI(0)
	api.getChatMember = func(ctx context.Context, params *bot.GetChatMemberParams) (*tgmodels.ChatMember, error) {
		return &tgmodels.ChatMember{Type: tgmodels.ChatMemberTypeMember}, nil
	}

	repo := &fakeGroupRepo{}
	d := NewDiscovery(api, repo, time.Millisecond)

	res := d.SyncGroupToDatabase(context.Background(), -1001234, false)

	assert.False(t, res.Success)
	assert.Equal(t, ErrNotAdministrator.Error(), res.Error)
	assert.Empty(t, repo.upserted)
}

func TestDiscoverAllGroups_PartialFailure(t *testing.T) {
	repo := &fakeGroupRepo{
		groups: []*models.TelegramGroup{
			{ID: 1, ChatID: -100111},
			{ID: 2, ChatID: -100222},
			{ID: 3, ChatID: -100333},
		},
	}
	d := NewDiscovery(adminBotAPI(-100222), repo, time.Millisecond)

	results, err := d.DiscoverAllGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
	assert.True(t, results[2].Success)

	// The failed group was never upserted
	assert.Len(t, repo.upserted, 2)
}

func TestHandleBotRemoved_DeactivatesNormalizedChat(t *testing.T) {
	repo := &fakeGroupRepo{}
	d := NewDiscovery(&fakeBotAPI{}, repo, time.Millisecond)

	require.NoError(t, d.HandleBotRemoved(context.Background(), -12345))
	assert.Equal(t, []int64{-10012345}, repo.deactivated)
}
