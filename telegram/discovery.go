package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"boitata/models"
	"boitata/repository"
	"boitata/utils"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// ErrNotAdministrator means the bot is present in the chat without admin
// rights, so the group is not eligible for posting.
var ErrNotAdministrator = errors.New("bot is not administrator in this group")

// NormalizeChatID maps a chat id onto Telegram's -100 supergroup/channel
// convention. The external id scheme mixes signed and unsigned forms
// depending on chat type; lookups that fail on the raw id are retried on the
// normalized one.
func NormalizeChatID(raw int64) int64 {
	s := strconv.FormatInt(raw, 10)

	if raw < 0 {
		if strings.HasPrefix(s, "-100") {
			return raw
		}
		normalized, err := strconv.ParseInt("-100"+s[1:], 10, 64)
		if err != nil {
			return raw
		}
		return normalized
	}

	// A positive id longer than 10 digits is an unprefixed supergroup id
	if len(s) > 10 {
		normalized, err := strconv.ParseInt("-100"+s, 10, 64)
		if err != nil {
			return raw
		}
		return normalized
	}

	return raw
}

// SyncResult reports the outcome of syncing one group
type SyncResult struct {
	ChatID  int64  `json:"chat_id"`
	Success bool   `json:"success"`
	GroupID uint   `json:"group_id,omitempty"`
	IsNew   bool   `json:"is_new"`
	Error   string `json:"error,omitempty"`
}

// Discovery keeps the telegram_groups table in step with the chats the bot
// actually belongs to.
type Discovery struct {
	api       BotAPI
	groups    repository.TelegramGroupRepository
	syncDelay time.Duration

	mu    sync.Mutex
	botID int64
}

// NewDiscovery creates a discovery service. syncDelay spaces out API calls
// during a full re-sync.
func NewDiscovery(api BotAPI, groups repository.TelegramGroupRepository, syncDelay time.Duration) *Discovery {
	if syncDelay <= 0 {
		syncDelay = 500 * time.Millisecond
	}
	return &Discovery{api: api, groups: groups, syncDelay: syncDelay}
}

func (d *Discovery) selfID(ctx context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.botID != 0 {
		return d.botID, nil
	}

	me, err := d.api.GetMe(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve bot identity: %w", err)
	}
	d.botID = me.ID
	return d.botID, nil
}

// SyncGroupToDatabase fetches chat metadata and the bot's permission set and
// upserts the group record. A lookup miss on the raw id is retried once with
// the normalized id before failing.
func (d *Discovery) SyncGroupToDatabase(ctx context.Context, chatID int64, autoDiscovered bool) SyncResult {
	chat, err := d.api.GetChat(ctx, &bot.GetChatParams{ChatID: chatID})
	if err != nil {
		if normalized := NormalizeChatID(chatID); normalized != chatID {
			chat, err = d.api.GetChat(ctx, &bot.GetChatParams{ChatID: normalized})
		}
		if err != nil {
			return SyncResult{ChatID: chatID, Error: fmt.Sprintf("chat lookup failed: %v", err)}
		}
	}

	perms, err := d.botPermissions(ctx, chat)
	if err != nil {
		return SyncResult{ChatID: chat.ID, Error: err.Error()}
	}

	memberCount := 0
	if count, err := d.api.GetChatMemberCount(ctx, &bot.GetChatMemberCountParams{ChatID: chat.ID}); err == nil {
		memberCount = count
	}

	now := utils.UTCNow()
	group := &models.TelegramGroup{
		ChatID:           NormalizeChatID(chat.ID),
		Title:            chat.Title,
		Type:             string(chat.Type),
		Permissions:      perms,
		MemberCount:      memberCount,
		IsActive:         utils.ToPtr(true),
		IsAutoDiscovered: utils.ToPtr(autoDiscovered),
		DiscoveredAt:     now,
		LastSyncedAt:     &now,
	}

	isNew, err := d.groups.Upsert(ctx, group)
	if err != nil {
		return SyncResult{ChatID: group.ChatID, Error: fmt.Sprintf("group upsert failed: %v", err)}
	}

	return SyncResult{
		ChatID:  group.ChatID,
		Success: true,
		GroupID: group.ID,
		IsNew:   isNew,
	}
}

// botPermissions resolves the bot's rights in the chat. Creators get every
// permission implicitly; non-admin membership is not eligible.
func (d *Discovery) botPermissions(ctx context.Context, chat *tgmodels.ChatFullInfo) (models.GroupPermissions, error) {
	botID, err := d.selfID(ctx)
	if err != nil {
		return models.GroupPermissions{}, err
	}

	member, err := d.api.GetChatMember(ctx, &bot.GetChatMemberParams{
		ChatID: chat.ID,
		UserID: botID,
	})
	if err != nil {
		return models.GroupPermissions{}, fmt.Errorf("member lookup failed: %w", err)
	}

	switch member.Type {
	case tgmodels.ChatMemberTypeOwner:
		return models.AllGroupPermissions(), nil
	case tgmodels.ChatMemberTypeAdministrator:
		admin := member.Administrator
		// can_post_messages is a channel-only bit; admins of plain groups
		// and supergroups can always post
		canPost := admin.CanPostMessages || chat.Type != tgmodels.ChatTypeChannel
		return models.GroupPermissions{
			CanPostMessages:   canPost,
			CanDeleteMessages: admin.CanDeleteMessages,
			CanPinMessages:    admin.CanPinMessages,
			CanInviteUsers:    admin.CanInviteUsers,
			CanRestrictUsers:  admin.CanRestrictMembers,
		}, nil
	default:
		return models.GroupPermissions{}, ErrNotAdministrator
	}
}

// DiscoverAllGroups re-syncs every known group sequentially with a fixed
// inter-call delay. One group's failure never aborts the batch.
func (d *Discovery) DiscoverAllGroups(ctx context.Context) ([]SyncResult, error) {
	groups, err := d.groups.ByFilter(ctx, models.TelegramGroupFilter{}, "id ASC", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for discovery: %w", err)
	}

	results := make([]SyncResult, 0, len(groups))
	for i, group := range groups {
		if i > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(d.syncDelay):
			}
		}
		results = append(results, d.SyncGroupToDatabase(ctx, group.ChatID, utils.IsTrue(group.IsAutoDiscovered)))
	}

	return results, nil
}

// HandleBotAdded syncs a group the bot just joined
func (d *Discovery) HandleBotAdded(ctx context.Context, chatID int64) SyncResult {
	return d.SyncGroupToDatabase(ctx, chatID, true)
}

// HandlePermissionsChanged re-syncs after the bot's rights changed
func (d *Discovery) HandlePermissionsChanged(ctx context.Context, chatID int64) SyncResult {
	return d.SyncGroupToDatabase(ctx, chatID, true)
}

// HandleBotRemoved soft-deactivates the group. The record is kept for post
// history and possible re-adds.
func (d *Discovery) HandleBotRemoved(ctx context.Context, chatID int64) error {
	return d.groups.Deactivate(ctx, NormalizeChatID(chatID))
}
