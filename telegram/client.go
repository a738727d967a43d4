// Package telegram wraps the bot API surface the platform consumes: sending
// posts and purchased content, group metadata lookups, and group discovery.
package telegram

import (
	"context"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// BotAPI is the subset of the bot client the platform depends on. *bot.Bot
// satisfies it directly; tests substitute fakes.
type BotAPI interface {
	GetMe(ctx context.Context) (*tgmodels.User, error)
	GetChat(ctx context.Context, params *bot.GetChatParams) (*tgmodels.ChatFullInfo, error)
	GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*tgmodels.ChatMember, error)
	GetChatMemberCount(ctx context.Context, params *bot.GetChatMemberCountParams) (int, error)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*tgmodels.Message, error)
	SendVideo(ctx context.Context, params *bot.SendVideoParams) (*tgmodels.Message, error)
	SendMediaGroup(ctx context.Context, params *bot.SendMediaGroupParams) ([]*tgmodels.Message, error)
	DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

// NewBot connects to the Telegram API with the given token
func NewBot(token string, opts ...bot.Option) (*bot.Bot, error) {
	return bot.New(token, opts...)
}
