package telegram

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// fakeBotAPI implements BotAPI with per-call function hooks. Calls without a
// hook fail loudly so tests only exercise the surface they configure.
type fakeBotAPI struct {
	getMe              func(ctx context.Context) (*tgmodels.User, error)
	getChat            func(ctx context.Context, params *bot.GetChatParams) (*tgmodels.ChatFullInfo, error)
	getChatMember      func(ctx context.Context, params *bot.GetChatMemberParams) (*tgmodels.ChatMember, error)
	getChatMemberCount func(ctx context.Context, params *bot.GetChatMemberCountParams) (int, error)
	sendMessage        func(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
	sendPhoto          func(ctx context.Context, params *bot.SendPhotoParams) (*tgmodels.Message, error)
	sendVideo          func(ctx context.Context, params *bot.SendVideoParams) (*tgmodels.Message, error)
	sendMediaGroup     func(ctx context.Context, params *bot.SendMediaGroupParams) ([]*tgmodels.Message, error)
	deleteMessage      func(ctx context.Context, params *bot.DeleteMessageParams) (bool, error)
}

var errNotConfigured = errors.New("fake call not configured")

func (f *fakeBotAPI) GetMe(ctx context.Context) (*tgmodels.User, error) {
	if f.getMe == nil {
		return nil, errNotConfigured
	}
	return f.getMe(ctx)
}

func (f *fakeBotAPI) GetChat(ctx context.Context, params *bot.GetChatParams) (*tgmodels.ChatFullInfo, error) {
	if f.getChat == nil {
		return nil, errNotConfigured
	}
	return f.getChat(ctx, params)
}

func (f *fakeBotAPI) GetChatMember(ctx context.Context, params *bot.GetChatMemberParams) (*tgmodels.ChatMember, error) {
	if f.getChatMember == nil {
		return nil, errNotConfigured
	}
	return f.getChatMember(ctx, params)
}

func (f *fakeBotAPI) GetChatMemberCount(ctx context.Context, params *bot.GetChatMemberCountParams) (int, error) {
	if f.getChatMemberCount == nil {
		return 0, errNotConfigured
	}
	return f.getChatMemberCount(ctx, params)
}

func (f *fakeBotAPI) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
	if f.sendMessage == nil {
		return nil, errNotConfigured
	}
	return f.sendMessage(ctx, params)
}

func (f *fakeBotAPI) SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*tgmodels.Message, error) {
	if f.sendPhoto == nil {
		return nil, errNotConfigured
	}
	return f.sendPhoto(ctx, params)
}

func (f *fakeBotAPI) SendVideo(ctx context.Context, params *bot.SendVideoParams) (*tgmodels.Message, error) {
	if f.sendVideo == nil {
		return nil, errNotConfigured
	}
	return f.sendVideo(ctx, params)
}

func (f *fakeBotAPI) SendMediaGroup(ctx context.Context, params *bot.SendMediaGroupParams) ([]*tgmodels.Message, error) {
	if f.sendMediaGroup == nil {
		return nil, errNotConfigured
	}
	return f.sendMediaGroup(ctx, params)
}

func (f *fakeBotAPI) DeleteMessage(ctx context.Context, params *bot.DeleteMessageParams) (bool, error) {
	if f.deleteMessage == nil {
		return false, errNotConfigured
	}
	return f.deleteMessage(ctx, params)
}

// fakeGate is a SendGate with fixed flag values
type fakeGate struct {
	active  bool
	stopped bool
}

func (g *fakeGate) BotActive(ctx context.Context) (bool, error)     { return g.active, nil }
func (g *fakeGate) EmergencyStop(ctx context.Context) (bool, error) { return g.stopped, nil }

func openGate() *fakeGate {
	return &fakeGate{active: true}
}
