package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boitata/models"
	"boitata/utils"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// Dispatch failure modes. Paused/stopped sends are rejected before touching
// the network so queue retries back off without burning API quota.
var (
	ErrDispatchPaused = errors.New("bot is paused")
	ErrEmergencyStop  = errors.New("emergency stop engaged")
)

// PostResult identifies the message produced by a successful post
type PostResult struct {
	ChatID    int64
	MessageID int
	PostedAt  time.Time
}

// SendGate exposes the circuit breaker flags checked before every send.
// *FlagStore satisfies it; tests substitute fakes.
type SendGate interface {
	BotActive(ctx context.Context) (bool, error)
	EmergencyStop(ctx context.Context) (bool, error)
}

// Dispatcher sends campaign posts and purchased content through the bot API,
// gated on the process-wide circuit breaker flags.
type Dispatcher struct {
	api     BotAPI
	flags   SendGate
	timeout time.Duration
}

// NewDispatcher creates a dispatcher. Every outbound call is bounded by the
// given timeout.
func NewDispatcher(api BotAPI, flags SendGate, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{api: api, flags: flags, timeout: timeout}
}

// gate rejects sends while the bot is paused or the kill switch is engaged
func (d *Dispatcher) gate(ctx context.Context) error {
	stopped, err := d.flags.EmergencyStop(ctx)
	if err != nil {
		return err
	}
	if stopped {
		return ErrEmergencyStop
	}

	active, err := d.flags.BotActive(ctx)
	if err != nil {
		return err
	}
	if !active {
		return ErrDispatchPaused
	}
	return nil
}

func (d *Dispatcher) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.timeout)
}

// Post sends one creative to one group and returns the produced message id
func (d *Dispatcher) Post(ctx context.Context, chatID int64, creative *models.Creative) (*PostResult, error) {
	if err := d.gate(ctx); err != nil {
		return nil, err
	}

	callCtx, cancel := d.bound(ctx)
	defer cancel()

	markup := ctaMarkup(creative)

	var msg *tgmodels.Message
	var err error

	switch creative.Kind {
	case models.CreativeKindImage:
		msg, err = d.api.SendPhoto(callCtx, &bot.SendPhotoParams{
			ChatID:      chatID,
			Photo:       &tgmodels.InputFileString{Data: creative.MediaFileID},
			Caption:     creative.Caption,
			ReplyMarkup: markup,
		})
	case models.CreativeKindVideo:
		msg, err = d.api.SendVideo(callCtx, &bot.SendVideoParams{
			ChatID:      chatID,
			Video:       &tgmodels.InputFileString{Data: creative.MediaFileID},
			Caption:     creative.Caption,
			ReplyMarkup: markup,
		})
	case models.CreativeKindText:
		msg, err = d.api.SendMessage(callCtx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        creative.Caption,
			ReplyMarkup: markup,
		})
	default:
		return nil, fmt.Errorf("unsupported creative kind %q", creative.Kind)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to post creative %d to group %d: %w", creative.ID, chatID, err)
	}

	return &PostResult{
		ChatID:    chatID,
		MessageID: msg.ID,
		PostedAt:  utils.UTCNow(),
	}, nil
}

// SendText sends a plain text message and returns its message id
func (d *Dispatcher) SendText(ctx context.Context, chatID int64, text string) (int, error) {
	if err := d.gate(ctx); err != nil {
		return 0, err
	}

	callCtx, cancel := d.bound(ctx)
	defer cancel()

	msg, err := d.api.SendMessage(callCtx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	if err != nil {
		return 0, fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return msg.ID, nil
}

// SendTextWithButton sends a text message with a single url button
func (d *Dispatcher) SendTextWithButton(ctx context.Context, chatID int64, text, label, url string) (int, error) {
	if err := d.gate(ctx); err != nil {
		return 0, err
	}

	callCtx, cancel := d.bound(ctx)
	defer cancel()

	msg, err := d.api.SendMessage(callCtx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
		ReplyMarkup: &tgmodels.InlineKeyboardMarkup{
			InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
				{Text: label, URL: url},
			}},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return msg.ID, nil
}

// SendPhotoBatch sends up to MediaGroupLimit photos in one call. A batch of
// exactly one photo goes through the single-photo endpoint, which is the only
// valid call shape for one item.
func (d *Dispatcher) SendPhotoBatch(ctx context.Context, chatID int64, fileIDs []string) ([]int, error) {
	if err := d.gate(ctx); err != nil {
		return nil, err
	}
	if len(fileIDs) == 0 {
		return nil, nil
	}
	if len(fileIDs) > MediaGroupLimit {
		return nil, fmt.Errorf("batch of %d exceeds media group limit %d", len(fileIDs), MediaGroupLimit)
	}

	callCtx, cancel := d.bound(ctx)
	defer cancel()

	if len(fileIDs) == 1 {
		msg, err := d.api.SendPhoto(callCtx, &bot.SendPhotoParams{
			ChatID: chatID,
			Photo:  &tgmodels.InputFileString{Data: fileIDs[0]},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to send photo to chat %d: %w", chatID, err)
		}
		return []int{msg.ID}, nil
	}

	media := make([]tgmodels.InputMedia, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		media = append(media, &tgmodels.InputMediaPhoto{Media: fileID})
	}

	msgs, err := d.api.SendMediaGroup(callCtx, &bot.SendMediaGroupParams{
		ChatID: chatID,
		Media:  media,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send media group to chat %d: %w", chatID, err)
	}

	ids := make([]int, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// DeleteMessage removes a previously sent message (subscription expiry)
func (d *Dispatcher) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	callCtx, cancel := d.bound(ctx)
	defer cancel()

	if _, err := d.api.DeleteMessage(callCtx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	}); err != nil {
		return fmt.Errorf("failed to delete message %d in chat %d: %w", messageID, chatID, err)
	}
	return nil
}

// MediaGroupLimit is Telegram's cap on items per media group call
const MediaGroupLimit = 10

func ctaMarkup(creative *models.Creative) tgmodels.ReplyMarkup {
	if creative.CTAURL == "" {
		return nil
	}
	label := creative.CTALabel
	if label == "" {
		label = creative.CTAURL
	}
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{{
			{Text: label, URL: creative.CTAURL},
		}},
	}
}
