package telegram

import (
	"context"
	"testing"
	"time"

	"boitata/models"
	"boitata/utils"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPhotoBatch_Empty(t *testing.T) {
	api := &fakeBotAPI{}
	d := NewDispatcher(api, openGate(), time.Second)

	ids, err := d.SendPhotoBatch(context.Background(), 100, nil)
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestSendPhotoBatch_OverLimit(t *testing.T) {
	api := &fakeBotAPI{}
	d := NewDispatcher(api, openGate(), time.Second)

	fileIDs := make([]string, MediaGroupLimit+1)
	_, err := d.SendPhotoBatch(context.Background(), 100, fileIDs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "media group limit")
}

func TestSendPhotoBatch_SingleUsesSendPhoto(t *testing.T) {
	var photoCalls, groupCalls int
	api := &fakeBotAPI{
		sendPhoto: func(ctx context.Context, params *bot.SendPhotoParams) (*tgmodels.Message, error) {
			photoCalls++
			return &tgmodels.Message{ID: 77}, nil
		},
		sendMediaGroup: func(ctx context.Context, params *bot.SendMediaGroupParams) ([]*tgmodels.Message, error) {
			groupCalls++
			return nil, nil
		},
	}
	d := NewDispatcher(api, openGate(), time.Second)

	ids, err := d.SendPhotoBatch(context.Background(), 100, []string{"file-1"})
	require.NoError(t, err)
	assert.Equal(t, []int{77}, ids)
	assert.Equal(t, 1, photoCalls)
	assert.Equal(t, 0, groupCalls)
}

func TestSendPhotoBatch_MultipleUsesMediaGroup(t *testing.T) {
	var sentMedia int
	api := &fakeBotAPI{
		sendMediaGroup: func(ctx context.Context, params *bot.SendMediaGroupParams) ([]*tgmodels.Message, error) {
			sentMedia = len(params.Media)
			return []*tgmodels.Message{{ID: 1}, {ID: 2}, {ID: 3}}, nil
		},
	}
	d := NewDispatcher(api, openGate(), time.Second)

	ids, err := d.SendPhotoBatch(context.Background(), 100, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids)
	assert.Equal(t, 3, sentMedia)
}

func TestDispatcher_GateBlocksSends(t *testing.T) {
	api := &fakeBotAPI{
		sendMessage: func(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error) {
			t.Fatal("send must not reach the API while gated")
			return nil, nil
		},
	}

	t.Run("emergency stop", func(t *testing.T) {
		d := NewDispatcher(api, &fakeGate{active: true, stopped: true}, time.Second)
		_, err := d.SendText(context.Background(), 100, "hi")
		assert.ErrorIs(t, err, ErrEmergencyStop)
	})

	t.Run("paused", func(t *testing.T) {
		d := NewDispatcher(api, &fakeGate{active: false}, time.Second)
		_, err := d.SendText(context.Background(), 100, "hi")
		assert.ErrorIs(t, err, ErrDispatchPaused)
	})
}

func TestPost_ImageCarriesCTAButton(t *testing.T) {
	var gotParams *bot.SendPhotoParams
	api := &fakeBotAPI{
		sendPhoto: func(ctx context.Context, params *bot.SendPhotoParams) (*tgmodels.Message, error) {
			gotParams = params
			return &tgmodels.Message{ID: 5}, nil
		},
	}
	d := NewDispatcher(api, openGate(), time.Second)

	creative := &models.Creative{
		Kind:        models.CreativeKindImage,
		MediaFileID: "file-abc",
		Caption:     "caption",
		CTALabel:    "Open",
		CTAURL:      "https://example.com",
		IsCompliant: utils.ToPtr(true),
	}

	res, err := d.Post(context.Background(), -100123, creative)
	require.NoError(t, err)
	assert.Equal(t, 5, res.MessageID)
	assert.Equal(t, int64(-100123), res.ChatID)

	require.NotNil(t, gotParams)
	assert.Equal(t, "caption", gotParams.Caption)
	markup, ok := gotParams.ReplyMarkup.(*tgmodels.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 1)
	assert.Equal(t, "Open", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "https://example.com", markup.InlineKeyboard[0][0].URL)
}

func TestPost_UnsupportedKind(t *testing.T) {
	d := NewDispatcher(&fakeBotAPI{}, openGate(), time.Second)

	_, err := d.Post(context.Background(), 100, &models.Creative{Kind: "sticker"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported creative kind")
}

func TestCTAMarkup(t *testing.T) {
	t.Run("no url means no markup", func(t *testing.T) {
		assert.Nil(t, ctaMarkup(&models.Creative{}))
	})

	t.Run("label falls back to the url", func(t *testing.T) {
		markup := ctaMarkup(&models.Creative{CTAURL: "https://example.com"})
		keyboard, ok := markup.(*tgmodels.InlineKeyboardMarkup)
		require.True(t, ok)
		assert.Equal(t, "https://example.com", keyboard.InlineKeyboard[0][0].Text)
	})
}
