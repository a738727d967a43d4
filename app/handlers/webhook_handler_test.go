package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"boitata/app/dto"
	businessflow "boitata/business_flow"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePurchaseFlow scripts the flow outcome per test
type fakePurchaseFlow struct {
	ack    *dto.WebhookAckResponse
	err    error
	events []*dto.ArkamaWebhookEvent
}

func (f *fakePurchaseFlow) CreateCheckout(ctx context.Context, req *dto.CreateCheckoutRequest) (*dto.CreateCheckoutResponse, error) {
	return nil, nil
}

func (f *fakePurchaseFlow) HandleWebhook(ctx context.Context, event *dto.ArkamaWebhookEvent) (*dto.WebhookAckResponse, error) {
	f.events = append(f.events, event)
	return f.ack, f.err
}

func (f *fakePurchaseFlow) CheckStatus(ctx context.Context, purchaseUUID string) (*dto.PurchaseStatusResponse, error) {
	return nil, nil
}

func webhookApp(flow businessflow.PurchaseFlow, secret string, strict bool) *fiber.App {
	app := fiber.New()
	h := NewWebhookHandler(flow, secret, strict)
	app.Post("/webhook", h.HandleArkamaWebhook)
	app.Get("/webhook", h.ListAcceptedEvents)
	return app
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func confirmedBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(dto.ArkamaWebhookEvent{
		Event:   dto.WebhookEventPaymentConfirmed,
		Payment: dto.ArkamaWebhookPayment{ID: "pay_1", Status: "paid", AmountCents: 2990},
	})
	require.NoError(t, err)
	return body
}

func postWebhook(t *testing.T, app *fiber.App, body []byte, signature string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("x-arkama-signature", signature)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) dto.APIResponse {
	t.Helper()
	var out dto.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHandleArkamaWebhook_Applied(t *testing.T) {
	flow := &fakePurchaseFlow{ack: &dto.WebhookAckResponse{
		Message:        "payment confirmed",
		PurchaseUUID:   "uuid-1",
		PurchaseStatus: "paid",
	}}
	app := webhookApp(flow, "secret", true)

	body := confirmedBody(t)
	resp := postWebhook(t, app, body, sign("secret", body))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeResponse(t, resp)
	assert.True(t, out.Success)
	require.Len(t, flow.events, 1)
	assert.Equal(t, dto.WebhookEventPaymentConfirmed, flow.events[0].Event)
}

func TestHandleArkamaWebhook_BadSignature(t *testing.T) {
	flow := &fakePurchaseFlow{}
	app := webhookApp(flow, "secret", true)

	resp := postWebhook(t, app, confirmedBody(t), "deadbeef")

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, flow.events)
}

func TestHandleArkamaWebhook_MissingSecret(t *testing.T) {
	t.Run("strict mode refuses", func(t *testing.T) {
		flow := &fakePurchaseFlow{}
		app := webhookApp(flow, "", true)

		resp := postWebhook(t, app, confirmedBody(t), "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Empty(t, flow.events)
	})

	t.Run("non-strict mode serves unverified", func(t *testing.T) {
		flow := &fakePurchaseFlow{ack: &dto.WebhookAckResponse{Message: "payment confirmed"}}
		app := webhookApp(flow, "", false)

		resp := postWebhook(t, app, confirmedBody(t), "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, flow.events, 1)
	})
}

func TestHandleArkamaWebhook_InvalidBody(t *testing.T) {
	app := webhookApp(&fakePurchaseFlow{}, "secret", true)

	body := []byte("{not json")
	resp := postWebhook(t, app, body, sign("secret", body))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleArkamaWebhook_MissingFieldsFailValidation(t *testing.T) {
	app := webhookApp(&fakePurchaseFlow{}, "secret", true)

	body := []byte(`{"payment":{"id":"pay_1"}}`)
	resp := postWebhook(t, app, body, sign("secret", body))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleArkamaWebhook_Duplicate(t *testing.T) {
	flow := &fakePurchaseFlow{ack: &dto.WebhookAckResponse{
		Message:   "already processed",
		Duplicate: true,
	}}
	app := webhookApp(flow, "secret", true)

	body := confirmedBody(t)
	resp := postWebhook(t, app, body, sign("secret", body))

	// Duplicates are acknowledged so the gateway stops retrying
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeResponse(t, resp)
	assert.True(t, out.Success)
	assert.Equal(t, "already processed", out.Message)
}

func TestHandleArkamaWebhook_NotFound(t *testing.T) {
	flow := &fakePurchaseFlow{err: businessflow.NewBusinessError(
		"TRANSACTION_NOT_FOUND", "Transaction not found", businessflow.ErrTransactionNotFound)}
	app := webhookApp(flow, "secret", true)

	body := confirmedBody(t)
	resp := postWebhook(t, app, body, sign("secret", body))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleArkamaWebhook_UnknownEvent(t *testing.T) {
	flow := &fakePurchaseFlow{err: businessflow.NewBusinessError(
		"UNKNOWN_EVENT", "Unrecognized webhook event", businessflow.ErrUnknownEvent)}
	app := webhookApp(flow, "secret", true)

	body := confirmedBody(t)
	resp := postWebhook(t, app, body, sign("secret", body))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListAcceptedEvents(t *testing.T) {
	app := webhookApp(&fakePurchaseFlow{}, "secret", true)

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeResponse(t, resp)
	assert.True(t, out.Success)
}
