package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// PixGateway abstracts the payment provider used for PIX checkouts
type PixGateway interface {
	// CreatePixCharge provisions a PIX charge and returns the gateway's
	// payment id plus the key/QR material the buyer pays with
	CreatePixCharge(ctx context.Context, in CreateChargeInput) (*PixCharge, error)
	// GetPaymentStatus fetches the current status of a charge by the
	// gateway's payment id
	GetPaymentStatus(ctx context.Context, externalID string) (*PaymentStatus, error)
}

// CreateChargeInput describes the charge to provision
type CreateChargeInput struct {
	ReferenceID string `json:"reference_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	BuyerName   string `json:"buyer_name,omitempty"`
}

// PixCharge is the provisioned charge returned by the gateway
type PixCharge struct {
	ExternalID   string     `json:"external_id"`
	PixKey       string     `json:"pix_key"`
	PixQRCode    string     `json:"pix_qr_code"`
	PixCopyPaste string     `json:"pix_copy_paste"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// PaymentStatus is the gateway's view of a charge
type PaymentStatus struct {
	ExternalID string     `json:"external_id"`
	Status     string     `json:"status"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
}

// ErrChargeNotFound means the gateway does not know the payment id
var ErrChargeNotFound = errors.New("arkama: charge not found")

// ArkamaClient implements PixGateway against the Arkama HTTP API
type ArkamaClient struct {
	http *resty.Client
}

// NewArkamaClient creates a gateway client with a bounded request timeout
func NewArkamaClient(baseURL, apiKey string, timeout time.Duration) *ArkamaClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	return &ArkamaClient{http: client}
}

type arkamaError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type arkamaChargeResponse struct {
	ID        string     `json:"id"`
	Status    string     `json:"status"`
	PaidAt    *time.Time `json:"paid_at"`
	ExpiresAt *time.Time `json:"expires_at"`
	Pix       struct {
		Key       string `json:"key"`
		QRCode    string `json:"qr_code"`
		CopyPaste string `json:"copy_paste"`
	} `json:"pix"`
}

// CreatePixCharge provisions a PIX charge
func (c *ArkamaClient) CreatePixCharge(ctx context.Context, in CreateChargeInput) (*PixCharge, error) {
	var out arkamaChargeResponse
	var apiErr arkamaError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"reference_id": in.ReferenceID,
			"amount":       in.AmountCents,
			"currency":     in.Currency,
			"description":  in.Description,
			"buyer_name":   in.BuyerName,
			"method":       "pix",
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/charges")
	if err != nil {
		return nil, fmt.Errorf("arkama: create charge request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("arkama: create charge returned %d: %s %s", resp.StatusCode(), apiErr.Code, apiErr.Message)
	}
	if out.ID == "" {
		return nil, errors.New("arkama: empty charge id in response")
	}

	return &PixCharge{
		ExternalID:   out.ID,
		PixKey:       out.Pix.Key,
		PixQRCode:    out.Pix.QRCode,
		PixCopyPaste: out.Pix.CopyPaste,
		ExpiresAt:    out.ExpiresAt,
	}, nil
}

// GetPaymentStatus fetches the charge status by the gateway's payment id
func (c *ArkamaClient) GetPaymentStatus(ctx context.Context, externalID string) (*PaymentStatus, error) {
	var out arkamaChargeResponse
	var apiErr arkamaError

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&apiErr).
		Get("/v1/charges/" + externalID)
	if err != nil {
		return nil, fmt.Errorf("arkama: status request failed: %w", err)
	}
	if resp.StatusCode() == 404 {
		return nil, ErrChargeNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("arkama: status returned %d: %s %s", resp.StatusCode(), apiErr.Code, apiErr.Message)
	}

	return &PaymentStatus{
		ExternalID: out.ID,
		Status:     out.Status,
		PaidAt:     out.PaidAt,
	}, nil
}
