package dto

import "time"

// CreateCheckoutRequest opens a purchase for a buyer and provisions the PIX charge
type CreateCheckoutRequest struct {
	BuyerTelegramID int64  `json:"buyer_telegram_id" validate:"required"` // Buyer's Telegram user id
	BuyerChatID     int64  `json:"buyer_chat_id" validate:"required"`     // Private chat to deliver content into
	BuyerName       string `json:"buyer_name" validate:"max=255"`
	ModelID         uint   `json:"model_id" validate:"required"`
	ProductID       uint   `json:"product_id" validate:"required"`
}

// CreateCheckoutResponse carries the PIX payment material the buyer pays with
type CreateCheckoutResponse struct {
	PurchaseUUID string     `json:"purchase_uuid"`
	Status       string     `json:"status"`
	AmountCents  int64      `json:"amount_cents"`
	Currency     string     `json:"currency"`
	PixKey       string     `json:"pix_key"`
	PixQRCode    string     `json:"pix_qr_code"`
	PixCopyPaste string     `json:"pix_copy_paste"`
	PixExpiresAt *time.Time `json:"pix_expires_at,omitempty"`
	CreatedAt    string     `json:"created_at"`
}

// PurchaseStatusResponse is the manual status-check result
type PurchaseStatusResponse struct {
	PurchaseUUID string     `json:"purchase_uuid"`
	Status       string     `json:"status"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}
