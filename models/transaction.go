package models

import (
	"time"

	"boitata/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionStatus mirrors (and drives) the owning purchase's status
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusPaid     TransactionStatus = "paid"
	TransactionStatusFailed   TransactionStatus = "failed"
	TransactionStatusRefunded TransactionStatus = "refunded"
	TransactionStatusExpired  TransactionStatus = "expired"
)

// Valid checks if the status is valid
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusPaid, TransactionStatusFailed,
		TransactionStatusRefunded, TransactionStatusExpired:
		return true
	default:
		return false
	}
}

// Transaction is the PIX payment record owned one-to-one by a Purchase
type Transaction struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_transactions_uuid" json:"uuid"`
	PurchaseID uint      `gorm:"not null;uniqueIndex:uk_transactions_purchase_id" json:"purchase_id"`

	Status      TransactionStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_transactions_status" json:"status"`
	AmountCents int64             `gorm:"not null" json:"amount_cents"`
	Currency    string            `gorm:"type:varchar(3);not null;default:'BRL'" json:"currency"`

	// PIX payment details from the gateway
	PixKey       string     `gorm:"type:varchar(255)" json:"pix_key"`
	PixQRCode    string     `gorm:"type:text" json:"pix_qr_code"`
	PixCopyPaste string     `gorm:"type:text" json:"pix_copy_paste"`
	PixExpiresAt *time.Time `json:"pix_expires_at,omitempty"`

	// Gateway payment id, the lookup key for inbound webhook events
	ExternalID string `gorm:"type:varchar(255);not null;uniqueIndex:uk_transactions_external_id" json:"external_id"`

	PaidAt        *time.Time `json:"paid_at,omitempty"`
	FailureReason *string    `gorm:"type:text" json:"failure_reason,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	Purchase *Purchase `gorm:"foreignKey:PurchaseID;references:ID" json:"purchase,omitempty"`
}

// TableName returns the table name for the model
func (Transaction) TableName() string {
	return "transactions"
}

// BeforeCreate is called before creating a new record
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.Status == "" {
		t.Status = TransactionStatusPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	t.UpdatedAt = &now
	return nil
}

// IsPending returns true if the transaction is still awaiting payment
func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}

// TransactionFilter represents filter criteria for transaction queries
type TransactionFilter struct {
	ID         *uint              `json:"id,omitempty"`
	UUID       *uuid.UUID         `json:"uuid,omitempty"`
	PurchaseID *uint              `json:"purchase_id,omitempty"`
	Status     *TransactionStatus `json:"status,omitempty"`
	ExternalID *string            `json:"external_id,omitempty"`
}
