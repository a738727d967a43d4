package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"boitata/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PurchaseStatus represents the lifecycle state of a purchase
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusPaid      PurchaseStatus = "paid"
	PurchaseStatusCompleted PurchaseStatus = "completed"
	PurchaseStatusFailed    PurchaseStatus = "failed"
	PurchaseStatusRefunded  PurchaseStatus = "refunded"
	PurchaseStatusExpired   PurchaseStatus = "expired"
)

// String returns the string representation of the status
func (s PurchaseStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s PurchaseStatus) Valid() bool {
	switch s {
	case PurchaseStatusPending, PurchaseStatusPaid, PurchaseStatusCompleted,
		PurchaseStatusFailed, PurchaseStatusRefunded, PurchaseStatusExpired:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are allowed
func (s PurchaseStatus) IsTerminal() bool {
	switch s {
	case PurchaseStatusCompleted, PurchaseStatusFailed,
		PurchaseStatusRefunded, PurchaseStatusExpired:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for PurchaseStatus
func (s *PurchaseStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = PurchaseStatus(v)
	case []byte:
		*s = PurchaseStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into PurchaseStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for PurchaseStatus
func (s PurchaseStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid PurchaseStatus: %s", s)
	}
	return string(s), nil
}

// SentMessageBatch records messages delivered to the buyer's chat so they can
// be removed later, e.g. on subscription expiry
type SentMessageBatch struct {
	ChatID     int64     `json:"chat_id"`
	MessageIDs []int     `json:"message_ids"`
	SentAt     time.Time `json:"sent_at"`
}

// SentMessageLedger is the append-only list of delivered message batches
type SentMessageLedger []SentMessageBatch

// Value implements the driver.Valuer interface for SentMessageLedger
func (l SentMessageLedger) Value() (driver.Value, error) {
	if l == nil {
		l = SentMessageLedger{}
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for SentMessageLedger
func (l *SentMessageLedger) Scan(value any) error {
	if value == nil {
		*l = SentMessageLedger{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SentMessageLedger", value)
	}

	return json.Unmarshal(bytes, l)
}

// Purchase models a buyer's purchase of a product. It exclusively owns its
// Transaction and its product snapshot; the model/product references are weak,
// the snapshot is authoritative for what was sold.
type Purchase struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_purchases_uuid" json:"uuid"`

	BuyerID        uint   `gorm:"not null;index:idx_purchases_buyer_id" json:"buyer_id"`
	BuyerChatID    int64  `gorm:"not null" json:"buyer_chat_id"`
	BuyerName      string `gorm:"type:varchar(255)" json:"buyer_name"`
	ModelID        uint   `gorm:"not null" json:"model_id"`
	ProductID      uint   `gorm:"not null" json:"product_id"`

	Snapshot ProductSnapshot `gorm:"type:jsonb;not null" json:"snapshot"`

	AmountCents int64          `gorm:"not null" json:"amount_cents"`
	Currency    string         `gorm:"type:varchar(3);not null;default:'BRL'" json:"currency"`
	Status      PurchaseStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_purchases_status" json:"status"`

	PaidAt      *time.Time `json:"paid_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ExpiresAt   *time.Time `gorm:"index:idx_purchases_expires_at" json:"expires_at,omitempty"`

	SentMessages SentMessageLedger `gorm:"type:jsonb;not null;default:'[]'" json:"sent_messages"`

	ExpiryNotified *bool `gorm:"default:false" json:"expiry_notified"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_purchases_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	Buyer       *Buyer        `gorm:"foreignKey:BuyerID;references:ID" json:"buyer,omitempty"`
	Model       *ModelProfile `gorm:"foreignKey:ModelID;references:ID" json:"model,omitempty"`
	Transaction *Transaction  `gorm:"foreignKey:PurchaseID" json:"transaction,omitempty"`
}

// TableName returns the table name for the model
func (Purchase) TableName() string {
	return "purchases"
}

// BeforeCreate is called before creating a new record
func (p *Purchase) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	if p.Status == "" {
		p.Status = PurchaseStatusPending
	}
	if p.SentMessages == nil {
		p.SentMessages = SentMessageLedger{}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (p *Purchase) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	p.UpdatedAt = &now
	return nil
}

// CanTransitionTo checks if the purchase can transition to the given status
func (p *Purchase) CanTransitionTo(newStatus PurchaseStatus) bool {
	if !newStatus.Valid() || newStatus == p.Status {
		return false
	}
	switch p.Status {
	case PurchaseStatusPending:
		return newStatus == PurchaseStatusPaid ||
			newStatus == PurchaseStatusFailed ||
			newStatus == PurchaseStatusExpired
	case PurchaseStatusPaid:
		return newStatus == PurchaseStatusCompleted ||
			newStatus == PurchaseStatusRefunded ||
			newStatus == PurchaseStatusExpired
	case PurchaseStatusCompleted:
		// Delivered subscriptions may still expire
		return newStatus == PurchaseStatusExpired
	default:
		return false
	}
}

// PurchaseFilter represents filter criteria for purchases
type PurchaseFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	BuyerID       *uint           `json:"buyer_id,omitempty"`
	ModelID       *uint           `json:"model_id,omitempty"`
	ProductID     *uint           `json:"product_id,omitempty"`
	Status        *PurchaseStatus `json:"status,omitempty"`
	ExpiresBefore *time.Time      `json:"expires_before,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}
