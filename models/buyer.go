package models

import (
	"time"

	"boitata/utils"

	"gorm.io/gorm"
)

// Buyer is a Telegram user who buys content through the bot. It carries the
// aggregate purchase counters incremented on payment confirmation.
type Buyer struct {
	ID uint `gorm:"primaryKey" json:"id"`

	TelegramUserID int64  `gorm:"not null;uniqueIndex:uk_buyers_telegram_user_id" json:"telegram_user_id"`
	DisplayName    string `gorm:"type:varchar(255)" json:"display_name"`

	PurchaseCount   int64 `gorm:"not null;default:0" json:"purchase_count"`
	TotalSpentCents int64 `gorm:"not null;default:0" json:"total_spent_cents"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Buyer) TableName() string {
	return "buyers"
}

// BeforeCreate is called before creating a new record
func (b *Buyer) BeforeCreate(tx *gorm.DB) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = utils.UTCNow()
	}
	return nil
}
