package models

import (
	"time"

	"boitata/utils"

	"gorm.io/gorm"
)

// PostRecord is the append-only history of ad posts actually sent to groups.
// Rotation state can be rebuilt from it, and the analytics job aggregates it
// into campaign performance counters.
type PostRecord struct {
	ID          uint  `gorm:"primaryKey" json:"id"`
	CampaignID  uint  `gorm:"not null;index:idx_post_records_campaign_id" json:"campaign_id"`
	GroupChatID int64 `gorm:"not null;index:idx_post_records_group_chat_id" json:"group_chat_id"`
	CreativeID  uint  `gorm:"not null" json:"creative_id"`

	MessageID int       `gorm:"not null" json:"message_id"`
	PostedAt  time.Time `gorm:"not null;index:idx_post_records_posted_at" json:"posted_at"`

	// Filled in later by the analytics aggregation job
	Views  int64 `gorm:"not null;default:0" json:"views"`
	Clicks int64 `gorm:"not null;default:0" json:"clicks"`

	Aggregated *bool `gorm:"default:false;index:idx_post_records_aggregated" json:"aggregated"`

	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Creative *Creative `gorm:"foreignKey:CreativeID;references:ID" json:"creative,omitempty"`
}

// TableName returns the table name for the model
func (PostRecord) TableName() string {
	return "post_records"
}

// BeforeCreate is called before creating a new record
func (p *PostRecord) BeforeCreate(tx *gorm.DB) error {
	if p.PostedAt.IsZero() {
		p.PostedAt = utils.UTCNow()
	}
	return nil
}

// PostRecordFilter represents filter criteria for post records
type PostRecordFilter struct {
	CampaignID   *uint      `json:"campaign_id,omitempty"`
	GroupChatID  *int64     `json:"group_chat_id,omitempty"`
	CreativeID   *uint      `json:"creative_id,omitempty"`
	Aggregated   *bool      `json:"aggregated,omitempty"`
	PostedAfter  *time.Time `json:"posted_after,omitempty"`
	PostedBefore *time.Time `json:"posted_before,omitempty"`
}
