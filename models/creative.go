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

// CreativeKind represents the media kind of a creative
type CreativeKind string

const (
	CreativeKindImage CreativeKind = "image"
	CreativeKindVideo CreativeKind = "video"
	CreativeKindText  CreativeKind = "text"
)

// Valid checks if the kind is valid
func (k CreativeKind) Valid() bool {
	switch k {
	case CreativeKindImage, CreativeKindVideo, CreativeKindText:
		return true
	default:
		return false
	}
}

// CreativeStats holds usage and performance counters for a creative
type CreativeStats struct {
	TimesPosted int64   `json:"times_posted"`
	Views       int64   `json:"views"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
}

// Value implements the driver.Valuer interface for CreativeStats
func (s CreativeStats) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for CreativeStats
func (s *CreativeStats) Scan(value any) error {
	if value == nil {
		*s = CreativeStats{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CreativeStats", value)
	}

	return json.Unmarshal(bytes, s)
}

// Creative represents a single piece of ad content usable across campaigns
type Creative struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_creatives_uuid" json:"uuid"`

	Kind CreativeKind `gorm:"type:varchar(10);not null" json:"kind"`

	// Telegram file id for image/video kinds; empty for text
	MediaFileID string `gorm:"type:varchar(255)" json:"media_file_id"`
	Caption     string `gorm:"type:text" json:"caption"`

	CTALabel string `gorm:"type:varchar(100)" json:"cta_label"`
	CTAURL   string `gorm:"type:varchar(500)" json:"cta_url"`

	IsCompliant *bool `gorm:"default:true" json:"is_compliant"`

	Stats CreativeStats `gorm:"type:jsonb;not null;default:'{}'" json:"stats"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Creative) TableName() string {
	return "creatives"
}

// BeforeCreate is called before creating a new record
func (c *Creative) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Creative) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// CreativeFilter represents filter criteria for creatives
type CreativeFilter struct {
	ID          *uint         `json:"id,omitempty"`
	UUID        *uuid.UUID    `json:"uuid,omitempty"`
	Kind        *CreativeKind `json:"kind,omitempty"`
	IsCompliant *bool         `json:"is_compliant,omitempty"`
}
