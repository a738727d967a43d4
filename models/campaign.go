// Package models contains domain entities and business models for the ad posting platform
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"boitata/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// CampaignStatus represents the status of a campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusEnded     CampaignStatus = "ended"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive, CampaignStatusPaused,
		CampaignStatusScheduled, CampaignStatusEnded:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// CampaignType represents the vertical a campaign advertises
type CampaignType string

const (
	CampaignTypeOnlyfans CampaignType = "onlyfans"
	CampaignTypeCasino   CampaignType = "casino"
)

// Valid checks if the type is valid
func (t CampaignType) Valid() bool {
	return t == CampaignTypeOnlyfans || t == CampaignTypeCasino
}

// CampaignSchedule holds scheduling and posting-cap settings
type CampaignSchedule struct {
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	// Posting caps; zero means unlimited
	DailyPostCap  int `json:"daily_post_cap,omitempty"`
	WeeklyPostCap int `json:"weekly_post_cap,omitempty"`

	// Minimum interval between posts to the same group, in minutes.
	// Zero falls back to the engine default.
	GroupCooldownMinutes int `json:"group_cooldown_minutes,omitempty"`
}

// Value implements the driver.Valuer interface for CampaignSchedule
func (s CampaignSchedule) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for CampaignSchedule
func (s *CampaignSchedule) Scan(value any) error {
	if value == nil {
		*s = CampaignSchedule{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CampaignSchedule", value)
	}

	return json.Unmarshal(bytes, s)
}

// CampaignPerformance holds aggregate performance counters for a campaign
type CampaignPerformance struct {
	Posts        int64   `json:"posts"`
	Views        int64   `json:"views"`
	Clicks       int64   `json:"clicks"`
	RevenueCents int64   `json:"revenue_cents"`
	CTR          float64 `json:"ctr"`
	Engagement   float64 `json:"engagement"`
}

// Value implements the driver.Valuer interface for CampaignPerformance
func (p CampaignPerformance) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for CampaignPerformance
func (p *CampaignPerformance) Scan(value any) error {
	if value == nil {
		*p = CampaignPerformance{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CampaignPerformance", value)
	}

	return json.Unmarshal(bytes, p)
}

// Campaign represents an advertising campaign in the database
type Campaign struct {
	ID       uint           `gorm:"primaryKey" json:"id"`
	UUID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	Name     string         `gorm:"type:varchar(255);not null" json:"name"`
	Type     CampaignType   `gorm:"type:varchar(20);not null;index:idx_campaigns_type" json:"type"`
	Status   CampaignStatus `gorm:"type:varchar(20);not null;default:'draft';index:idx_campaigns_status" json:"status"`
	Priority int            `gorm:"not null;default:0" json:"priority"`

	Schedule CampaignSchedule `gorm:"type:jsonb;not null;default:'{}'" json:"schedule"`

	// Targeting by Telegram chat id; excluded wins over included
	IncludedGroupIDs pq.Int64Array `gorm:"type:bigint[]" json:"included_group_ids"`
	ExcludedGroupIDs pq.Int64Array `gorm:"type:bigint[]" json:"excluded_group_ids"`

	// Ordered rotation list of creative ids
	CreativeIDs pq.Int64Array `gorm:"type:bigint[]" json:"creative_ids"`

	Performance CampaignPerformance `gorm:"type:jsonb;not null;default:'{}'" json:"performance"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// CanTransitionTo checks if the campaign can transition to the given status.
// Transitions are monotone except paused<->active; ended is terminal.
func (c *Campaign) CanTransitionTo(newStatus CampaignStatus) bool {
	if !newStatus.Valid() || newStatus == c.Status {
		return false
	}
	switch c.Status {
	case CampaignStatusDraft:
		return newStatus == CampaignStatusScheduled ||
			newStatus == CampaignStatusActive ||
			newStatus == CampaignStatusEnded
	case CampaignStatusScheduled:
		return newStatus == CampaignStatusActive ||
			newStatus == CampaignStatusEnded
	case CampaignStatusActive:
		return newStatus == CampaignStatusPaused ||
			newStatus == CampaignStatusEnded
	case CampaignStatusPaused:
		return newStatus == CampaignStatusActive ||
			newStatus == CampaignStatusEnded
	default:
		return false
	}
}

// IsPostable reports whether the rotation engine may enqueue posts for the campaign
func (c *Campaign) IsPostable(now time.Time) bool {
	if c.Status != CampaignStatusActive {
		return false
	}
	if c.Schedule.StartDate != nil && now.Before(*c.Schedule.StartDate) {
		return false
	}
	if c.Schedule.EndDate != nil && now.After(*c.Schedule.EndDate) {
		return false
	}
	return len(c.CreativeIDs) > 0
}

// GroupCooldown returns the per-group cooldown, falling back to def when unset
func (c *Campaign) GroupCooldown(def time.Duration) time.Duration {
	if c.Schedule.GroupCooldownMinutes > 0 {
		return time.Duration(c.Schedule.GroupCooldownMinutes) * time.Minute
	}
	return def
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	Type          *CampaignType   `json:"type,omitempty"`
	Status        *CampaignStatus `json:"status,omitempty"`
	Name          *string         `json:"name,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
}
