package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"boitata/utils"

	"gorm.io/gorm"
)

// GroupRotation tracks the last post made to a single group
type GroupRotation struct {
	LastPostAt     time.Time `json:"last_post_at"`
	LastCreativeID int64     `json:"last_creative_id"`
}

// GroupRotationMap maps group chat id (as decimal string, jsonb keys are strings)
// to its last-post record
type GroupRotationMap map[string]GroupRotation

// Value implements the driver.Valuer interface for GroupRotationMap
func (m GroupRotationMap) Value() (driver.Value, error) {
	if m == nil {
		m = GroupRotationMap{}
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for GroupRotationMap
func (m *GroupRotationMap) Scan(value any) error {
	if value == nil {
		*m = GroupRotationMap{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into GroupRotationMap", value)
	}

	return json.Unmarshal(bytes, m)
}

// RotationState tracks the rotation cursor and posting windows for a campaign.
// It is derived state, rebuildable from the post_records history; the Version
// column serializes concurrent rotation ticks via compare-and-swap updates.
type RotationState struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	CampaignID uint `gorm:"not null;uniqueIndex:uk_rotation_states_campaign_id" json:"campaign_id"`

	// Cursor is the index into the campaign's ordered creative list
	Cursor int `gorm:"not null;default:0" json:"cursor"`

	Groups GroupRotationMap `gorm:"type:jsonb;not null;default:'{}'" json:"groups"`

	// Cap windows; counters reset when the anchor rolls over
	DailyCount  int       `gorm:"not null;default:0" json:"daily_count"`
	DayAnchor   time.Time `json:"day_anchor"`
	WeeklyCount int       `gorm:"not null;default:0" json:"weekly_count"`
	WeekAnchor  time.Time `json:"week_anchor"`

	Version   int64      `gorm:"not null;default:0" json:"version"`
	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
}

// TableName returns the table name for the model
func (RotationState) TableName() string {
	return "rotation_states"
}

// BeforeCreate is called before creating a new record
func (s *RotationState) BeforeCreate(tx *gorm.DB) error {
	if s.Groups == nil {
		s.Groups = GroupRotationMap{}
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	return nil
}

// RollWindows resets the daily/weekly counters when their windows have passed
func (s *RotationState) RollWindows(now time.Time) {
	day := utils.StartOfDay(now)
	if !s.DayAnchor.Equal(day) {
		s.DayAnchor = day
		s.DailyCount = 0
	}
	week := utils.StartOfWeek(now)
	if !s.WeekAnchor.Equal(week) {
		s.WeekAnchor = week
		s.WeeklyCount = 0
	}
}

// CapReached reports whether the schedule's daily or weekly cap is exhausted.
// Call RollWindows first so stale windows do not count.
func (s *RotationState) CapReached(sched CampaignSchedule) bool {
	if sched.DailyPostCap > 0 && s.DailyCount >= sched.DailyPostCap {
		return true
	}
	if sched.WeeklyPostCap > 0 && s.WeeklyCount >= sched.WeeklyPostCap {
		return true
	}
	return false
}

// GroupKey renders a chat id the way GroupRotationMap keys it
func GroupKey(chatID int64) string {
	return fmt.Sprintf("%d", chatID)
}

// LastPost returns the last-post record for a group, if any
func (s *RotationState) LastPost(chatID int64) (GroupRotation, bool) {
	gr, ok := s.Groups[GroupKey(chatID)]
	return gr, ok
}

// RecordPost updates in-memory rotation state after enqueueing a post
func (s *RotationState) RecordPost(chatID int64, creativeID int64, at time.Time) {
	if s.Groups == nil {
		s.Groups = GroupRotationMap{}
	}
	s.Groups[GroupKey(chatID)] = GroupRotation{LastPostAt: at, LastCreativeID: creativeID}
	s.DailyCount++
	s.WeeklyCount++
}
