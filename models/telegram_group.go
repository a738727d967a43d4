package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"boitata/utils"

	"gorm.io/gorm"
)

// GroupPermissions is the snapshot of the bot's rights in a group
type GroupPermissions struct {
	CanPostMessages   bool `json:"can_post_messages"`
	CanDeleteMessages bool `json:"can_delete_messages"`
	CanPinMessages    bool `json:"can_pin_messages"`
	CanInviteUsers    bool `json:"can_invite_users"`
	CanRestrictUsers  bool `json:"can_restrict_users"`
	IsCreator         bool `json:"is_creator"`
}

// AllGroupPermissions is the implicit permission set of a chat creator
func AllGroupPermissions() GroupPermissions {
	return GroupPermissions{
		CanPostMessages:   true,
		CanDeleteMessages: true,
		CanPinMessages:    true,
		CanInviteUsers:    true,
		CanRestrictUsers:  true,
		IsCreator:         true,
	}
}

// Value implements the driver.Valuer interface for GroupPermissions
func (p GroupPermissions) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements the sql.Scanner interface for GroupPermissions
func (p *GroupPermissions) Scan(value any) error {
	if value == nil {
		*p = GroupPermissions{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into GroupPermissions", value)
	}

	return json.Unmarshal(bytes, p)
}

// TelegramGroup represents a Telegram group or channel the bot posts into.
// Groups are deactivated when the bot is removed, never deleted.
type TelegramGroup struct {
	ID uint `gorm:"primaryKey" json:"id"`

	// External identity, normalized to Telegram's -100 supergroup/channel convention
	ChatID int64 `gorm:"not null;uniqueIndex:uk_telegram_groups_chat_id" json:"chat_id"`

	Title string `gorm:"type:varchar(255)" json:"title"`
	Type  string `gorm:"type:varchar(20)" json:"type"`

	Permissions GroupPermissions `gorm:"type:jsonb;not null;default:'{}'" json:"permissions"`
	MemberCount int              `gorm:"not null;default:0" json:"member_count"`

	IsActive         *bool      `gorm:"default:true;index:idx_telegram_groups_is_active" json:"is_active"`
	IsAutoDiscovered *bool      `gorm:"default:false" json:"is_auto_discovered"`
	DiscoveredAt     time.Time  `json:"discovered_at"`
	LastSyncedAt     *time.Time `json:"last_synced_at,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (TelegramGroup) TableName() string {
	return "telegram_groups"
}

// BeforeCreate is called before creating a new record
func (g *TelegramGroup) BeforeCreate(tx *gorm.DB) error {
	if g.DiscoveredAt.IsZero() {
		g.DiscoveredAt = utils.UTCNow()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (g *TelegramGroup) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	g.UpdatedAt = &now
	return nil
}

// CanPost reports whether the bot may post ads into the group
func (g *TelegramGroup) CanPost() bool {
	return utils.IsTrue(g.IsActive) && g.Permissions.CanPostMessages
}

// TelegramGroupFilter represents filter criteria for groups
type TelegramGroupFilter struct {
	ID       *uint   `json:"id,omitempty"`
	ChatID   *int64  `json:"chat_id,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	Type     *string `json:"type,omitempty"`
}
