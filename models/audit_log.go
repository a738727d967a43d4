package models

import (
	"encoding/json"
	"time"
)

// AuditLog records before/after state for mutating operations. Rows are
// written asynchronously by the audit queue worker, so their ordering relative
// to the action they describe is not guaranteed.
type AuditLog struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ActorID    *int64          `gorm:"index:idx_audit_actor_id" json:"actor_id,omitempty"`
	Action     string          `gorm:"type:varchar(100);not null;index:idx_audit_action" json:"action"`
	EntityType string          `gorm:"type:varchar(50);not null;index:idx_audit_entity_type" json:"entity_type"`
	EntityID   *uint           `gorm:"index:idx_audit_entity_id" json:"entity_id,omitempty"`
	Before     json.RawMessage `gorm:"type:jsonb" json:"before,omitempty"`
	After      json.RawMessage `gorm:"type:jsonb" json:"after,omitempty"`
	Metadata   json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success    *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	CreatedAt  time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

// TableName returns the table name for the model
func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionCampaignCreated     = "campaign_created"
	AuditActionCampaignStatus      = "campaign_status_changed"
	AuditActionPostSent            = "post_sent"
	AuditActionGroupSynced         = "group_synced"
	AuditActionGroupDeactivated    = "group_deactivated"
	AuditActionPurchaseCreated     = "purchase_created"
	AuditActionPaymentConfirmed    = "payment_confirmed"
	AuditActionPaymentFailed       = "payment_failed"
	AuditActionPaymentExpired      = "payment_expired"
	AuditActionPaymentRefunded     = "payment_refunded"
	AuditActionContentDelivered    = "content_delivered"
	AuditActionSubscriptionExpired = "subscription_expired"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	ActorID       *int64
	Action        *string
	EntityType    *string
	EntityID      *uint
	Success       *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
