// Package queue implements the durable job queue layer on top of asynq.
package queue

import (
	"encoding/json"
	"fmt"
)

// Task type names routed through the asynq mux
const (
	TypePostToGroup       = "post:send"
	TypeAuditWrite        = "audit:write"
	TypeAnalyticsRollup   = "analytics:rollup"
	TypeCampaignCheck     = "campaign:check"
	TypeBotTask           = "bot:task"
	TypeSubscriptionCheck = "subscription:check"
	TypeDeliverContent    = "delivery:send"
)

// Singleton queue names. Post jobs go to per-group queues, see PostQueueName.
const (
	QueueAudit             = "audit"
	QueueAnalytics         = "analytics"
	QueueCampaignCheck     = "campaign-check"
	QueueBotTask           = "bot-task"
	QueueSubscriptionCheck = "subscription-check"
	QueueDelivery          = "delivery"
)

// PostQueueName renders the per-group post queue name
func PostQueueName(chatID int64) string {
	return fmt.Sprintf("post:g%d", chatID)
}

// PostJobPayload asks the post worker to send one creative to one group
type PostJobPayload struct {
	CampaignID  uint  `json:"campaign_id"`
	GroupChatID int64 `json:"group_chat_id"`
	CreativeID  uint  `json:"creative_id"`
}

// AuditChanges carries the before/after state of a mutating operation
type AuditChanges struct {
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
}

// AuditJobPayload asks the audit worker to persist one audit entry
type AuditJobPayload struct {
	ActorID    *int64          `json:"actor_id,omitempty"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   *uint           `json:"entity_id,omitempty"`
	Changes    AuditChanges    `json:"changes"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	Success    bool            `json:"success"`
}

// DeliveryJobPayload asks the delivery worker to push purchased content
type DeliveryJobPayload struct {
	PurchaseID uint `json:"purchase_id"`
}

// CampaignCheckPayload triggers a rotation tick. A nil CampaignID fans out
// one job per active campaign.
type CampaignCheckPayload struct {
	CampaignID *uint `json:"campaign_id,omitempty"`
}

// SubscriptionCheckPayload triggers an expiry sweep, or a single-purchase
// check when PurchaseID is set.
type SubscriptionCheckPayload struct {
	PurchaseID *uint `json:"purchase_id,omitempty"`
}

// Bot task kinds
const (
	BotTaskSyncGroup   = "sync_group"
	BotTaskDiscoverAll = "discover_all"
)

// BotTaskPayload routes group discovery work through the bot-task queue
type BotTaskPayload struct {
	Kind   string `json:"kind"`
	ChatID int64  `json:"chat_id,omitempty"`
}
