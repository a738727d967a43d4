package queue

import (
	"time"

	"github.com/hibiken/asynq"
)

// Policy is the retry/retention policy applied to every queue. All values are
// configurable; nothing in the workers hardcodes them.
type Policy struct {
	// MaxRetry is the bounded retry count per job
	MaxRetry int

	// Backoff bases per queue type; actual delay is base * 2^n
	AuditBackoff        time.Duration
	PostBackoff         time.Duration
	BotTaskBackoff      time.Duration
	DeliveryBackoff     time.Duration
	AnalyticsBackoff    time.Duration
	CampaignBackoff     time.Duration
	SubscriptionBackoff time.Duration

	// Retention bounds for completed/failed task records
	CompletedRetention time.Duration
	FailedRetention    time.Duration

	// Concurrency of the singleton-queue worker pool
	Concurrency int
}

// DefaultPolicy mirrors the production defaults: 3 attempts, exponential
// backoff with 1s/2s/5s bases depending on queue, 5 parallel workers.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetry:            3,
		AuditBackoff:        1 * time.Second,
		PostBackoff:         2 * time.Second,
		BotTaskBackoff:      2 * time.Second,
		DeliveryBackoff:     2 * time.Second,
		AnalyticsBackoff:    5 * time.Second,
		CampaignBackoff:     5 * time.Second,
		SubscriptionBackoff: 5 * time.Second,
		CompletedRetention:  24 * time.Hour,
		FailedRetention:     7 * 24 * time.Hour,
		Concurrency:         5,
	}
}

// backoffBase resolves the backoff base for a task type. Task types map 1:1
// to queue types, post tasks being the per-group default.
func (p Policy) backoffBase(taskType string) time.Duration {
	switch taskType {
	case TypeAuditWrite:
		return p.AuditBackoff
	case TypeBotTask:
		return p.BotTaskBackoff
	case TypeDeliverContent:
		return p.DeliveryBackoff
	case TypeAnalyticsRollup:
		return p.AnalyticsBackoff
	case TypeCampaignCheck:
		return p.CampaignBackoff
	case TypeSubscriptionCheck:
		return p.SubscriptionBackoff
	default:
		return p.PostBackoff
	}
}

// RetryDelayFunc computes the exponential backoff delay for a failed task
func (p Policy) RetryDelayFunc(n int, err error, task *asynq.Task) time.Duration {
	base := p.backoffBase(task.Type())
	if n < 0 {
		n = 0
	}
	return base * time.Duration(1<<uint(n))
}
