package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
)

// Enqueuer produces tasks for the singleton queues and the per-group post
// queues. Business flows depend on narrow slices of this type.
type Enqueuer struct {
	client   *asynq.Client
	policy   Policy
	registry *Registry
}

// NewEnqueuer creates an enqueuer backed by a shared asynq client. The
// registry may be nil at construction and bound later with BindRegistry:
// the post handler behind the registry itself enqueues audit entries.
func NewEnqueuer(client *asynq.Client, policy Policy, registry *Registry) *Enqueuer {
	return &Enqueuer{
		client:   client,
		policy:   policy,
		registry: registry,
	}
}

// BindRegistry attaches the per-group worker registry. Must be called before
// the first EnqueuePost.
func (e *Enqueuer) BindRegistry(registry *Registry) {
	e.registry = registry
}

func (e *Enqueuer) enqueue(ctx context.Context, taskType, queueName string, payload any, extra ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}

	opts := append([]asynq.Option{
		asynq.Queue(queueName),
		asynq.MaxRetry(e.policy.MaxRetry),
		asynq.Retention(e.policy.CompletedRetention),
	}, extra...)

	if _, err := e.client.EnqueueContext(ctx, asynq.NewTask(taskType, data), opts...); err != nil {
		return fmt.Errorf("failed to enqueue %s on %s: %w", taskType, queueName, err)
	}
	return nil
}

// EnqueuePost schedules a post job on the group's dedicated queue, starting
// the group's worker if this is the first job for that group.
func (e *Enqueuer) EnqueuePost(ctx context.Context, payload PostJobPayload) error {
	if err := e.registry.EnsureWorker(payload.GroupChatID); err != nil {
		return fmt.Errorf("failed to start post worker for group %d: %w", payload.GroupChatID, err)
	}
	return e.enqueue(ctx, TypePostToGroup, PostQueueName(payload.GroupChatID), payload)
}

// EnqueueAudit schedules an audit log write
func (e *Enqueuer) EnqueueAudit(ctx context.Context, payload AuditJobPayload) error {
	return e.enqueue(ctx, TypeAuditWrite, QueueAudit, payload)
}

// EnqueueDelivery schedules content delivery for a paid purchase. The task id
// dedupes retries of the same purchase while one delivery is still queued.
func (e *Enqueuer) EnqueueDelivery(ctx context.Context, payload DeliveryJobPayload) error {
	err := e.enqueue(ctx, TypeDeliverContent, QueueDelivery, payload,
		asynq.TaskID(fmt.Sprintf("delivery:p%d", payload.PurchaseID)))
	if err != nil && errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueCampaignCheck schedules a rotation tick
func (e *Enqueuer) EnqueueCampaignCheck(ctx context.Context, payload CampaignCheckPayload) error {
	return e.enqueue(ctx, TypeCampaignCheck, QueueCampaignCheck, payload)
}

// EnqueueSubscriptionCheck schedules a subscription expiry sweep
func (e *Enqueuer) EnqueueSubscriptionCheck(ctx context.Context, payload SubscriptionCheckPayload) error {
	return e.enqueue(ctx, TypeSubscriptionCheck, QueueSubscriptionCheck, payload)
}

// EnqueueAnalyticsRollup schedules a post metrics rollup
func (e *Enqueuer) EnqueueAnalyticsRollup(ctx context.Context) error {
	return e.enqueue(ctx, TypeAnalyticsRollup, QueueAnalytics, struct{}{})
}

// EnqueueBotTask schedules group discovery work
func (e *Enqueuer) EnqueueBotTask(ctx context.Context, payload BotTaskPayload) error {
	return e.enqueue(ctx, TypeBotTask, QueueBotTask, payload)
}
