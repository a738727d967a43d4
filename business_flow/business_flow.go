// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"encoding/json"

	"boitata/queue"
)

// AuditEnqueuer submits audit entries through the durable audit queue. Audit
// writes never block or fail the operation they describe.
type AuditEnqueuer interface {
	EnqueueAudit(ctx context.Context, payload queue.AuditJobPayload) error
}

// submitAudit serializes the before/after state and enqueues the audit entry.
// Failures are swallowed: the audit trail is best-effort by contract.
func submitAudit(ctx context.Context, enq AuditEnqueuer, actorID *int64, action, entityType string, entityID *uint, before, after any, success bool) {
	if enq == nil {
		return
	}

	payload := queue.AuditJobPayload{
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Success:    success,
	}
	if before != nil {
		if raw, err := json.Marshal(before); err == nil {
			payload.Changes.Before = raw
		}
	}
	if after != nil {
		if raw, err := json.Marshal(after); err == nil {
			payload.Changes.After = raw
		}
	}

	_ = enq.EnqueueAudit(ctx, payload)
}
