package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"boitata/models"
	"boitata/queue"
	"boitata/repository"
	"boitata/utils"

	"github.com/hibiken/asynq"
)

// HandleAuditWrite persists one audit entry from the audit queue
func HandleAuditWrite(auditRepo repository.AuditLogRepository) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload queue.AuditJobPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return skipRetry(fmt.Errorf("malformed audit payload: %w", err))
		}

		entry := &models.AuditLog{
			ActorID:    payload.ActorID,
			Action:     payload.Action,
			EntityType: payload.EntityType,
			EntityID:   payload.EntityID,
			Before:     payload.Changes.Before,
			After:      payload.Changes.After,
			Metadata:   payload.Metadata,
			Success:    utils.ToPtr(payload.Success),
		}
		return auditRepo.Save(ctx, entry)
	}
}
