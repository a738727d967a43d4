package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	businessflow "boitata/business_flow"
	"boitata/queue"

	"github.com/hibiken/asynq"
)

// HandleDeliverContent pushes purchased content for one paid purchase
func HandleDeliverContent(flow businessflow.DeliveryFlow) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload queue.DeliveryJobPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return skipRetry(fmt.Errorf("malformed delivery payload: %w", err))
		}

		if err := flow.DeliverContent(ctx, payload.PurchaseID); err != nil {
			if nonRetryable(err) {
				log.Printf("delivery aborted: purchase=%d: %v", payload.PurchaseID, err)
				return skipRetry(err)
			}
			return err
		}
		return nil
	}
}
