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

// HandleSubscriptionCheck expires due subscriptions. A payload with a purchase
// id checks that one purchase; without it, the whole due set is swept.
func HandleSubscriptionCheck(flow businessflow.SubscriptionFlow) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload queue.SubscriptionCheckPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return skipRetry(fmt.Errorf("malformed subscription check payload: %w", err))
		}

		if payload.PurchaseID != nil {
			if err := flow.ExpireOne(ctx, *payload.PurchaseID); err != nil {
				if nonRetryable(err) {
					return skipRetry(err)
				}
				return err
			}
			return nil
		}

		result, err := flow.SweepExpired(ctx)
		if err != nil {
			return err
		}
		if result.Expired > 0 || result.Failed > 0 {
			log.Printf("subscription sweep: expired=%d failed=%d", result.Expired, result.Failed)
		}
		return nil
	}
}
