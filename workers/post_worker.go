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

// HandlePostToGroup executes one post job from a per-group queue
func HandlePostToGroup(flow businessflow.PostingFlow) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload queue.PostJobPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return skipRetry(fmt.Errorf("malformed post payload: %w", err))
		}

		if err := flow.ExecutePost(ctx, payload); err != nil {
			if nonRetryable(err) {
				log.Printf("post job dropped: campaign=%d group=%d: %v", payload.CampaignID, payload.GroupChatID, err)
				return skipRetry(err)
			}
			return err
		}
		return nil
	}
}
