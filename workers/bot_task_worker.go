package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"boitata/queue"
	"boitata/telegram"

	"github.com/hibiken/asynq"
)

// HandleBotTask routes group discovery work. Sync failures are result data
// (the group may legitimately be unreachable), not retryable job errors.
func HandleBotTask(discovery *telegram.Discovery) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload queue.BotTaskPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return skipRetry(fmt.Errorf("malformed bot task payload: %w", err))
		}

		switch payload.Kind {
		case queue.BotTaskSyncGroup:
			result := discovery.SyncGroupToDatabase(ctx, payload.ChatID, false)
			if !result.Success {
				log.Printf("group sync failed: chat=%d: %s", payload.ChatID, result.Error)
			}
			return nil

		case queue.BotTaskDiscoverAll:
			results, err := discovery.DiscoverAllGroups(ctx)
			if err != nil {
				return err
			}
			failed := 0
			for _, r := range results {
				if !r.Success {
					failed++
				}
			}
			log.Printf("group discovery: synced=%d failed=%d", len(results)-failed, failed)
			return nil

		default:
			return skipRetry(fmt.Errorf("unknown bot task kind %q", payload.Kind))
		}
	}
}
