package workers

import (
	"context"
	"log"

	businessflow "boitata/business_flow"

	"github.com/hibiken/asynq"
)

// HandleAnalyticsRollup folds post records into campaign counters
func HandleAnalyticsRollup(flow businessflow.AnalyticsFlow) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		result, err := flow.Rollup(ctx)
		if err != nil {
			return err
		}
		if result.Records > 0 {
			log.Printf("analytics rollup: records=%d campaigns=%d", result.Records, result.Campaigns)
		}
		return nil
	}
}
