package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	businessflow "boitata/business_flow"
	"boitata/queue"
	"boitata/repository"

	"github.com/hibiken/asynq"
)

// CampaignCheckEnqueuer fans out per-campaign check jobs
type CampaignCheckEnqueuer interface {
	EnqueueCampaignCheck(ctx context.Context, payload queue.CampaignCheckPayload) error
}

// HandleCampaignCheck runs one rotation tick. A payload without a campaign id
// is the scheduler's broadcast: it fans out one job per active campaign so
// slow campaigns do not delay each other.
func HandleCampaignCheck(flow businessflow.RotationFlow, campaignRepo repository.CampaignRepository, enqueuer CampaignCheckEnqueuer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload queue.CampaignCheckPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return skipRetry(fmt.Errorf("malformed campaign check payload: %w", err))
		}

		if payload.CampaignID == nil {
			campaigns, err := campaignRepo.ListActive(ctx)
			if err != nil {
				return err
			}
			for _, campaign := range campaigns {
				id := campaign.ID
				if err := enqueuer.EnqueueCampaignCheck(ctx, queue.CampaignCheckPayload{CampaignID: &id}); err != nil {
					log.Printf("campaign check fan-out failed: campaign=%d: %v", id, err)
				}
			}
			return nil
		}

		result, err := flow.Tick(ctx, *payload.CampaignID)
		if err != nil {
			if nonRetryable(err) {
				// A losing CAS tick or a vanished campaign resolves itself on
				// the next scheduled broadcast
				return skipRetry(err)
			}
			return err
		}
		if result.Skipped != "" {
			log.Printf("campaign %d tick skipped: %s", result.CampaignID, result.Skipped)
		}
		return nil
	}
}
