package businessflow

import (
	"context"

	"boitata/models"
	"boitata/repository"
)

// RollupResult reports one analytics aggregation pass
type RollupResult struct {
	Records   int `json:"records"`
	Campaigns int `json:"campaigns"`
}

// AnalyticsFlow folds post records into campaign performance counters
type AnalyticsFlow interface {
	Rollup(ctx context.Context) (*RollupResult, error)
}

// AnalyticsFlowImpl implements the analytics rollup
type AnalyticsFlowImpl struct {
	postRecordRepo repository.PostRecordRepository
	campaignRepo   repository.CampaignRepository
	batchLimit     int
}

// NewAnalyticsFlow creates a new analytics flow instance
func NewAnalyticsFlow(postRecordRepo repository.PostRecordRepository, campaignRepo repository.CampaignRepository, batchLimit int) AnalyticsFlow {
	if batchLimit <= 0 {
		batchLimit = 500
	}
	return &AnalyticsFlowImpl{
		postRecordRepo: postRecordRepo,
		campaignRepo:   campaignRepo,
		batchLimit:     batchLimit,
	}
}

// Rollup folds unaggregated post records into per-campaign counters and marks
// them aggregated. Safe to re-run; records are only counted once.
func (s *AnalyticsFlowImpl) Rollup(ctx context.Context) (*RollupResult, error) {
	records, err := s.postRecordRepo.ListUnaggregated(ctx, s.batchLimit)
	if err != nil {
		return nil, NewBusinessError("ROLLUP_LIST_FAILED", "Failed to list unaggregated post records", err)
	}
	if len(records) == 0 {
		return &RollupResult{}, nil
	}

	deltas := make(map[uint]models.CampaignPerformance)
	ids := make([]uint, 0, len(records))
	for _, record := range records {
		delta := deltas[record.CampaignID]
		delta.Posts++
		delta.Views += record.Views
		delta.Clicks += record.Clicks
		deltas[record.CampaignID] = delta
		ids = append(ids, record.ID)
	}

	for campaignID, delta := range deltas {
		if err := s.campaignRepo.IncrementPerformance(ctx, campaignID, delta); err != nil {
			return nil, NewBusinessError("ROLLUP_INCREMENT_FAILED", "Failed to increment campaign performance", err)
		}
	}

	if err := s.postRecordRepo.MarkAggregated(ctx, ids); err != nil {
		return nil, NewBusinessError("ROLLUP_MARK_FAILED", "Failed to mark records aggregated", err)
	}

	return &RollupResult{Records: len(records), Campaigns: len(deltas)}, nil
}
