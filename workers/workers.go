// Package workers holds the asynq task handlers. Each handler is a thin
// unmarshal-then-call wrapper around a business flow; retry semantics are
// decided here by mapping flow errors onto asynq's retry machinery.
package workers

import (
	"errors"
	"fmt"

	businessflow "boitata/business_flow"

	"github.com/hibiken/asynq"
)

// skipRetry wraps errors that must not be retried (data-integrity misses,
// idempotency no-ops) so asynq archives the task instead of re-running it.
func skipRetry(err error) error {
	return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
}

// nonRetryable reports whether retrying the job can never succeed
func nonRetryable(err error) bool {
	return businessflow.IsNotFound(err) ||
		errors.Is(err, businessflow.ErrAlreadyDelivered) ||
		errors.Is(err, businessflow.ErrNothingToDeliver) ||
		errors.Is(err, businessflow.ErrCampaignNotPostable) ||
		errors.Is(err, businessflow.ErrGroupNotPostable) ||
		errors.Is(err, businessflow.ErrRotationConflict) ||
		errors.Is(err, businessflow.ErrUnknownEvent)
}
