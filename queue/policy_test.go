package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
)

func TestRetryDelayFunc_BasePerTaskType(t *testing.T) {
	policy := DefaultPolicy()

	cases := []struct {
		taskType string
		base     time.Duration
	}{
		{TypeAuditWrite, 1 * time.Second},
		{TypePostToGroup, 2 * time.Second},
		{TypeBotTask, 2 * time.Second},
		{TypeDeliverContent, 2 * time.Second},
		{TypeAnalyticsRollup, 5 * time.Second},
		{TypeCampaignCheck, 5 * time.Second},
		{TypeSubscriptionCheck, 5 * time.Second},
	}

	for _, tc := range cases {
		t.Run(tc.taskType, func(t *testing.T) {
			task := asynq.NewTask(tc.taskType, nil)
			assert.Equal(t, tc.base, policy.RetryDelayFunc(0, errors.New("boom"), task))
		})
	}
}

func TestRetryDelayFunc_ExponentialGrowth(t *testing.T) {
	policy := DefaultPolicy()
	task := asynq.NewTask(TypeDeliverContent, nil)

	assert.Equal(t, 2*time.Second, policy.RetryDelayFunc(0, nil, task))
	assert.Equal(t, 4*time.Second, policy.RetryDelayFunc(1, nil, task))
	assert.Equal(t, 8*time.Second, policy.RetryDelayFunc(2, nil, task))
}

func TestRetryDelayFunc_NegativeAttemptClamped(t *testing.T) {
	policy := DefaultPolicy()
	task := asynq.NewTask(TypeAuditWrite, nil)

	assert.Equal(t, 1*time.Second, policy.RetryDelayFunc(-3, nil, task))
}

func TestPostQueueName(t *testing.T) {
	assert.Equal(t, "post:g-1001234567890", PostQueueName(-1001234567890))
	assert.Equal(t, "post:g42", PostQueueName(42))
}

func TestDefaultPolicy(t *testing.T) {
	policy := DefaultPolicy()

	assert.Equal(t, 3, policy.MaxRetry)
	assert.Equal(t, 5, policy.Concurrency)
	assert.Equal(t, 24*time.Hour, policy.CompletedRetention)
	assert.Equal(t, 7*24*time.Hour, policy.FailedRetention)
}
