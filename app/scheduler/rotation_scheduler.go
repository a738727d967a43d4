// Package scheduler
package scheduler

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"boitata/queue"

	"gopkg.in/natefinch/lumberjack.v2"
)

// JobEnqueuer is the slice of the queue enqueuer the scheduler needs
type JobEnqueuer interface {
	EnqueueCampaignCheck(ctx context.Context, payload queue.CampaignCheckPayload) error
	EnqueueSubscriptionCheck(ctx context.Context, payload queue.SubscriptionCheckPayload) error
	EnqueueAnalyticsRollup(ctx context.Context) error
}

// RotationScheduler periodically enqueues the recurring jobs: rotation ticks
// for active campaigns, subscription expiry sweeps, and analytics rollups.
// All real work happens in the queue workers; the scheduler only produces jobs.
type RotationScheduler struct {
	enqueuer JobEnqueuer
	logger   *log.Logger

	tickInterval         time.Duration
	subscriptionInterval time.Duration
	analyticsInterval    time.Duration
}

func NewRotationScheduler(
	enqueuer JobEnqueuer,
	tickInterval time.Duration,
	subscriptionInterval time.Duration,
	analyticsInterval time.Duration,
) *RotationScheduler {
	if tickInterval <= 0 {
		tickInterval = time.Minute
	}
	if subscriptionInterval <= 0 {
		subscriptionInterval = 10 * time.Minute
	}
	if analyticsInterval <= 0 {
		analyticsInterval = 5 * time.Minute
	}

	s := &RotationScheduler{
		enqueuer:             enqueuer,
		tickInterval:         tickInterval,
		subscriptionInterval: subscriptionInterval,
		analyticsInterval:    analyticsInterval,
	}

	// Scheduler-specific logger (stdout plus a rotated persistent file)
	if err := s.initSchedulerLogger(); err != nil {
		s.logger = log.Default()
		s.logger.Printf("scheduler: failed to initialize file logger: %v", err)
	}

	return s
}

// initSchedulerLogger configures a logger that writes to both stdout and a
// rotated file under data/ (or /data for containerized environments)
func (s *RotationScheduler) initSchedulerLogger() error {
	dir := "data"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		dir = "/data"
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "scheduler.log"),
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
	mw := io.MultiWriter(os.Stdout, rotated)
	s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
	return nil
}

// Start launches the scheduler loops in background goroutines and returns a
// stop function
func (s *RotationScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.tickInterval)
		defer ticker.Stop()

		s.enqueueRotationTick(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.enqueueRotationTick(ctx)
			}
		}
	}()

	go s.startMaintenanceLoop(ctx)

	return cancel
}

// enqueueRotationTick enqueues a broadcast campaign check: the worker fans it
// out to one tick job per active campaign
func (s *RotationScheduler) enqueueRotationTick(ctx context.Context) {
	if err := s.enqueuer.EnqueueCampaignCheck(ctx, queue.CampaignCheckPayload{}); err != nil {
		s.logger.Printf("scheduler: enqueue campaign check failed: %v", err)
		return
	}
	s.logger.Printf("scheduler: campaign check enqueued")
}

// startMaintenanceLoop drives the slower recurring jobs: subscription expiry
// sweeps and analytics rollups
func (s *RotationScheduler) startMaintenanceLoop(ctx context.Context) {
	subTicker := time.NewTicker(s.subscriptionInterval)
	defer subTicker.Stop()
	rollupTicker := time.NewTicker(s.analyticsInterval)
	defer rollupTicker.Stop()

	s.enqueueSubscriptionSweep(ctx)
	s.enqueueAnalyticsRollup(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-subTicker.C:
			s.enqueueSubscriptionSweep(ctx)
		case <-rollupTicker.C:
			s.enqueueAnalyticsRollup(ctx)
		}
	}
}

func (s *RotationScheduler) enqueueSubscriptionSweep(ctx context.Context) {
	if err := s.enqueuer.EnqueueSubscriptionCheck(ctx, queue.SubscriptionCheckPayload{}); err != nil {
		s.logger.Printf("scheduler: enqueue subscription check failed: %v", err)
		return
	}
	s.logger.Printf("scheduler: subscription check enqueued")
}

func (s *RotationScheduler) enqueueAnalyticsRollup(ctx context.Context) {
	if err := s.enqueuer.EnqueueAnalyticsRollup(ctx); err != nil {
		s.logger.Printf("scheduler: enqueue analytics rollup failed: %v", err)
	}
}
