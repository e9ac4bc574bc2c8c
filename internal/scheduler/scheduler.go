// Package scheduler runs the background observation sync on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Syncer copies recent upstream data into the observation store
type Syncer interface {
	SyncRecent(ctx context.Context) (map[string]int, error)
}

// Scheduler manages the sync cron task
type Scheduler struct {
	cron    *cron.Cron
	syncer  Syncer
	timeout time.Duration
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewScheduler creates a new scheduler; schedules use the six field
// format with seconds, evaluated in location
func NewScheduler(syncer Syncer, location *time.Location, timeout time.Duration, logger *zap.Logger) *Scheduler {
	if location == nil {
		location = time.Local
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithLocation(location)),
		syncer:  syncer,
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds the sync task under the given cron expression
func (s *Scheduler) Register(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.RunSync); err != nil {
		return fmt.Errorf("register sync task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("tasks", len(s.cron.Entries())))
}

// Stop cancels a running sync and waits for it to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunSync executes one sync run immediately. Overlapping runs are skipped.
func (s *Scheduler) RunSync() {
	if !s.mu.TryLock() {
		s.logger.Warn("Sync still running, skipping")
		return
	}
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	counts, err := s.syncer.SyncRecent(ctx)
	total := 0
	for _, n := range counts {
		total += n
	}
	if err != nil {
		s.logger.Error("Sync finished with errors",
			zap.Error(err),
			zap.Int("observations", total),
			zap.Duration("duration", time.Since(start)))
		return
	}
	s.logger.Info("Sync finished",
		zap.Any("perInstrument", counts),
		zap.Int("observations", total),
		zap.Duration("duration", time.Since(start)))
}
