/**
 * @description
 * Cron scheduler setup for scheduled jobs.
 */
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the cron jobs. It does nothing until Start is called.
type Scheduler struct {
	cron     *cron.Cron
	jobs     *Jobs
	logger   *slog.Logger
	schedule string

	mu         sync.Mutex
	started    bool
	registered bool
}

// NewScheduler creates a new scheduler instance running the month-end job on
// schedule (standard five-field cron syntax).
func NewScheduler(jobs *Jobs, logger *slog.Logger, schedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLocation(jobs.loc),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &Scheduler{
		cron:     c,
		jobs:     jobs,
		logger:   logger,
		schedule: schedule,
	}
}

// Start registers the jobs and starts the cron scheduler. Calling it again is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.logger.Info("scheduler already started")
		return nil
	}

	if !s.registered {
		if _, err := s.cron.AddFunc(s.schedule, s.jobs.GenerateMonthEndBills); err != nil {
			return fmt.Errorf("schedule monthly bill job: %w", err)
		}
		s.registered = true
		s.logger.Info("scheduled monthly bill job", "schedule", s.schedule)
	}

	s.cron.Start()
	s.started = true
	return nil
}

// Started reports whether Start succeeded.
func (s *Scheduler) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Stop gracefully stops the cron scheduler. The returned context is done once
// running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.started = false
	return s.cron.Stop()
}
