/**
 * @description
 * Scheduled job implementations.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

// BillGenerator runs monthly generation.
type BillGenerator interface {
	GenerateMonthlyBills(ctx context.Context, month, year int, tenantID *uuid.UUID) (*domain.GenerationResult, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	generator BillGenerator
	clock     Clock
	loc       *time.Location
	logger    *slog.Logger
	timeout   time.Duration
}

// NewJobs creates a new Jobs runner evaluating dates in loc.
func NewJobs(generator BillGenerator, clock Clock, loc *time.Location, logger *slog.Logger) *Jobs {
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Jobs{
		generator: generator,
		clock:     clock,
		loc:       loc,
		logger:    logger,
		timeout:   10 * time.Minute,
	}
}

// RunMonthEndGeneration generates next month's bills for every tenant when
// today is the last day of the month. It reports whether generation ran.
func (j *Jobs) RunMonthEndGeneration(ctx context.Context) (bool, *domain.GenerationResult, error) {
	now := j.clock.Now().In(j.loc)
	if !domain.IsLastDayOfMonth(now) {
		j.logger.Debug("not the last day of the month, skipping bill generation", "date", domain.DateOnly(now))
		return false, nil, nil
	}

	month, year := domain.NextMonth(now)
	j.logger.Info("starting monthly bill generation job", "month", month, "year", year)

	result, err := j.generator.GenerateMonthlyBills(ctx, month, year, nil)
	if err != nil {
		j.logger.Error("failed to generate monthly bills", "month", month, "year", year, "error", err)
		return true, nil, err
	}

	j.logger.Info("monthly bill generation job finished",
		"month", month,
		"year", year,
		"created", result.Created,
		"duplicates", result.Duplicates,
		"errors", result.Errors,
	)
	return true, result, nil
}

// GenerateMonthEndBills is the cron entry point.
func (j *Jobs) GenerateMonthEndBills() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	_, _, _ = j.RunMonthEndGeneration(ctx)
}
