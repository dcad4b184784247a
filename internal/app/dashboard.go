package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

const dueSoonDays = 7

// DashboardStats synchronizes statuses and computes the tenant's aggregates
// concurrently.
func (s Service) DashboardStats(ctx context.Context, tenantID uuid.UUID) (*domain.DashboardStats, error) {
	if _, err := s.SyncStatuses(ctx, tenantID); err != nil {
		return nil, err
	}

	now := s.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)
	today := domain.StartOfDay(now)

	var stats domain.DashboardStats
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.TotalClients, stats.ActiveClients, err = s.repo.CountClients(gctx, tenantID)
		return
	})
	g.Go(func() (err error) {
		stats.PendingAmount, err = s.repo.SumDebt(gctx, tenantID, domain.StatusPendente, domain.StatusAtrasado)
		return
	})
	g.Go(func() (err error) {
		stats.PaidThisMonth, err = s.repo.SumPaidBetween(gctx, tenantID, monthStart, monthEnd)
		return
	})
	g.Go(func() (err error) {
		stats.OverdueAmount, err = s.repo.SumDebt(gctx, tenantID, domain.StatusAtrasado)
		return
	})
	g.Go(func() (err error) {
		stats.ClientsWithoutCharges, err = s.repo.CountClientsWithoutCharges(gctx, tenantID)
		return
	})
	g.Go(func() (err error) {
		stats.ChargesDueSoon, err = s.repo.CountChargesDueBetween(gctx, tenantID, domain.StatusPendente, today, today.AddDate(0, 0, dueSoonDays))
		return
	})
	g.Go(func() (err error) {
		stats.OverdueCount, err = s.repo.CountChargesByStatus(gctx, tenantID, domain.StatusAtrasado)
		return
	})

	if err := g.Wait(); err != nil {
		return nil, translate(err)
	}
	return &stats, nil
}
