package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

// SyncStatuses reconciles PENDENTE/ATRASADO with the tenant's current date.
// Safe to call any number of times.
func (s Service) SyncStatuses(ctx context.Context, tenantID uuid.UUID) (domain.SyncResult, error) {
	result, err := s.repo.SyncStatuses(ctx, tenantID, s.today())
	if err != nil {
		return result, translate(err)
	}
	s.metrics.statusSynced(result)
	if result.MarkedOverdue > 0 || result.MarkedPending > 0 {
		s.logger.Info("synchronized charge statuses",
			"tenant_id", tenantID,
			"marked_overdue", result.MarkedOverdue,
			"marked_pending", result.MarkedPending,
		)
	}
	return result, nil
}
