package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

// ListCharges synchronizes statuses and lists the tenant's charges.
func (s Service) ListCharges(ctx context.Context, tenantID uuid.UUID, filter domain.ChargeFilter) ([]domain.Charge, error) {
	if _, err := s.SyncStatuses(ctx, tenantID); err != nil {
		return nil, err
	}
	charges, err := s.repo.ListCharges(ctx, tenantID, filter)
	if err != nil {
		return nil, translate(err)
	}
	if charges == nil {
		charges = []domain.Charge{}
	}
	return charges, nil
}

// GetCharge returns one of the tenant's charges.
func (s Service) GetCharge(ctx context.Context, tenantID, chargeID uuid.UUID) (*domain.Charge, error) {
	charge, err := s.repo.GetCharge(ctx, tenantID, chargeID)
	if err != nil {
		return nil, translate(err)
	}
	return charge, nil
}

// CreateCharge records a manual charge for one of the tenant's clients.
func (s Service) CreateCharge(ctx context.Context, tenantID uuid.UUID, in domain.CreateChargeInput) (*domain.Charge, error) {
	client, err := s.repo.GetClient(ctx, tenantID, in.ClientID)
	if err != nil {
		return nil, translate(err)
	}

	status := in.Status
	if status == "" {
		status = domain.StatusPendente
	}

	charge := &domain.Charge{
		ClientID:    client.ID,
		Amount:      in.Amount,
		DebtAmount:  in.Amount,
		DueDate:     in.DueDate,
		PaymentDate: in.PaymentDate,
		Status:      status,
		Notes:       normalizeNotes(in.Notes),
	}
	if status == domain.StatusPago {
		when := s.clock.Now()
		if in.PaymentDate != nil {
			when = *in.PaymentDate
		}
		s.settle(charge, in.Amount, when)
	}

	if err := s.repo.CreateCharge(ctx, charge); err != nil {
		return nil, translate(err)
	}
	charge.Client = &domain.ClientSummary{
		ID:     client.ID,
		Name:   client.Name,
		Phone:  client.Phone,
		Active: client.Active,
	}

	s.logger.Info("charge created", "tenant_id", tenantID, "charge_id", charge.ID, "client_id", client.ID)
	return charge, nil
}
