/**
 * @description
 * Payment processing and manual charge updates.
 */
package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

// PaymentEvent is published when a charge is paid.
type PaymentEvent struct {
	ChargeID    uuid.UUID       `json:"charge_id"`
	ClientID    uuid.UUID       `json:"client_id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	DebtAmount  decimal.Decimal `json:"debt_amount"`
	PaymentDate time.Time       `json:"payment_date"`
}

// MarkAsPaid settles a charge. Without an amount the full debt is paid; any
// amount is accepted, so partial and over-payments are recorded as given.
func (s Service) MarkAsPaid(ctx context.Context, tenantID, chargeID uuid.UUID, in domain.PaymentInput) (*domain.Charge, error) {
	charge, err := s.repo.MutateCharge(ctx, tenantID, chargeID, func(c *domain.Charge) error {
		switch c.Status {
		case domain.StatusPago:
			return domain.InvalidState("Cobrança já está paga")
		case domain.StatusCancelado:
			return domain.InvalidState("Cobrança cancelada não pode ser paga")
		}

		paid := c.DebtAmount
		if in.Amount != nil {
			paid = *in.Amount
		}
		when := s.clock.Now()
		if in.PaymentDate != nil {
			when = *in.PaymentDate
		}
		s.settle(c, paid, when)
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	s.metrics.paymentRecorded(charge)
	s.logger.Info("charge paid", "tenant_id", tenantID, "charge_id", chargeID, "amount_paid", charge.AmountPaid.String())
	s.publish(ctx, "cobranca.paid", PaymentEvent{
		ChargeID:    charge.ID,
		ClientID:    charge.ClientID,
		TenantID:    tenantID,
		AmountPaid:  *charge.AmountPaid,
		DebtAmount:  charge.DebtAmount,
		PaymentDate: *charge.PaymentDate,
	})
	return charge, nil
}

func (s Service) settle(c *domain.Charge, paid decimal.Decimal, when time.Time) {
	c.Status = domain.StatusPago
	c.AmountPaid = &paid
	c.PaymentDate = &when
	c.Amount = paid
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// UpdateCharge applies a partial update. A new amount replaces the debt only
// while the charge is unpaid. Paid and canceled charges keep their status.
func (s Service) UpdateCharge(ctx context.Context, tenantID, chargeID uuid.UUID, in domain.UpdateChargeInput) (*domain.Charge, error) {
	if in.ClientID != nil {
		if _, err := s.repo.GetClient(ctx, tenantID, *in.ClientID); err != nil {
			return nil, translate(err)
		}
	}

	var paidNow bool
	charge, err := s.repo.MutateCharge(ctx, tenantID, chargeID, func(c *domain.Charge) error {
		if in.Status != nil && *in.Status != c.Status && c.Status.Terminal() {
			return domain.InvalidState("Cobrança %s não pode mudar de status", strings.ToLower(string(c.Status)))
		}

		if in.ClientID != nil {
			c.ClientID = *in.ClientID
		}
		if in.Amount != nil {
			if c.Status != domain.StatusPago {
				c.DebtAmount = *in.Amount
			}
			c.Amount = *in.Amount
		}
		if in.DueDate != nil {
			c.DueDate = *in.DueDate
		}
		if in.PaymentDate != nil {
			c.PaymentDate = in.PaymentDate
		}
		if in.ClearPaymentDate {
			c.PaymentDate = nil
		}
		if in.Notes != nil {
			c.Notes = normalizeNotes(in.Notes)
		}

		if in.Status != nil && *in.Status != c.Status {
			if *in.Status == domain.StatusPago {
				when := s.clock.Now()
				if c.PaymentDate != nil {
					when = *c.PaymentDate
				}
				s.settle(c, c.DebtAmount, when)
				paidNow = true
			} else {
				c.Status = *in.Status
			}
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	if paidNow {
		s.metrics.paymentRecorded(charge)
	}
	s.logger.Info("charge updated", "tenant_id", tenantID, "charge_id", chargeID)
	return charge, nil
}
