/**
 * @description
 * Aggregate queries backing the dashboard.
 */
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

func statusStrings(statuses []domain.ChargeStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// CountClients returns the tenant's total and active client counts.
func (r *Repository) CountClients(ctx context.Context, tenantID uuid.UUID) (total int, active int, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE ativo)
		FROM clients
		WHERE user_id = $1
	`, tenantID).Scan(&total, &active)
	return
}

// CountClientsWithoutCharges counts the tenant's clients with no charge at all.
func (r *Repository) CountClientsWithoutCharges(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM clients cl
		WHERE cl.user_id = $1
		  AND NOT EXISTS (SELECT 1 FROM cobrancas c WHERE c.client_id = cl.id)
	`, tenantID).Scan(&n)
	return n, err
}

// SumDebt sums the debt of the tenant's charges in the given statuses.
func (r *Repository) SumDebt(ctx context.Context, tenantID uuid.UUID, statuses ...domain.ChargeStatus) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.QueryRow(ctx, `
		SELECT SUM(c.valor_divida)
		FROM cobrancas c
		JOIN clients cl ON cl.id = c.client_id
		WHERE cl.user_id = $1 AND c.status = ANY($2::text[])
	`, tenantID, statusStrings(statuses)).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// SumPaidBetween sums amounts paid on PAGO charges with a payment date in [from, to].
func (r *Repository) SumPaidBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.QueryRow(ctx, `
		SELECT SUM(c.valor_pago)
		FROM cobrancas c
		JOIN clients cl ON cl.id = c.client_id
		WHERE cl.user_id = $1
		  AND c.status = 'PAGO'
		  AND c.data_pagamento >= $2
		  AND c.data_pagamento <= $3
	`, tenantID, from, to).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// CountChargesDueBetween counts charges in status with a due date in [from, to].
func (r *Repository) CountChargesDueBetween(ctx context.Context, tenantID uuid.UUID, status domain.ChargeStatus, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM cobrancas c
		JOIN clients cl ON cl.id = c.client_id
		WHERE cl.user_id = $1
		  AND c.status = $2
		  AND c.due_date >= $3::date
		  AND c.due_date <= $4::date
	`, tenantID, string(status), domain.DateOnly(from), domain.DateOnly(to)).Scan(&n)
	return n, err
}

// CountChargesByStatus counts the tenant's charges in status.
func (r *Repository) CountChargesByStatus(ctx context.Context, tenantID uuid.UUID, status domain.ChargeStatus) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM cobrancas c
		JOIN clients cl ON cl.id = c.client_id
		WHERE cl.user_id = $1 AND c.status = $2
	`, tenantID, string(status)).Scan(&n)
	return n, err
}
