package app

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

func TestDashboardStats(t *testing.T) {
	repo := newMemoryRepo()
	tenant := repo.addTenant()
	ana := repo.addClient(tenant, "Ana", 10, "100", true)
	repo.addClient(tenant, "Bia", 10, "100", false)
	repo.addClient(tenant, "Caio", 10, "100", true)

	repo.addCharge(ana.ID, date(2024, 3, 1), domain.StatusPendente, "100", 0) // becomes overdue
	repo.addCharge(ana.ID, date(2024, 3, 14), domain.StatusPendente, "50", 0)
	repo.addCharge(ana.ID, date(2024, 4, 30), domain.StatusPendente, "70", 0)
	paid := repo.addCharge(ana.ID, date(2024, 2, 10), domain.StatusPendente, "100", 0)

	svc, _ := newTestService(repo, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()
	amount := decimal.NewFromInt(90)
	when := date(2024, 3, 5)
	_, err := svc.MarkAsPaid(ctx, tenant, paid.ID, domain.PaymentInput{Amount: &amount, PaymentDate: &when})
	require.NoError(t, err)

	stats, err := svc.DashboardStats(ctx, tenant)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalClients)
	assert.Equal(t, 2, stats.ActiveClients)
	assert.True(t, stats.PendingAmount.Equal(decimal.NewFromInt(220)), stats.PendingAmount.String())
	assert.True(t, stats.PaidThisMonth.Equal(decimal.NewFromInt(90)), stats.PaidThisMonth.String())
	assert.True(t, stats.OverdueAmount.Equal(decimal.NewFromInt(100)), stats.OverdueAmount.String())
	assert.Equal(t, 2, stats.ClientsWithoutCharges)
	assert.Equal(t, 1, stats.ChargesDueSoon)
	assert.Equal(t, 1, stats.OverdueCount)
}

func TestMetrics_RecordBillingActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	repo := newMemoryRepo()
	tenant := repo.addTenant()
	repo.addClient(tenant, "Ana", 10, "100", true)
	svc := NewService(repo, nil, "UTC",
		WithClock(fixedClock{t: date(2024, 1, 31)}),
		WithLogger(discardLogger()),
		WithMetrics(metrics),
	)
	_, err := svc.GenerateMonthlyBills(context.Background(), 2, 2024, nil)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	var created float64
	for _, f := range families {
		if f.GetName() != "cobrancas_bills_generated_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == "created" {
					created = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(1), created)
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.billsGenerated(&domain.GenerationResult{Created: 1})
	m.statusSynced(domain.SyncResult{MarkedOverdue: 1})
	m.attemptsRecorded(1)
	m.clientsDeactivated(1)
	m.paymentRecorded(&domain.Charge{})
}
