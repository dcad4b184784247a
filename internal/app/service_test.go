package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(repo *memoryRepo, now time.Time) (Service, *publisherStub) {
	pub := &publisherStub{}
	svc := NewService(repo, pub, "UTC", WithClock(fixedClock{t: now}), WithLogger(discardLogger()))
	return svc, pub
}

func requireKind(t *testing.T, err error, kind domain.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, domain.KindOf(err), "unexpected error: %v", err)
}

func TestNewService_FallsBackToUTCForUnknownTimezone(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, "Not/AZone", WithLogger(discardLogger()))
	assert.Equal(t, time.UTC, svc.Location())
}

func TestSyncStatuses_FlipsByDueDateAndIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	tenant := repo.addTenant()
	client := repo.addClient(tenant, "Ana", 10, "100", true)
	past := repo.addCharge(client.ID, date(2024, 3, 9), domain.StatusPendente, "100", 0)
	todayCharge := repo.addCharge(client.ID, date(2024, 3, 10), domain.StatusAtrasado, "100", 0)
	future := repo.addCharge(client.ID, date(2024, 3, 20), domain.StatusAtrasado, "100", 0)
	paid := repo.addCharge(client.ID, date(2024, 3, 1), domain.StatusPago, "100", 0)

	svc, _ := newTestService(repo, time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC))

	res, err := svc.SyncStatuses(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.MarkedOverdue)
	assert.Equal(t, int64(2), res.MarkedPending)

	assert.Equal(t, domain.StatusAtrasado, repo.charge(past.ID).Status)
	assert.Equal(t, domain.StatusPendente, repo.charge(todayCharge.ID).Status)
	assert.Equal(t, domain.StatusPendente, repo.charge(future.ID).Status)
	assert.Equal(t, domain.StatusPago, repo.charge(paid.ID).Status)

	again, err := svc.SyncStatuses(context.Background(), tenant)
	require.NoError(t, err)
	assert.Zero(t, again.MarkedOverdue)
	assert.Zero(t, again.MarkedPending)
}

func TestSyncStatuses_OnlyTouchesOwnTenant(t *testing.T) {
	repo := newMemoryRepo()
	tenantA, tenantB := repo.addTenant(), repo.addTenant()
	clientB := repo.addClient(tenantB, "Bia", 5, "50", true)
	other := repo.addCharge(clientB.ID, date(2024, 1, 5), domain.StatusPendente, "50", 0)

	svc, _ := newTestService(repo, date(2024, 3, 10))
	_, err := svc.SyncStatuses(context.Background(), tenantA)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendente, repo.charge(other.ID).Status)
}

func TestListCharges_SyncsBeforeListing(t *testing.T) {
	repo := newMemoryRepo()
	tenant := repo.addTenant()
	client := repo.addClient(tenant, "Ana", 10, "100", true)
	repo.addCharge(client.ID, date(2024, 2, 10), domain.StatusPendente, "100", 0)

	svc, _ := newTestService(repo, date(2024, 3, 10))
	overdue := domain.StatusAtrasado
	charges, err := svc.ListCharges(context.Background(), tenant, domain.ChargeFilter{Status: &overdue})
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, "Ana", charges[0].Client.Name)
}

func TestCreateCharge_RejectsForeignClientAndSameDayDuplicate(t *testing.T) {
	repo := newMemoryRepo()
	tenant, other := repo.addTenant(), repo.addTenant()
	client := repo.addClient(tenant, "Ana", 10, "100", true)
	svc, _ := newTestService(repo, date(2024, 3, 1))
	ctx := context.Background()

	in := domain.CreateChargeInput{ClientID: client.ID, Amount: decimal.NewFromInt(75), DueDate: date(2024, 3, 15)}

	_, err := svc.CreateCharge(ctx, other, in)
	requireKind(t, err, domain.KindNotFound)

	created, err := svc.CreateCharge(ctx, tenant, in)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendente, created.Status)
	assert.True(t, created.DebtAmount.Equal(decimal.NewFromInt(75)))
	assert.Nil(t, created.AmountPaid)
	assert.Equal(t, "Ana", created.Client.Name)

	_, err = svc.CreateCharge(ctx, tenant, in)
	requireKind(t, err, domain.KindConflict)
}

func TestGetCharge_HidesOtherTenantsCharges(t *testing.T) {
	repo := newMemoryRepo()
	tenant, other := repo.addTenant(), repo.addTenant()
	client := repo.addClient(tenant, "Ana", 10, "100", true)
	charge := repo.addCharge(client.ID, date(2024, 3, 10), domain.StatusPendente, "100", 0)
	svc, _ := newTestService(repo, date(2024, 3, 1))

	_, err := svc.GetCharge(context.Background(), other, charge.ID)
	requireKind(t, err, domain.KindNotFound)

	got, err := svc.GetCharge(context.Background(), tenant, charge.ID)
	require.NoError(t, err)
	assert.Equal(t, charge.ID, got.ID)
}

func TestResolveAPIToken(t *testing.T) {
	repo := newMemoryRepo()
	tenant := repo.addTenant()
	repo.tokens[HashAPIToken("ckt_secret")] = tenant
	svc, _ := newTestService(repo, date(2024, 3, 1))

	got, err := svc.ResolveAPIToken(context.Background(), " ckt_secret ")
	require.NoError(t, err)
	assert.Equal(t, tenant, got)

	_, err = svc.ResolveAPIToken(context.Background(), "ckt_wrong")
	requireKind(t, err, domain.KindUnauthorized)

	_, err = svc.ResolveAPIToken(context.Background(), "")
	requireKind(t, err, domain.KindUnauthorized)
}

func TestActiveTenant(t *testing.T) {
	repo := newMemoryRepo()
	tenant := repo.addTenant()
	svc, _ := newTestService(repo, date(2024, 3, 1))

	_, err := svc.ActiveTenant(context.Background(), uuid.New())
	requireKind(t, err, domain.KindUnauthorized)

	inactive := repo.tenants[tenant]
	inactive.Active = false
	repo.tenants[tenant] = inactive
	_, err = svc.ActiveTenant(context.Background(), tenant)
	requireKind(t, err, domain.KindForbidden)
}

func TestTranslate_KeepsDomainErrorsAndWrapsUnknown(t *testing.T) {
	de := domain.InvalidState("x")
	assert.Same(t, de, translate(de))
	assert.Equal(t, domain.KindInternal, domain.KindOf(translate(errors.New("boom"))))
	assert.Nil(t, translate(nil))
}
