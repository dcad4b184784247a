//go:build integration

package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

// Run with: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/store/
func openTestRepository(t *testing.T) (*Repository, *pgxpool.Pool) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := NewPool(ctx, url, 10)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = Migrate(ctx, pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return NewRepository(pool, time.UTC), pool
}

func seedTenant(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO users (name, email, password_hash) VALUES ('Teste', $1, 'x') RETURNING id
	`, uuid.NewString()+"@example.com").Scan(&id)
	require.NoError(t, err)
	return id
}

func seedClient(t *testing.T, pool *pgxpool.Pool, tenantID uuid.UUID, name string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO clients (user_id, nome, fone, vencimento, valor) VALUES ($1, $2, $3, 10, 100) RETURNING id
	`, tenantID, name, uuid.NewString()).Scan(&id)
	require.NoError(t, err)
	return id
}

func newCharge(clientID uuid.UUID, due time.Time, status domain.ChargeStatus, attempts int) *domain.Charge {
	return &domain.Charge{
		ClientID:        clientID,
		Amount:          decimal.NewFromInt(100),
		DebtAmount:      decimal.NewFromInt(100),
		DueDate:         due,
		Status:          status,
		MessageAttempts: attempts,
	}
}

func TestCreateCharge_ConcurrentInsertsKeepOnePerDay(t *testing.T) {
	repo, pool := openTestRepository(t)
	ctx := context.Background()
	tenant := seedTenant(t, pool)
	client := seedClient(t, pool, tenant, "Ana")
	due := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)

	const workers = 8
	results := make([]error, workers)
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			results[i] = repo.CreateCharge(ctx, newCharge(client, due, domain.StatusPendente, 0))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	created := 0
	for _, err := range results {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrDuplicateCharge):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, created)

	exists, err := repo.ChargeExistsOnDate(ctx, client, due)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestListActionableCharges_CursorAndWindow(t *testing.T) {
	repo, pool := openTestRepository(t)
	ctx := context.Background()
	tenant := seedTenant(t, pool)
	client := seedClient(t, pool, tenant, "Ana")
	today := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	overdue := newCharge(client, today.AddDate(0, 0, -5), domain.StatusAtrasado, 0)
	dueToday := newCharge(client, today, domain.StatusPendente, 1)
	soon := newCharge(client, today.AddDate(0, 0, 2), domain.StatusPendente, 0)
	later := newCharge(client, today.AddDate(0, 0, 3), domain.StatusPendente, 0)
	exhausted := newCharge(client, today.AddDate(0, 0, -1), domain.StatusAtrasado, domain.MaxMessageAttempts)
	for _, c := range []*domain.Charge{overdue, dueToday, soon, later, exhausted} {
		require.NoError(t, repo.CreateCharge(ctx, c))
	}

	q := ActionableQuery{Today: today, WindowEnd: today.AddDate(0, 0, 2), Limit: 2}
	page, err := repo.ListActionableCharges(ctx, tenant, q)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, overdue.ID, page[0].ID)
	assert.Equal(t, domain.CategoryOverdue, page[0].Category)
	assert.Equal(t, dueToday.ID, page[1].ID)
	assert.Equal(t, domain.CategoryUpcoming, page[1].Category)

	q.Cursor = &page[1].ID
	page, err = repo.ListActionableCharges(ctx, tenant, q)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, soon.ID, page[0].ID)

	unknown := uuid.New()
	q.Cursor = &unknown
	_, err = repo.ListActionableCharges(ctx, tenant, q)
	assert.ErrorIs(t, err, ErrCursorNotFound)
}

func TestDeactivateClientsAtAttemptLimit_IgnoresPaidCharges(t *testing.T) {
	repo, pool := openTestRepository(t)
	ctx := context.Background()
	tenant := seedTenant(t, pool)
	paidClient := seedClient(t, pool, tenant, "Ana")
	owingClient := seedClient(t, pool, tenant, "Bia")
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateCharge(ctx, newCharge(paidClient, due, domain.StatusPago, domain.MaxMessageAttempts)))
	require.NoError(t, repo.CreateCharge(ctx, newCharge(owingClient, due, domain.StatusAtrasado, domain.MaxMessageAttempts)))

	ids, err := repo.DeactivateClientsAtAttemptLimit(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{owingClient}, ids)

	paid, err := repo.GetClient(ctx, tenant, paidClient)
	require.NoError(t, err)
	assert.True(t, paid.Active)

	ids, err = repo.DeactivateClientsAtAttemptLimit(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
