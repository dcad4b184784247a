/**
 * @description
 * Data access layer for charges and clients.
 */
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

var (
	ErrChargeNotFound  = errors.New("charge not found")
	ErrClientNotFound  = errors.New("client not found")
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrTokenNotFound   = errors.New("api token not found")
	ErrCursorNotFound  = errors.New("cursor not found")
	ErrDuplicateCharge = errors.New("charge already exists for client on due date")
)

const uniqueViolation = "23505"

const chargeSelect = `
	SELECT c.id, c.client_id, c.valor, c.valor_divida, c.valor_pago, c.due_date, c.data_pagamento,
	       c.status, c.message_attempts, c.observacoes, c.created_at, c.updated_at,
	       cl.id, cl.nome, cl.fone, cl.ativo
	FROM cobrancas c
	JOIN clients cl ON cl.id = c.client_id
`

// Repository handles database operations for the billing core.
type Repository struct {
	db  *pgxpool.Pool
	loc *time.Location
}

// NewRepository creates a new repository. DATE columns are returned as
// midnight in loc.
func NewRepository(db *pgxpool.Pool, loc *time.Location) *Repository {
	if loc == nil {
		loc = time.UTC
	}
	return &Repository{db: db, loc: loc}
}

func (r *Repository) civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, r.loc)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *Repository) scanCharge(row pgx.Row) (*domain.Charge, error) {
	var (
		charge  domain.Charge
		client  domain.ClientSummary
		paid    decimal.NullDecimal
		dueDate time.Time
		status  string
	)
	if err := row.Scan(
		&charge.ID,
		&charge.ClientID,
		&charge.Amount,
		&charge.DebtAmount,
		&paid,
		&dueDate,
		&charge.PaymentDate,
		&status,
		&charge.MessageAttempts,
		&charge.Notes,
		&charge.CreatedAt,
		&charge.UpdatedAt,
		&client.ID,
		&client.Name,
		&client.Phone,
		&client.Active,
	); err != nil {
		return nil, err
	}
	if paid.Valid {
		v := paid.Decimal
		charge.AmountPaid = &v
	}
	charge.DueDate = r.civil(dueDate)
	charge.Status = domain.ChargeStatus(status)
	charge.Client = &client
	return &charge, nil
}

// SyncStatuses moves PENDENTE charges past due to ATRASADO and ATRASADO
// charges not yet due back to PENDENTE, for one tenant.
func (r *Repository) SyncStatuses(ctx context.Context, tenantID uuid.UUID, today time.Time) (domain.SyncResult, error) {
	var result domain.SyncResult
	day := domain.DateOnly(today)

	tag, err := r.db.Exec(ctx, `
		UPDATE cobrancas c
		SET status = 'ATRASADO', updated_at = NOW()
		FROM clients cl
		WHERE cl.id = c.client_id
		  AND cl.user_id = $1
		  AND c.status = 'PENDENTE'
		  AND c.due_date < $2::date
	`, tenantID, day)
	if err != nil {
		return result, fmt.Errorf("mark overdue: %w", err)
	}
	result.MarkedOverdue = tag.RowsAffected()

	tag, err = r.db.Exec(ctx, `
		UPDATE cobrancas c
		SET status = 'PENDENTE', updated_at = NOW()
		FROM clients cl
		WHERE cl.id = c.client_id
		  AND cl.user_id = $1
		  AND c.status = 'ATRASADO'
		  AND c.due_date >= $2::date
	`, tenantID, day)
	if err != nil {
		return result, fmt.Errorf("mark pending: %w", err)
	}
	result.MarkedPending = tag.RowsAffected()

	return result, nil
}

// ListActiveClients returns active clients, optionally restricted to one tenant.
func (r *Repository) ListActiveClients(ctx context.Context, tenantID *uuid.UUID) ([]domain.Client, error) {
	query := `
		SELECT id, user_id, nome, fone, vencimento, valor, ativo, observacoes, created_at, updated_at
		FROM clients
		WHERE ativo = TRUE
		  AND ($1::uuid IS NULL OR user_id = $1::uuid)
		ORDER BY nome ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var client domain.Client
		if err := rows.Scan(
			&client.ID,
			&client.TenantID,
			&client.Name,
			&client.Phone,
			&client.BillingDay,
			&client.Amount,
			&client.Active,
			&client.Notes,
			&client.CreatedAt,
			&client.UpdatedAt,
		); err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

// GetClient returns a client owned by the tenant.
func (r *Repository) GetClient(ctx context.Context, tenantID, clientID uuid.UUID) (*domain.Client, error) {
	var client domain.Client
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, nome, fone, vencimento, valor, ativo, observacoes, created_at, updated_at
		FROM clients
		WHERE id = $1 AND user_id = $2
	`, clientID, tenantID).Scan(
		&client.ID,
		&client.TenantID,
		&client.Name,
		&client.Phone,
		&client.BillingDay,
		&client.Amount,
		&client.Active,
		&client.Notes,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return &client, nil
}

// ChargeExistsOnDate reports whether the client already has a charge on the
// calendar day of dueDate.
func (r *Repository) ChargeExistsOnDate(ctx context.Context, clientID uuid.UUID, dueDate time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM cobrancas WHERE client_id = $1 AND due_date = $2::date)",
		clientID, domain.DateOnly(dueDate),
	).Scan(&exists)
	return exists, err
}

// CreateCharge inserts a charge. A charge already present for the same
// client and day yields ErrDuplicateCharge.
func (r *Repository) CreateCharge(ctx context.Context, charge *domain.Charge) error {
	query := `
		INSERT INTO cobrancas (
			client_id,
			valor,
			valor_divida,
			valor_pago,
			due_date,
			data_pagamento,
			status,
			message_attempts,
			observacoes
		)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9)
		ON CONFLICT (client_id, due_date) DO NOTHING
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		charge.ClientID,
		charge.Amount,
		charge.DebtAmount,
		charge.AmountPaid,
		domain.DateOnly(charge.DueDate),
		charge.PaymentDate,
		string(charge.Status),
		charge.MessageAttempts,
		charge.Notes,
	).Scan(&charge.ID, &charge.CreatedAt, &charge.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
			return ErrDuplicateCharge
		}
		return err
	}
	charge.DueDate = r.civil(charge.DueDate)
	return nil
}

// GetCharge returns a charge owned by the tenant.
func (r *Repository) GetCharge(ctx context.Context, tenantID, chargeID uuid.UUID) (*domain.Charge, error) {
	row := r.db.QueryRow(ctx, chargeSelect+" WHERE c.id = $1 AND cl.user_id = $2", chargeID, tenantID)
	charge, err := r.scanCharge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChargeNotFound
		}
		return nil, err
	}
	return charge, nil
}

// ListCharges returns the tenant's charges matching filter, newest due date first.
func (r *Repository) ListCharges(ctx context.Context, tenantID uuid.UUID, filter domain.ChargeFilter) ([]domain.Charge, error) {
	var (
		conds = []string{"cl.user_id = $1"}
		args  = []any{tenantID}
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.StartDate != nil {
		add("c.due_date >= $%d::date", domain.DateOnly(*filter.StartDate))
	}
	if filter.EndDate != nil {
		add("c.due_date <= $%d::date", domain.DateOnly(*filter.EndDate))
	}
	if filter.Status != nil {
		add("c.status = $%d", string(*filter.Status))
	}
	if name := strings.TrimSpace(filter.ClientName); name != "" {
		add("cl.nome ILIKE '%%' || $%d::text || '%%'", name)
	}

	query := chargeSelect + " WHERE " + strings.Join(conds, " AND ") + " ORDER BY c.due_date DESC, c.id ASC"
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var charges []domain.Charge
	for rows.Next() {
		charge, err := r.scanCharge(rows)
		if err != nil {
			return nil, err
		}
		charges = append(charges, *charge)
	}
	return charges, rows.Err()
}

// MutateCharge locks the tenant's charge, applies fn and persists the result
// in one transaction. An error from fn aborts without writing.
func (r *Repository) MutateCharge(ctx context.Context, tenantID, chargeID uuid.UUID, fn func(*domain.Charge) error) (*domain.Charge, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, chargeSelect+" WHERE c.id = $1 AND cl.user_id = $2 FOR UPDATE OF c", chargeID, tenantID)
	charge, err := r.scanCharge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChargeNotFound
		}
		return nil, err
	}
	originalClient := charge.ClientID

	if err := fn(charge); err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
		UPDATE cobrancas
		SET client_id = $2,
		    valor = $3,
		    valor_divida = $4,
		    valor_pago = $5,
		    due_date = $6::date,
		    data_pagamento = $7,
		    status = $8,
		    message_attempts = $9,
		    observacoes = $10,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`,
		charge.ID,
		charge.ClientID,
		charge.Amount,
		charge.DebtAmount,
		charge.AmountPaid,
		domain.DateOnly(charge.DueDate),
		charge.PaymentDate,
		string(charge.Status),
		charge.MessageAttempts,
		charge.Notes,
	).Scan(&charge.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCharge
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if charge.ClientID != originalClient {
		return r.GetCharge(ctx, tenantID, charge.ID)
	}
	charge.DueDate = r.civil(charge.DueDate)
	return charge, nil
}

// DeactivateClientsAtAttemptLimit deactivates the tenant's active clients
// holding any unpaid charge whose reminder attempts reached the cap.
func (r *Repository) DeactivateClientsAtAttemptLimit(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE clients cl
		SET ativo = FALSE, updated_at = NOW()
		WHERE cl.user_id = $1
		  AND cl.ativo = TRUE
		  AND EXISTS (
			SELECT 1 FROM cobrancas c
			WHERE c.client_id = cl.id
			  AND c.status <> 'PAGO'
			  AND c.message_attempts >= $2
		  )
		RETURNING cl.id
	`, tenantID, domain.MaxMessageAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ActionableQuery selects a page of the integration feed.
type ActionableQuery struct {
	Today     time.Time
	WindowEnd time.Time
	Cursor    *uuid.UUID
	Limit     int
}

// ListActionableCharges returns charges the reminder tool should act on,
// ordered by due date then id, strictly after the cursor charge.
func (r *Repository) ListActionableCharges(ctx context.Context, tenantID uuid.UUID, q ActionableQuery) ([]domain.ActionableCharge, error) {
	args := []any{tenantID, domain.MaxMessageAttempts, domain.DateOnly(q.Today), domain.DateOnly(q.WindowEnd), q.Limit}
	cursorCond := ""
	if q.Cursor != nil {
		var cursorDue time.Time
		err := r.db.QueryRow(ctx, `
			SELECT c.due_date FROM cobrancas c
			JOIN clients cl ON cl.id = c.client_id
			WHERE c.id = $1 AND cl.user_id = $2
		`, *q.Cursor, tenantID).Scan(&cursorDue)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrCursorNotFound
			}
			return nil, err
		}
		args = append(args, domain.DateOnly(cursorDue), *q.Cursor)
		cursorCond = "AND (c.due_date, c.id) > ($6::date, $7::uuid)"
	}

	query := `
		SELECT c.id, c.status, c.valor, c.due_date, c.message_attempts, c.observacoes,
		       cl.id, cl.nome, cl.fone, cl.ativo
		FROM cobrancas c
		JOIN clients cl ON cl.id = c.client_id
		WHERE cl.user_id = $1
		  AND cl.ativo = TRUE
		  AND c.message_attempts < $2
		  AND (
			(c.status = 'PENDENTE' AND c.due_date >= $3::date AND c.due_date <= $4::date)
			OR c.status = 'ATRASADO'
		  )
		  ` + cursorCond + `
		ORDER BY c.due_date ASC, c.id ASC
		LIMIT $5
	`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ActionableCharge
	for rows.Next() {
		var (
			item    domain.ActionableCharge
			status  string
			dueDate time.Time
		)
		if err := rows.Scan(
			&item.ID,
			&status,
			&item.Amount,
			&dueDate,
			&item.MessageAttempts,
			&item.Notes,
			&item.Client.ID,
			&item.Client.Name,
			&item.Client.Phone,
			&item.Client.Active,
		); err != nil {
			return nil, err
		}
		item.Status = domain.ChargeStatus(status)
		item.DueDate = r.civil(dueDate)
		item.Category = domain.CategoryFor(item.Status)
		items = append(items, item)
	}
	return items, rows.Err()
}
