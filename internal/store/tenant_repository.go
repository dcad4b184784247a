/**
 * @description
 * Tenant (user) and API token lookups.
 */
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

// GetTenant returns a tenant by id.
func (r *Repository) GetTenant(ctx context.Context, tenantID uuid.UUID) (*domain.Tenant, error) {
	var (
		tenant domain.Tenant
		role   string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, name, email, role, is_active, created_at
		FROM users
		WHERE id = $1
	`, tenantID).Scan(&tenant.ID, &tenant.Name, &tenant.Email, &role, &tenant.Active, &tenant.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	tenant.Role = domain.Role(role)
	return &tenant, nil
}

// ResolveAPIToken returns the owner of an unexpired token whose account is
// active, recording the use.
func (r *Repository) ResolveAPIToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	var tenantID uuid.UUID
	err := r.db.QueryRow(ctx, `
		UPDATE api_tokens t
		SET last_used_at = NOW()
		FROM users u
		WHERE u.id = t.user_id
		  AND t.token_hash = $1
		  AND (t.expires_at IS NULL OR t.expires_at > NOW())
		  AND u.is_active = TRUE
		RETURNING t.user_id
	`, tokenHash).Scan(&tenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrTokenNotFound
		}
		return uuid.Nil, err
	}
	return tenantID, nil
}

// UpsertAdmin creates or promotes an ADMIN account keyed by email.
func (r *Repository) UpsertAdmin(ctx context.Context, name, email, passwordHash string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, 'ADMIN', TRUE)
		ON CONFLICT (email) DO UPDATE
		SET name = EXCLUDED.name,
		    password_hash = EXCLUDED.password_hash,
		    role = 'ADMIN',
		    is_active = TRUE,
		    updated_at = NOW()
		RETURNING id
	`, name, email, passwordHash).Scan(&id)
	return id, err
}
