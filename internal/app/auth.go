package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

// HashAPIToken returns the stored digest of a raw API token.
func HashAPIToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ResolveAPIToken returns the tenant owning a bearer token.
func (s Service) ResolveAPIToken(ctx context.Context, token string) (uuid.UUID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, domain.Unauthorized("Token inválido")
	}
	tenantID, err := s.repo.ResolveAPIToken(ctx, HashAPIToken(token))
	if err != nil {
		return uuid.Nil, translate(err)
	}
	return tenantID, nil
}

// ActiveTenant loads a tenant and rejects inactive accounts.
func (s Service) ActiveTenant(ctx context.Context, tenantID uuid.UUID) (*domain.Tenant, error) {
	tenant, err := s.repo.GetTenant(ctx, tenantID)
	if err != nil {
		if domain.KindOf(translate(err)) == domain.KindNotFound {
			return nil, domain.Unauthorized("Não autenticado")
		}
		return nil, translate(err)
	}
	if !tenant.Active {
		return nil, domain.Forbidden("Conta desativada")
	}
	return tenant, nil
}
