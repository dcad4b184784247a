/**
 * @description
 * Core business logic for the billing lifecycle.
 */
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
	"github.com/rjunioramorim/app-cobrancas/internal/store"
)

const defaultEventsExchange = "cobrancas.events"

// Repository defines the database operations the service needs. Every call
// is scoped to a tenant directly or through the owning client.
type Repository interface {
	SyncStatuses(ctx context.Context, tenantID uuid.UUID, today time.Time) (domain.SyncResult, error)
	ListActiveClients(ctx context.Context, tenantID *uuid.UUID) ([]domain.Client, error)
	GetClient(ctx context.Context, tenantID, clientID uuid.UUID) (*domain.Client, error)
	ChargeExistsOnDate(ctx context.Context, clientID uuid.UUID, dueDate time.Time) (bool, error)
	CreateCharge(ctx context.Context, charge *domain.Charge) error
	GetCharge(ctx context.Context, tenantID, chargeID uuid.UUID) (*domain.Charge, error)
	ListCharges(ctx context.Context, tenantID uuid.UUID, filter domain.ChargeFilter) ([]domain.Charge, error)
	MutateCharge(ctx context.Context, tenantID, chargeID uuid.UUID, fn func(*domain.Charge) error) (*domain.Charge, error)
	DeactivateClientsAtAttemptLimit(ctx context.Context, tenantID uuid.UUID) ([]uuid.UUID, error)
	ListActionableCharges(ctx context.Context, tenantID uuid.UUID, q store.ActionableQuery) ([]domain.ActionableCharge, error)
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*domain.Tenant, error)
	ResolveAPIToken(ctx context.Context, tokenHash string) (uuid.UUID, error)

	CountClients(ctx context.Context, tenantID uuid.UUID) (int, int, error)
	CountClientsWithoutCharges(ctx context.Context, tenantID uuid.UUID) (int, error)
	SumDebt(ctx context.Context, tenantID uuid.UUID, statuses ...domain.ChargeStatus) (decimal.Decimal, error)
	SumPaidBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	CountChargesDueBetween(ctx context.Context, tenantID uuid.UUID, status domain.ChargeStatus, from, to time.Time) (int, error)
	CountChargesByStatus(ctx context.Context, tenantID uuid.UUID, status domain.ChargeStatus) (int, error)
}

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithEventsExchange sets the exchange domain events are published to.
func WithEventsExchange(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.exchange = name
		}
	}
}

// Service provides the business logic for charges.
type Service struct {
	repo      Repository
	publisher EventPublisher
	loc       *time.Location
	clock     Clock
	metrics   *Metrics
	logger    *slog.Logger
	exchange  string
}

// NewService creates a new billing service. An unknown timezone falls back to UTC.
func NewService(repo Repository, publisher EventPublisher, timezone string, opts ...Option) Service {
	s := Service{
		repo:      repo,
		publisher: publisher,
		clock:     SystemClock{},
		logger:    slog.Default(),
		exchange:  defaultEventsExchange,
	}
	for _, opt := range opts {
		opt(&s)
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		s.logger.Warn("invalid timezone, defaulting to UTC", "timezone", timezone)
		loc = time.UTC
	}
	s.loc = loc
	return s
}

// Location returns the business timezone.
func (s Service) Location() *time.Location { return s.loc }

// Now returns the current instant in the business timezone.
func (s Service) Now() time.Time { return s.clock.Now().In(s.loc) }

func (s Service) today() time.Time { return domain.StartOfDay(s.Now()) }

func (s Service) publish(ctx context.Context, routingKey string, body interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, s.exchange, routingKey, body); err != nil {
		s.logger.Warn("failed to publish event", "routing_key", routingKey, "error", err)
	}
}

// translate maps storage sentinels onto domain error kinds.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		return de
	case errors.Is(err, store.ErrChargeNotFound):
		return domain.NotFound("Cobrança não encontrada")
	case errors.Is(err, store.ErrClientNotFound):
		return domain.NotFound("Cliente não encontrado")
	case errors.Is(err, store.ErrTenantNotFound):
		return domain.NotFound("Usuário não encontrado")
	case errors.Is(err, store.ErrDuplicateCharge):
		return domain.Conflict("Já existe uma cobrança para este cliente nesta data")
	case errors.Is(err, store.ErrCursorNotFound):
		return domain.Validation("Cursor inválido")
	case errors.Is(err, store.ErrTokenNotFound):
		return domain.Unauthorized("Token inválido")
	default:
		return domain.Internal("Erro interno", err)
	}
}
