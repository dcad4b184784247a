/**
 * @description
 * Reminder-tool integration: actionable feed, attempt counting and
 * auto-deactivation.
 */
package app

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
	"github.com/rjunioramorim/app-cobrancas/internal/store"
)

const (
	// MaxFeedPageSize caps the actionable feed page.
	MaxFeedPageSize = 50
	upcomingWindow  = 2
)

// ClientDeactivatedEvent is published for every client removed from the feed.
type ClientDeactivatedEvent struct {
	ClientID uuid.UUID `json:"client_id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Reason   string    `json:"reason"`
}

// AttemptEvent is published when reminder attempts change.
type AttemptEvent struct {
	ChargeID        uuid.UUID `json:"charge_id"`
	TenantID        uuid.UUID `json:"tenant_id"`
	MessageAttempts int       `json:"message_attempts"`
}

// ListActionableCharges returns one page of charges the reminder tool should
// message: PENDENTE due within the next two days, or ATRASADO, with attempts
// left, for active clients only.
func (s Service) ListActionableCharges(ctx context.Context, tenantID uuid.UUID, cursor *uuid.UUID, limit int) (*domain.ActionablePage, error) {
	if limit <= 0 || limit > MaxFeedPageSize {
		limit = MaxFeedPageSize
	}

	if _, err := s.SyncStatuses(ctx, tenantID); err != nil {
		return nil, err
	}
	if err := s.deactivateExhaustedClients(ctx, tenantID); err != nil {
		return nil, err
	}

	today := s.today()
	items, err := s.repo.ListActionableCharges(ctx, tenantID, store.ActionableQuery{
		Today:     today,
		WindowEnd: today.AddDate(0, 0, upcomingWindow),
		Cursor:    cursor,
		Limit:     limit + 1,
	})
	if err != nil {
		return nil, translate(err)
	}

	page := &domain.ActionablePage{
		Data:       []domain.ActionableCharge{},
		Pagination: domain.Pagination{Limit: limit},
	}
	if len(items) > limit {
		items = items[:limit]
		page.Pagination.HasNextPage = true
		next := items[len(items)-1].ID
		page.Pagination.NextCursor = &next
	}
	page.Data = append(page.Data, items...)
	return page, nil
}

func (s Service) deactivateExhaustedClients(ctx context.Context, tenantID uuid.UUID) error {
	ids, err := s.repo.DeactivateClientsAtAttemptLimit(ctx, tenantID)
	if err != nil {
		return translate(err)
	}
	for _, id := range ids {
		s.logger.Info("client deactivated after reminder limit", "tenant_id", tenantID, "client_id", id)
		s.publish(ctx, "client.deactivated", ClientDeactivatedEvent{
			ClientID: id,
			TenantID: tenantID,
			Reason:   "message_attempts_exhausted",
		})
	}
	s.metrics.clientsDeactivated(len(ids))
	return nil
}

// IncrementAttempt adds one reminder attempt. At the cap nothing is written.
func (s Service) IncrementAttempt(ctx context.Context, tenantID, chargeID uuid.UUID) (*domain.AttemptResult, error) {
	charge, err := s.repo.MutateCharge(ctx, tenantID, chargeID, func(c *domain.Charge) error {
		if c.Status == domain.StatusCancelado {
			return domain.InvalidState("Cobrança cancelada não aceita novas tentativas")
		}
		if c.MessageAttempts >= domain.MaxMessageAttempts {
			return domain.AttemptLimitExceeded("Limite de tentativas atingido")
		}
		c.MessageAttempts++
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	s.attemptRecorded(ctx, tenantID, charge, 1)
	return &domain.AttemptResult{ID: charge.ID, MessageAttempts: charge.MessageAttempts}, nil
}

// ApplyIntegrationUpdate adds reminder attempts and/or records notes.
func (s Service) ApplyIntegrationUpdate(ctx context.Context, tenantID, chargeID uuid.UUID, in domain.IntegrationUpdateInput) (*domain.IntegrationUpdateResult, error) {
	hasNotes := in.Notes != nil && strings.TrimSpace(*in.Notes) != ""
	if in.MessageAttemptsDelta == nil && !hasNotes {
		return nil, domain.Validation("Nenhum campo válido enviado")
	}
	if in.MessageAttemptsDelta != nil && *in.MessageAttemptsDelta < 1 {
		return nil, domain.Validation("Incremento mínimo é 1")
	}

	delta := 0
	charge, err := s.repo.MutateCharge(ctx, tenantID, chargeID, func(c *domain.Charge) error {
		if in.MessageAttemptsDelta != nil {
			if c.Status == domain.StatusCancelado {
				return domain.InvalidState("Cobrança cancelada não aceita novas tentativas")
			}
			next := c.MessageAttempts + *in.MessageAttemptsDelta
			if next > domain.MaxMessageAttempts {
				return domain.AttemptLimitExceeded("Limite de tentativas atingido")
			}
			c.MessageAttempts = next
			delta = *in.MessageAttemptsDelta
		}
		// blank notes leave the existing ones untouched
		if hasNotes {
			c.Notes = mergeNotes(c.Notes, *in.Notes, in.AppendNotes)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	if delta > 0 {
		s.attemptRecorded(ctx, tenantID, charge, delta)
	}
	return &domain.IntegrationUpdateResult{
		ID:              charge.ID,
		Status:          charge.Status,
		MessageAttempts: charge.MessageAttempts,
		Notes:           charge.Notes,
	}, nil
}

// RecordMessage registers one sent reminder with optional notes.
func (s Service) RecordMessage(ctx context.Context, tenantID, chargeID uuid.UUID, notes *string, appendNotes bool) (*domain.IntegrationUpdateResult, error) {
	one := 1
	return s.ApplyIntegrationUpdate(ctx, tenantID, chargeID, domain.IntegrationUpdateInput{
		MessageAttemptsDelta: &one,
		Notes:                notes,
		AppendNotes:          appendNotes,
	})
}

func mergeNotes(existing *string, incoming string, appendNotes bool) *string {
	incoming = strings.TrimSpace(incoming)
	merged := incoming
	if appendNotes && existing != nil && strings.TrimSpace(*existing) != "" {
		merged = strings.TrimSpace(*existing + "\n" + incoming)
	}
	if merged == "" {
		return nil
	}
	return &merged
}

func (s Service) attemptRecorded(ctx context.Context, tenantID uuid.UUID, charge *domain.Charge, delta int) {
	s.metrics.attemptsRecorded(delta)
	s.logger.Info("message attempt recorded", "tenant_id", tenantID, "charge_id", charge.ID, "message_attempts", charge.MessageAttempts)
	s.publish(ctx, "cobranca.attempt_recorded", AttemptEvent{
		ChargeID:        charge.ID,
		TenantID:        tenantID,
		MessageAttempts: charge.MessageAttempts,
	})
}
