/**
 * @description
 * Monthly bill generation.
 */
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
	"github.com/rjunioramorim/app-cobrancas/internal/store"
)

type generationOutcome int

const (
	outcomeCreated generationOutcome = iota
	outcomeDuplicate
	outcomeFailed
)

// GenerationEvent is published after each generation run.
type GenerationEvent struct {
	TenantID   *uuid.UUID `json:"tenant_id,omitempty"`
	Month      int        `json:"month"`
	Year       int        `json:"year"`
	Total      int        `json:"total"`
	Created    int        `json:"created"`
	Duplicates int        `json:"duplicates"`
	Errors     int        `json:"errors"`
}

// GenerateMonthlyBills creates one PENDENTE charge per active client for the
// given month. Clients are processed independently; only the client fetch
// failing aborts the run.
func (s Service) GenerateMonthlyBills(ctx context.Context, month, year int, tenantID *uuid.UUID) (*domain.GenerationResult, error) {
	clients, err := s.repo.ListActiveClients(ctx, tenantID)
	if err != nil {
		return nil, domain.Internal("Falha ao buscar clientes ativos", err)
	}

	result := &domain.GenerationResult{
		Month:        month,
		Year:         year,
		Total:        len(clients),
		ErrorDetails: []domain.GenerationError{},
	}

	for _, client := range clients {
		outcome, err := s.generateForClient(ctx, client, month, year)
		switch outcome {
		case outcomeCreated:
			result.Created++
		case outcomeDuplicate:
			result.Duplicates++
		default:
			result.Errors++
			result.ErrorDetails = append(result.ErrorDetails, domain.GenerationError{
				ClientID:   client.ID,
				ClientName: client.Name,
				Error:      err.Error(),
			})
			s.logger.Error("failed to generate charge", "client_id", client.ID, "month", month, "year", year, "error", err)
		}
	}

	s.metrics.billsGenerated(result)
	s.logger.Info("monthly bill generation finished",
		"month", month,
		"year", year,
		"total", result.Total,
		"created", result.Created,
		"duplicates", result.Duplicates,
		"errors", result.Errors,
	)
	s.publish(ctx, "cobranca.generated", GenerationEvent{
		TenantID:   tenantID,
		Month:      month,
		Year:       year,
		Total:      result.Total,
		Created:    result.Created,
		Duplicates: result.Duplicates,
		Errors:     result.Errors,
	})

	return result, nil
}

func (s Service) generateForClient(ctx context.Context, client domain.Client, month, year int) (generationOutcome, error) {
	dueDate := domain.ResolveDueDate(client.BillingDay, month, year, s.loc)

	exists, err := s.repo.ChargeExistsOnDate(ctx, client.ID, dueDate)
	if err != nil {
		return outcomeFailed, err
	}
	if exists {
		return outcomeDuplicate, nil
	}

	if !client.Amount.IsPositive() {
		return outcomeFailed, domain.Validation("Valor do cliente deve ser maior que zero")
	}

	notes := fmt.Sprintf("Cobrança gerada automaticamente para %d/%d", month, year)
	charge := &domain.Charge{
		ClientID:        client.ID,
		Amount:          client.Amount,
		DebtAmount:      client.Amount,
		DueDate:         dueDate,
		Status:          domain.StatusPendente,
		MessageAttempts: 0,
		Notes:           &notes,
	}
	if err := s.repo.CreateCharge(ctx, charge); err != nil {
		if errors.Is(err, store.ErrDuplicateCharge) {
			return outcomeDuplicate, nil
		}
		return outcomeFailed, err
	}
	return outcomeCreated, nil
}

// GenerateBillsInput is an administrative generation request. Month and year
// default to the month after the current one.
type GenerateBillsInput struct {
	Month    *int
	Year     *int
	TenantID *uuid.UUID
}

// GenerateBills resolves defaults, checks the target tenant exists and runs
// the generator.
func (s Service) GenerateBills(ctx context.Context, in GenerateBillsInput) (*domain.GenerationResult, error) {
	month, year := domain.NextMonth(s.Now())
	if in.Month != nil {
		month = *in.Month
	}
	if in.Year != nil {
		year = *in.Year
	}
	if month < 1 || month > 12 {
		return nil, domain.Validation("Mês inválido")
	}
	if year < 2000 {
		return nil, domain.Validation("Ano inválido")
	}

	if in.TenantID != nil {
		if _, err := s.repo.GetTenant(ctx, *in.TenantID); err != nil {
			return nil, translate(err)
		}
	}

	return s.GenerateMonthlyBills(ctx, month, year, in.TenantID)
}
