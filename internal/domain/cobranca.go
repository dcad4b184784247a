/**
 * @description
 * Domain models for charges (cobranças) and their lifecycle.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeStatus is the lifecycle state of a charge.
type ChargeStatus string

const (
	StatusPendente  ChargeStatus = "PENDENTE"
	StatusAtrasado  ChargeStatus = "ATRASADO"
	StatusPago      ChargeStatus = "PAGO"
	StatusCancelado ChargeStatus = "CANCELADO"
)

// MaxMessageAttempts is the reminder cap. A charge at the cap leaves the
// actionable feed and its client is deactivated.
const MaxMessageAttempts = 3

// Valid reports whether s is a known status.
func (s ChargeStatus) Valid() bool {
	switch s {
	case StatusPendente, StatusAtrasado, StatusPago, StatusCancelado:
		return true
	}
	return false
}

// Terminal reports whether the core refuses to move the charge further.
func (s ChargeStatus) Terminal() bool {
	return s == StatusPago || s == StatusCancelado
}

// Charge is a single monetary obligation of a client.
type Charge struct {
	ID              uuid.UUID        `json:"id"`
	ClientID        uuid.UUID        `json:"clientId"`
	Amount          decimal.Decimal  `json:"valor"`
	DebtAmount      decimal.Decimal  `json:"valorDivida"`
	AmountPaid      *decimal.Decimal `json:"valorPago"`
	DueDate         time.Time        `json:"dataVencimento"`
	PaymentDate     *time.Time       `json:"dataPagamento"`
	Status          ChargeStatus     `json:"status"`
	MessageAttempts int              `json:"messageAttempts"`
	Notes           *string          `json:"observacoes"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`

	Client *ClientSummary `json:"client,omitempty"`
}

// ChargeCategory labels an actionable charge for the reminder tool.
type ChargeCategory string

const (
	CategoryUpcoming ChargeCategory = "upcoming"
	CategoryOverdue  ChargeCategory = "overdue"
)

// CategoryFor derives the feed category from the status.
func CategoryFor(status ChargeStatus) ChargeCategory {
	if status == StatusPendente {
		return CategoryUpcoming
	}
	return CategoryOverdue
}

// ActionableCharge is one item of the integration feed.
type ActionableCharge struct {
	ID              uuid.UUID       `json:"id"`
	Client          ClientSummary   `json:"client"`
	Status          ChargeStatus    `json:"status"`
	Amount          decimal.Decimal `json:"valor"`
	DueDate         time.Time       `json:"dataVencimento"`
	MessageAttempts int             `json:"messageAttempts"`
	Notes           *string         `json:"observacoes"`
	Category        ChargeCategory  `json:"category"`
}

// Pagination describes a cursor page.
type Pagination struct {
	Limit       int        `json:"limit"`
	NextCursor  *uuid.UUID `json:"nextCursor"`
	HasNextPage bool       `json:"hasNextPage"`
}

// ActionablePage is the integration feed response.
type ActionablePage struct {
	Data       []ActionableCharge `json:"data"`
	Pagination Pagination         `json:"pagination"`
}

// AttemptResult is returned after an attempt increment.
type AttemptResult struct {
	ID              uuid.UUID `json:"id"`
	MessageAttempts int       `json:"messageAttempts"`
}

// IntegrationUpdateResult is returned after an integration update.
type IntegrationUpdateResult struct {
	ID              uuid.UUID    `json:"id"`
	Status          ChargeStatus `json:"status"`
	MessageAttempts int          `json:"messageAttempts"`
	Notes           *string      `json:"observacoes"`
}

// GenerationError records a per-client failure during generation.
type GenerationError struct {
	ClientID   uuid.UUID `json:"clientId"`
	ClientName string    `json:"clientName"`
	Error      string    `json:"error"`
}

// GenerationResult summarizes one monthly generation run.
type GenerationResult struct {
	Month        int               `json:"month"`
	Year         int               `json:"year"`
	Total        int               `json:"total"`
	Created      int               `json:"created"`
	Duplicates   int               `json:"duplicates"`
	Errors       int               `json:"errors"`
	ErrorDetails []GenerationError `json:"errorDetails"`
}

// SyncResult counts the rows moved by a status synchronization.
type SyncResult struct {
	MarkedOverdue int64 `json:"markedOverdue"`
	MarkedPending int64 `json:"markedPending"`
}

// DashboardStats aggregates a tenant's billing position.
type DashboardStats struct {
	ActiveClients         int             `json:"activeClients"`
	TotalClients          int             `json:"totalClients"`
	PendingAmount         decimal.Decimal `json:"pendingAmount"`
	PaidThisMonth         decimal.Decimal `json:"paidThisMonth"`
	OverdueAmount         decimal.Decimal `json:"overdueAmount"`
	ClientsWithoutCharges int             `json:"clientsWithoutCharges"`
	ChargesDueSoon        int             `json:"chargesDueSoon"`
	OverdueCount          int             `json:"overdueCount"`
}
