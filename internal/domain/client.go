/**
 * @description
 * Client and tenant models consumed by the billing core.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Client is a billed customer of a tenant.
type Client struct {
	ID         uuid.UUID       `json:"id"`
	TenantID   uuid.UUID       `json:"userId"`
	Name       string          `json:"nome"`
	Phone      string          `json:"fone"`
	BillingDay int             `json:"vencimento"`
	Amount     decimal.Decimal `json:"valor"`
	Active     bool            `json:"ativo"`
	Notes      *string         `json:"observacoes"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// ClientSummary is the client projection embedded in charge responses.
type ClientSummary struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"nome"`
	Phone  string    `json:"fone"`
	Active bool      `json:"ativo"`
}

// Role of a tenant account.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Tenant is the owning user account.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Active    bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}
