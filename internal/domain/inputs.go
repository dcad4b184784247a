/**
 * @description
 * Typed inputs accepted by the billing service. Shape is validated at the HTTP
 * boundary; the service checks business rules only.
 */
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeFilter narrows a charge listing.
type ChargeFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	Status     *ChargeStatus
	ClientName string
}

// CreateChargeInput creates a manual charge.
type CreateChargeInput struct {
	ClientID    uuid.UUID
	Amount      decimal.Decimal
	DueDate     time.Time
	PaymentDate *time.Time
	Status      ChargeStatus
	Notes       *string
}

// UpdateChargeInput is a partial update; nil fields are left untouched.
// ClearPaymentDate removes the payment date and wins over PaymentDate.
type UpdateChargeInput struct {
	ClientID         *uuid.UUID
	Amount           *decimal.Decimal
	DueDate          *time.Time
	PaymentDate      *time.Time
	ClearPaymentDate bool
	Status           *ChargeStatus
	Notes            *string
}

// PaymentInput carries the optional paid amount and date.
type PaymentInput struct {
	Amount      *decimal.Decimal
	PaymentDate *time.Time
}

// IntegrationUpdateInput is sent by the reminder tool after messaging a client.
type IntegrationUpdateInput struct {
	MessageAttemptsDelta *int
	Notes                *string
	AppendNotes          bool
}
