/**
 * @description
 * Typed request bodies, validated once at the HTTP boundary.
 */
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

const maxBodyBytes = 1 << 20

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// flexBool accepts JSON booleans and the strings "true", "1" and "yes".
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var asBool bool
	if err := json.Unmarshal(data, &asBool); err == nil {
		*b = flexBool(asBool)
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("appendObservacoes must be a boolean")
	}
	switch strings.ToLower(strings.TrimSpace(asString)) {
	case "true", "1", "yes":
		*b = true
	default:
		*b = false
	}
	return nil
}

type createChargeRequest struct {
	ClientID       string           `json:"clientId" validate:"required,uuid"`
	Valor          *decimal.Decimal `json:"valor" validate:"required,gt=0"`
	DataVencimento string           `json:"dataVencimento" validate:"required"`
	DataPagamento  *string          `json:"dataPagamento"`
	Status         *string          `json:"status" validate:"omitempty,oneof=PENDENTE PAGO CANCELADO"`
	Observacoes    *string          `json:"observacoes" validate:"omitempty,max=500"`
}

type updateChargeRequest struct {
	ClientID       *string          `json:"clientId" validate:"omitempty,uuid"`
	Valor          *decimal.Decimal `json:"valor" validate:"omitempty,gt=0"`
	DataVencimento *string          `json:"dataVencimento"`
	DataPagamento  *string          `json:"dataPagamento"`
	Status         *string          `json:"status" validate:"omitempty,oneof=PENDENTE PAGO CANCELADO"`
	Observacoes    *string          `json:"observacoes" validate:"omitempty,max=500"`
}

func (r updateChargeRequest) empty() bool {
	return r.ClientID == nil && r.Valor == nil && r.DataVencimento == nil &&
		r.DataPagamento == nil && r.Status == nil && r.Observacoes == nil
}

type payChargeRequest struct {
	Valor         *decimal.Decimal `json:"valor" validate:"omitempty,gt=0"`
	DataPagamento *string          `json:"dataPagamento"`
}

type integrationUpdateRequest struct {
	MessageAttemptsDelta *int    `json:"messageAttemptsDelta" validate:"omitempty,min=1,max=3"`
	Observacoes          *string `json:"observacoes" validate:"omitempty,max=500"`
	AppendObservacoes    bool    `json:"appendObservacoes"`
}

type messageRequest struct {
	ID                string   `json:"id" validate:"required,uuid"`
	Observacoes       *string  `json:"observacoes" validate:"omitempty,max=500"`
	AppendObservacoes flexBool `json:"appendObservacoes"`
}

type generateBillsRequest struct {
	Month  *int    `json:"month" validate:"omitempty,min=1,max=12"`
	Year   *int    `json:"year" validate:"omitempty,min=2000"`
	UserID *string `json:"userId" validate:"omitempty,uuid"`
}

// decodeAndValidate reads a JSON body into dst and validates it. An empty
// body is accepted when allowEmpty is set.
func (h *Handler) decodeAndValidate(r *http.Request, dst interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return domain.Validation("JSON inválido")
		}
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Validation("Dados inválidos")
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return domain.Validation("Dados inválidos: %s", strings.Join(parts, ", "))
}

func parseUUID(value, message string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil, domain.Validation("%s", message)
	}
	return id, nil
}

func (h *Handler) parseDate(value, field string) (time.Time, error) {
	t, err := domain.ParseDate(strings.TrimSpace(value), h.service.Location())
	if err != nil {
		return time.Time{}, domain.Validation("Data inválida em %s", field)
	}
	return t, nil
}

func (h *Handler) parseOptionalDate(value *string, field string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := h.parseDate(*value, field)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseOptionalTimestamp keeps the instant of RFC 3339 values and reads bare dates
// as local midnight.
func (h *Handler) parseOptionalTimestamp(value *string, field string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(*value)); err == nil {
		return &t, nil
	}
	return h.parseOptionalDate(value, field)
}

func (r createChargeRequest) toInput(h *Handler) (domain.CreateChargeInput, error) {
	clientID, err := parseUUID(r.ClientID, "ID do cliente inválido")
	if err != nil {
		return domain.CreateChargeInput{}, err
	}
	due, err := h.parseDate(r.DataVencimento, "dataVencimento")
	if err != nil {
		return domain.CreateChargeInput{}, err
	}
	paidAt, err := h.parseOptionalTimestamp(r.DataPagamento, "dataPagamento")
	if err != nil {
		return domain.CreateChargeInput{}, err
	}
	in := domain.CreateChargeInput{
		ClientID:    clientID,
		Amount:      *r.Valor,
		DueDate:     due,
		PaymentDate: paidAt,
		Notes:       r.Observacoes,
	}
	if r.Status != nil {
		in.Status = domain.ChargeStatus(*r.Status)
	}
	return in, nil
}

func (r updateChargeRequest) toInput(h *Handler) (domain.UpdateChargeInput, error) {
	var in domain.UpdateChargeInput
	if r.ClientID != nil {
		id, err := parseUUID(*r.ClientID, "ID do cliente inválido")
		if err != nil {
			return in, err
		}
		in.ClientID = &id
	}
	in.Amount = r.Valor
	if r.DataVencimento != nil {
		due, err := h.parseDate(*r.DataVencimento, "dataVencimento")
		if err != nil {
			return in, err
		}
		in.DueDate = &due
	}
	if r.DataPagamento != nil && strings.TrimSpace(*r.DataPagamento) == "" {
		// an explicit empty value clears the payment date
		in.ClearPaymentDate = true
	} else {
		paidAt, err := h.parseOptionalTimestamp(r.DataPagamento, "dataPagamento")
		if err != nil {
			return in, err
		}
		in.PaymentDate = paidAt
	}
	if r.Status != nil {
		status := domain.ChargeStatus(*r.Status)
		in.Status = &status
	}
	in.Notes = r.Observacoes
	return in, nil
}
