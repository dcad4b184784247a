/**
 * @description
 * HTTP handlers for the billing service.
 */
package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/rjunioramorim/app-cobrancas/internal/app"
	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service  app.Service
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service app.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, validate: newValidator(), logger: logger}
}

func (h *Handler) tenant(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, domain.Unauthorized("Não autenticado"))
	}
	return tenantID, ok
}

func (h *Handler) chargeID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := parseUUID(chi.URLParam(r, "id"), "ID inválido")
	if err != nil {
		writeError(w, h.logger, err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleListCharges(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var filter domain.ChargeFilter
	var err error
	if filter.StartDate, err = h.parseOptionalDate(optional(q.Get("start")), "start"); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if filter.EndDate, err = h.parseOptionalDate(optional(q.Get("end")), "end"); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if raw := strings.ToUpper(strings.TrimSpace(q.Get("status"))); raw != "" {
		status := domain.ChargeStatus(raw)
		if !status.Valid() {
			writeError(w, h.logger, domain.Validation("Status inválido"))
			return
		}
		filter.Status = &status
	}
	filter.ClientName = q.Get("client")

	charges, err := h.service.ListCharges(r.Context(), tenantID, filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, charges)
}

func (h *Handler) handleCreateCharge(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	var req createChargeRequest
	if err := h.decodeAndValidate(r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	in, err := req.toInput(h)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	charge, err := h.service.CreateCharge(r.Context(), tenantID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, charge)
}

func (h *Handler) handleGetCharge(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	id, ok := h.chargeID(w, r)
	if !ok {
		return
	}

	charge, err := h.service.GetCharge(r.Context(), tenantID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, charge)
}

func (h *Handler) handleUpdateCharge(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	id, ok := h.chargeID(w, r)
	if !ok {
		return
	}

	var req updateChargeRequest
	if err := h.decodeAndValidate(r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.empty() {
		writeError(w, h.logger, domain.Validation("Informe ao menos um campo para atualizar"))
		return
	}
	in, err := req.toInput(h)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	charge, err := h.service.UpdateCharge(r.Context(), tenantID, id, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, charge)
}

func (h *Handler) handlePayCharge(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	id, ok := h.chargeID(w, r)
	if !ok {
		return
	}

	var req payChargeRequest
	if err := h.decodeAndValidate(r, &req, true); err != nil {
		writeError(w, h.logger, err)
		return
	}
	paidAt, err := h.parseOptionalTimestamp(req.DataPagamento, "dataPagamento")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	charge, err := h.service.MarkAsPaid(r.Context(), tenantID, id, domain.PaymentInput{Amount: req.Valor, PaymentDate: paidAt})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, charge)
}

func (h *Handler) handleIntegrationUpdate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	id, ok := h.chargeID(w, r)
	if !ok {
		return
	}

	var req integrationUpdateRequest
	if err := h.decodeAndValidate(r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.service.ApplyIntegrationUpdate(r.Context(), tenantID, id, domain.IntegrationUpdateInput{
		MessageAttemptsDelta: req.MessageAttemptsDelta,
		Notes:                req.Observacoes,
		AppendNotes:          req.AppendObservacoes,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRecordMessage(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	var req messageRequest
	if err := h.decodeAndValidate(r, &req, false); err != nil {
		writeError(w, h.logger, err)
		return
	}
	id, err := parseUUID(req.ID, "ID inválido")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.service.RecordMessage(r.Context(), tenantID, id, req.Observacoes, bool(req.AppendObservacoes))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListActionable(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	var cursor *uuid.UUID
	if raw := strings.TrimSpace(q.Get("cursor")); raw != "" {
		id, err := parseUUID(raw, "Cursor inválido")
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		cursor = &id
	}
	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, h.logger, domain.Validation("Limite inválido"))
			return
		}
		limit = n
	}

	page, err := h.service.ListActionableCharges(r.Context(), tenantID, cursor, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) handleIncrementAttempt(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}
	id, ok := h.chargeID(w, r)
	if !ok {
		return
	}

	result, err := h.service.IncrementAttempt(r.Context(), tenantID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenant(w, r)
	if !ok {
		return
	}

	stats, err := h.service.DashboardStats(r.Context(), tenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleGenerateBills(w http.ResponseWriter, r *http.Request) {
	var req generateBillsRequest
	if err := h.decodeAndValidate(r, &req, true); err != nil {
		writeError(w, h.logger, err)
		return
	}

	in := app.GenerateBillsInput{Month: req.Month, Year: req.Year}
	userID := chi.URLParam(r, "userId")
	if userID == "" && req.UserID != nil {
		userID = *req.UserID
	}
	if userID != "" {
		id, err := parseUUID(userID, "ID de usuário inválido")
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		in.TenantID = &id
	}

	result, err := h.service.GenerateBills(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
