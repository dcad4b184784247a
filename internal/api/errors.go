/**
 * @description
 * Error-kind to HTTP status mapping and JSON response helpers.
 */
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rjunioramorim/app-cobrancas/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusForKind maps every domain error kind to its HTTP status.
func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindValidation, domain.KindInvalidState, domain.KindAttemptLimitExceeded:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes JSON responses.
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

// writeError renders err as {"error", "code"}. Internal errors are logged
// and their cause hidden.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := domain.KindOf(err)
	message := err.Error()
	if de, ok := err.(*domain.Error); ok {
		message = de.Message
	}
	if kind == domain.KindInternal {
		logger.Error("request failed", "error", err)
		message = "Erro interno"
	}
	writeJSON(w, statusForKind(kind), errorResponse{Error: message, Code: kind.String()})
}
