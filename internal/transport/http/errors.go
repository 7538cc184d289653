package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cimillas/client-ledger/internal/domain"
	"github.com/cimillas/client-ledger/internal/scenario"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeInvalidQuery       = "invalid_query"
	codeValidation         = "validation_failed"
	codeInvalidID          = "invalid_id"
	codeSameParty          = "same_party"
	codeInvalidPrice       = "invalid_price"
	codePartyInactive      = "party_inactive_or_missing"
	codeProfitFloor        = "profit_floor_breached"
	codeDuplicateOrder     = "duplicate_business_key"
	codeVersionConflict    = "version_conflict"
	codeEmailTaken         = "email_taken"
	codePhoneTaken         = "phone_taken"
	codeClientNotFound     = "client_not_found"
	codeClientActive       = "client_already_active"
	codeOrderNotFound      = "order_not_found"
	codeUnknownScenario    = "unknown_scenario"
	codeInterrupted        = "processing_interrupted"
	codeUnavailable        = "unavailable"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

// writeDomainError maps a service error to its status and code. Unknown
// errors are logged and reported as a bare 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError && code == codeInternalError {
		logger.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, code, "internal error")
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code, Fields: domain.FieldErrors(err)})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		return http.StatusBadRequest, codeInvalidID
	case errors.Is(err, domain.ErrSameParty):
		return http.StatusBadRequest, codeSameParty
	case errors.Is(err, domain.ErrInvalidPrice):
		return http.StatusBadRequest, codeInvalidPrice
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, domain.ErrPartyInactiveOrMissing):
		return http.StatusUnprocessableEntity, codePartyInactive
	case errors.Is(err, domain.ErrProfitFloorBreached):
		return http.StatusUnprocessableEntity, codeProfitFloor
	case errors.Is(err, domain.ErrDuplicateBusinessKey):
		return http.StatusConflict, codeDuplicateOrder
	case errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict, codeVersionConflict
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, codeEmailTaken
	case errors.Is(err, domain.ErrPhoneTaken):
		return http.StatusConflict, codePhoneTaken
	case errors.Is(err, domain.ErrClientAlreadyActive):
		return http.StatusConflict, codeClientActive
	case errors.Is(err, domain.ErrClientNotFound):
		return http.StatusNotFound, codeClientNotFound
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, codeOrderNotFound
	case errors.Is(err, scenario.ErrUnknownScenario):
		return http.StatusNotFound, codeUnknownScenario
	case errors.Is(err, domain.ErrInterrupted):
		return http.StatusInternalServerError, codeInterrupted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, codeUnavailable
	}
	return http.StatusInternalServerError, codeInternalError
}
