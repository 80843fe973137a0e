package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/verdantis/fulfillment/internal/domain"
)

// Коды ошибок в теле ответа. UI различает отказы по коду, не по тексту.
const (
	codeBadRequest          = "bad_request"
	codeInvalidItems        = "invalid_items"
	codeInvalidTransition   = "invalid_transition"
	codeInvalidState        = "invalid_state"
	codeForbidden           = "forbidden"
	codeNotFound            = "not_found"
	codeVersionConflict     = "version_conflict"
	codeInsufficientStock   = "insufficient_stock"
	codeIdempotencyMismatch = "idempotency_key_reused"
	codeRequestInProgress   = "request_in_progress"
	codeInternal            = "internal_error"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{Error: errorPayload{Code: code, Message: message}})
}

// respondDomainError транслирует доменные ошибки в HTTP-статусы.
// Сбои хранилища не детализируются наружу.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidItems):
		s.respondError(w, http.StatusBadRequest, codeInvalidItems, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		s.respondError(w, http.StatusBadRequest, codeInvalidTransition, err.Error())
	case errors.Is(err, domain.ErrInvalidState):
		s.respondError(w, http.StatusBadRequest, codeInvalidState, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		s.respondError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		s.respondError(w, http.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientStock):
		s.respondError(w, http.StatusConflict, codeInsufficientStock, err.Error())
	case domain.IsVersionConflict(err):
		s.respondError(w, http.StatusConflict, codeVersionConflict, err.Error())
	case domain.IsStorageError(err):
		s.logger.WithError(err).Error("Storage failure while handling request")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "storage failure")
	default:
		s.logger.WithError(err).Error("Unexpected error while handling request")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}
