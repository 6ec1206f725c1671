/**
 * @description
 * This file contains the shared plumbing for the allocation service's HTTP handlers:
 * the handler container, JSON response helpers, and the single mapping from typed
 * domain errors to HTTP status codes. Individual endpoint handlers live in the
 * handlers_*.go files next to this one.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/app"
	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

// AllocationHandlers holds the application service that handlers will use.
type AllocationHandlers struct {
	service *app.Service
}

// NewAllocationHandlers creates a new instance of AllocationHandlers.
func NewAllocationHandlers(service *app.Service) *AllocationHandlers {
	return &AllocationHandlers{service: service}
}

// decodeBody decodes the request body into dst, writing a 400 on failure.
func (h *AllocationHandlers) decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// pathUUID parses the named URL parameter as a UUID, writing a 400 on failure.
func (h *AllocationHandlers) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// writeDomainError translates the typed failure taxonomy into HTTP responses. Every
// handler funnels its service errors through here so the mapping stays in one place.
func (h *AllocationHandlers) writeDomainError(w http.ResponseWriter, err error) {
	var invalidTransition *domain.InvalidTransitionError
	var validation *domain.ValidationError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeErrorCode(w, http.StatusNotFound, "not_found", "Not found")
	case errors.Is(err, domain.ErrNotAvailable):
		h.writeErrorCode(w, http.StatusConflict, "not_available", "Worker is not available")
	case errors.Is(err, domain.ErrAlreadyExists):
		h.writeErrorCode(w, http.StatusConflict, "already_exists", "Already exists")
	case errors.Is(err, domain.ErrNotProcessable):
		h.writeErrorCode(w, http.StatusUnprocessableEntity, "not_processable", "Entity is not in a processable state")
	case errors.As(err, &invalidTransition):
		h.writeErrorCode(w, http.StatusUnprocessableEntity, "invalid_transition", invalidTransition.Error())
	case errors.Is(err, domain.ErrExpired):
		h.writeErrorCode(w, http.StatusGone, "expired", "Expired")
	case errors.Is(err, domain.ErrTooManyAttempts):
		h.writeErrorCode(w, http.StatusLocked, "too_many_attempts", "Too many attempts")
	case errors.Is(err, domain.ErrInvalidCode):
		h.writeErrorCode(w, http.StatusBadRequest, "invalid_code", "Invalid code")
	case errors.Is(err, domain.ErrRateLimited):
		h.writeErrorCode(w, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please wait and try again.")
	case errors.Is(err, domain.ErrUnauthorized):
		h.writeErrorCode(w, http.StatusForbidden, "forbidden", "Forbidden")
	case errors.As(err, &validation):
		h.writeErrorCode(w, http.StatusBadRequest, "validation_failed", validation.Error())
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		h.writeErrorCode(w, http.StatusInternalServerError, "internal", "Internal server error")
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *AllocationHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *AllocationHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeErrorCode writes an error response carrying a stable machine-readable code
// alongside the human-readable message.
func (h *AllocationHandlers) writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]string{"error": message, "code": code})
}
