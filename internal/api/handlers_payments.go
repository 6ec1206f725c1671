/**
 * @description
 * HTTP handlers for OTP-gated payment sessions: starting a session for a contract
 * awaiting payment, verifying the code, reading session status and cancelling.
 */

package api

import (
	"net/http"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

// StartPaymentSessionHandler opens a payment session for a contract.
func (h *AllocationHandlers) StartPaymentSessionHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	contractID, ok := h.pathUUID(w, r, "contractID")
	if !ok {
		return
	}

	var payload domain.CreatePaymentSessionPayload
	if !h.decodeBody(w, r, &payload) {
		return
	}

	session, err := h.service.StartPaymentSession(r.Context(), actor.ID, contractID, payload)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, session)
}

// GetPaymentSessionStatusHandler returns a read-only session snapshot.
func (h *AllocationHandlers) GetPaymentSessionStatusHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	sessionID, ok := h.pathUUID(w, r, "sessionID")
	if !ok {
		return
	}

	view, err := h.service.GetPaymentSessionStatus(r.Context(), actor.ID, sessionID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// VerifyOTPHandler checks a submitted code and settles the contract on a match.
func (h *AllocationHandlers) VerifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	sessionID, ok := h.pathUUID(w, r, "sessionID")
	if !ok {
		return
	}

	var payload domain.VerifyOTPPayload
	if !h.decodeBody(w, r, &payload) {
		return
	}

	payment, err := h.service.VerifyOTP(r.Context(), actor.ID, sessionID, payload.Code)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, payment)
}

// CancelPaymentSessionHandler abandons a pending session.
func (h *AllocationHandlers) CancelPaymentSessionHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	sessionID, ok := h.pathUUID(w, r, "sessionID")
	if !ok {
		return
	}

	var payload domain.CancelPaymentSessionPayload
	if !h.decodeBody(w, r, &payload) {
		return
	}

	session, err := h.service.CancelPaymentSession(r.Context(), actor.ID, sessionID, payload.Reason)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, session)
}
