/**
 * @description
 * HTTP handlers for the reservation lifecycle: the customer-facing claim, listing
 * and cancellation, and the back-office process action.
 */

package api

import (
	"net/http"
	"strconv"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

// ReserveWorkerHandler places an exclusive claim on a worker.
func (h *AllocationHandlers) ReserveWorkerHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload domain.ReserveWorkerPayload
	if !h.decodeBody(w, r, &payload) {
		return
	}

	reservation, err := h.service.ReserveWorker(r.Context(), actor.ID, payload)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, reservation)
}

// ListReservationsHandler returns the caller's reservations.
func (h *AllocationHandlers) ListReservationsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	q := r.URL.Query()
	opts := domain.ReservationListOptions{State: q.Get("state")}
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))
	opts.Offset, _ = strconv.Atoi(q.Get("offset"))

	reservations, err := h.service.ListReservations(r.Context(), actor.ID, opts)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"reservations": reservations})
}

// GetReservationHandler returns one reservation.
func (h *AllocationHandlers) GetReservationHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	reservationID, ok := h.pathUUID(w, r, "reservationID")
	if !ok {
		return
	}

	reservation, err := h.service.GetReservation(r.Context(), actor.ID, actor.IsStaff(), reservationID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, reservation)
}

// CancelReservationHandler lets the owning customer abandon a reservation.
func (h *AllocationHandlers) CancelReservationHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	reservationID, ok := h.pathUUID(w, r, "reservationID")
	if !ok {
		return
	}

	var payload struct {
		Reason string `json:"reason"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	reservation, err := h.service.CancelReservation(r.Context(), actor.ID, reservationID, payload.Reason)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, reservation)
}

// ProcessReservationHandler is the back-office approve / reject / extend action.
func (h *AllocationHandlers) ProcessReservationHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	reservationID, ok := h.pathUUID(w, r, "reservationID")
	if !ok {
		return
	}

	var payload domain.ProcessReservationPayload
	if !h.decodeBody(w, r, &payload) {
		return
	}

	reservation, err := h.service.ProcessReservation(r.Context(), actor.ID, reservationID, payload)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, reservation)
}
