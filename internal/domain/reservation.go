/**
 * @description
 * This file defines the WorkerReservation entity: a time-boxed exclusive claim on
 * exactly one worker by exactly one customer. At most one reservation in a
 * non-terminal state may reference a given worker at any instant; the claim itself is
 * enforced on the worker row, the reservation records who holds it and until when.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReservationState enumerates the reservation lifecycle states.
type ReservationState string

const (
	ReservationAwaitingContract ReservationState = "awaiting_contract"
	ReservationAwaitingPayment  ReservationState = "awaiting_payment"
	ReservationCompleted        ReservationState = "completed"
	ReservationCancelled        ReservationState = "cancelled"
	ReservationExpired          ReservationState = "expired"
)

var reservationTransitions = map[ReservationState][]ReservationState{
	ReservationAwaitingContract: {ReservationAwaitingPayment, ReservationCancelled, ReservationExpired},
	ReservationAwaitingPayment:  {ReservationCompleted, ReservationCancelled, ReservationExpired},
	ReservationCompleted:        {},
	ReservationCancelled:        {},
	ReservationExpired:          {},
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s ReservationState) CanTransitionTo(target ReservationState) bool {
	for _, allowed := range reservationTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s ReservationState) Terminal() bool {
	return len(reservationTransitions[s]) == 0
}

// ReservationAction is the set of actions accepted by the process operation.
type ReservationAction string

const (
	ReservationActionApprove ReservationAction = "approve"
	ReservationActionReject  ReservationAction = "reject"
	ReservationActionExtend  ReservationAction = "extend"
)

// WorkerReservation maps to the `worker_reservations` table.
type WorkerReservation struct {
	ID           uuid.UUID        `json:"id"`
	WorkerID     uuid.UUID        `json:"worker_id"`
	CustomerID   uuid.UUID        `json:"customer_id"`
	State        ReservationState `json:"state"`
	StartDate    time.Time        `json:"start_date"`
	EndDate      time.Time        `json:"end_date"`
	ExpiresAt    time.Time        `json:"expires_at"`
	CancelReason *string          `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ReserveWorkerPayload is the DTO for a customer reservation request.
type ReserveWorkerPayload struct {
	WorkerID  uuid.UUID `json:"worker_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// ProcessReservationPayload is the DTO for the back-office process operation.
type ProcessReservationPayload struct {
	Action           ReservationAction `json:"action"`
	ExtensionMinutes int               `json:"extension_minutes,omitempty"`
	Reason           *string           `json:"reason,omitempty"`
}

// ReservationListOptions controls pagination for reservation listings.
type ReservationListOptions struct {
	Limit  int
	Offset int
	State  string
}
