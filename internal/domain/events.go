/**
 * @description
 * This file defines the event payloads published to RabbitMQ when the allocation core
 * changes state. Notification dispatch and audit logging are external collaborators;
 * this service only emits routed events describing what happened.
 *
 * @notes
 * - Audit events reference entities through the EntityKind enumeration rather than a
 *   free-form string, so consumers can rely on a closed set of kinds.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind is the closed set of entity kinds referenced by audit events.
type EntityKind string

const (
	EntityWorker         EntityKind = "worker"
	EntityReservation    EntityKind = "reservation"
	EntityContract       EntityKind = "contract"
	EntityInvoice        EntityKind = "invoice"
	EntityProposal       EntityKind = "proposal"
	EntityRequest        EntityKind = "recruitment_request"
	EntityPaymentSession EntityKind = "payment_session"
	EntityPayment        EntityKind = "payment"
	EntityProblem        EntityKind = "worker_problem"
)

// Valid reports whether k is one of the known entity kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case EntityWorker, EntityReservation, EntityContract, EntityInvoice,
		EntityProposal, EntityRequest, EntityPaymentSession, EntityPayment, EntityProblem:
		return true
	}
	return false
}

// AuditEvent is the payload published for every mutating operation.
type AuditEvent struct {
	Entity    EntityKind             `json:"entity"`
	EntityID  uuid.UUID              `json:"entity_id"`
	Action    string                 `json:"action"`
	ActorID   uuid.UUID              `json:"actor_id"`
	OldValues map[string]interface{} `json:"old_values,omitempty"`
	NewValues map[string]interface{} `json:"new_values,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// ReservationEvent is published on reservation lifecycle changes.
type ReservationEvent struct {
	ReservationID uuid.UUID        `json:"reservation_id"`
	WorkerID      uuid.UUID        `json:"worker_id"`
	CustomerID    uuid.UUID        `json:"customer_id"`
	State         ReservationState `json:"state"`
	ExpiresAt     time.Time        `json:"expires_at"`
	Timestamp     time.Time        `json:"timestamp"`
}

// ContractEvent is published on contract lifecycle changes.
type ContractEvent struct {
	ContractID uuid.UUID      `json:"contract_id"`
	CustomerID uuid.UUID      `json:"customer_id"`
	WorkerID   uuid.UUID      `json:"worker_id"`
	Status     ContractStatus `json:"status"`
	Timestamp  time.Time      `json:"timestamp"`
}

// ProposalEvent is published on proposal arbitration outcomes.
type ProposalEvent struct {
	ProposalID    uuid.UUID      `json:"proposal_id"`
	RequestID     uuid.UUID      `json:"request_id"`
	AgencyID      uuid.UUID      `json:"agency_id"`
	Status        ProposalStatus `json:"status"`
	ApprovedQty   int            `json:"approved_qty"`
	RequestStatus RequestStatus  `json:"request_status"`
	Timestamp     time.Time      `json:"timestamp"`
}

// PaymentSessionEvent is published on payment session lifecycle changes.
type PaymentSessionEvent struct {
	SessionID  uuid.UUID            `json:"session_id"`
	ContractID uuid.UUID            `json:"contract_id"`
	Status     PaymentSessionStatus `json:"status"`
	Reason     *string              `json:"reason,omitempty"`
	Timestamp  time.Time            `json:"timestamp"`
}

// ProblemEvent is published when a worker problem is reported or resolved.
type ProblemEvent struct {
	ProblemID uuid.UUID     `json:"problem_id"`
	WorkerID  uuid.UUID     `json:"worker_id"`
	Status    ProblemStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
}
