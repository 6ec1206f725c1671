/**
 * @description
 * This file defines the Contract and Invoice entities and the contract status state
 * machine. A contract is created from exactly one confirmed reservation and owns at
 * most one invoice. Contract status changes cascade into the worker's status, so the
 * transition table here and the worker table in worker.go are always applied together
 * inside one database transaction.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest currency unit (halalas) to avoid
 *   floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContractStatus enumerates the contract lifecycle states.
type ContractStatus string

const (
	ContractDraft           ContractStatus = "draft"
	ContractAwaitingPayment ContractStatus = "awaiting_payment"
	ContractActive          ContractStatus = "active"
	ContractSuspended       ContractStatus = "suspended"
	ContractTerminated      ContractStatus = "terminated"
	ContractCompleted       ContractStatus = "completed"
	ContractCancelled       ContractStatus = "cancelled"
)

// contractTransitions is the authoritative transition table.
var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractDraft:           {ContractAwaitingPayment, ContractActive, ContractCancelled},
	ContractAwaitingPayment: {ContractActive, ContractCancelled},
	ContractActive:          {ContractSuspended, ContractTerminated, ContractCompleted},
	ContractSuspended:       {ContractActive, ContractTerminated},
	ContractTerminated:      {},
	ContractCompleted:       {},
	ContractCancelled:       {},
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s ContractStatus) CanTransitionTo(target ContractStatus) bool {
	for _, allowed := range contractTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s ContractStatus) Terminal() bool {
	return len(contractTransitions[s]) == 0
}

// ReleasesWorker reports whether entering s hands the worker back to the pool.
func (s ContractStatus) ReleasesWorker() bool {
	return s == ContractTerminated || s == ContractCompleted || s == ContractCancelled
}

// Contract maps to the `contracts` table.
type Contract struct {
	ID             uuid.UUID      `json:"id"`
	ReservationID  uuid.UUID      `json:"reservation_id"`
	CustomerID     uuid.UUID      `json:"customer_id"`
	WorkerID       uuid.UUID      `json:"worker_id"`
	PackageID      uuid.UUID      `json:"package_id"`
	Status         ContractStatus `json:"status"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	OriginalAmount int64          `json:"original_amount"`
	DiscountAmount int64          `json:"discount_amount"`
	TotalAmount    int64          `json:"total_amount"`
	CancelReason   *string        `json:"cancel_reason,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// InvoiceStatus enumerates invoice states.
type InvoiceStatus string

const (
	InvoiceUnpaid  InvoiceStatus = "unpaid"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

// Invoice maps to the `invoices` table. One invoice per contract.
type Invoice struct {
	ID         uuid.UUID     `json:"id"`
	ContractID uuid.UUID     `json:"contract_id"`
	Amount     int64         `json:"amount"`
	DueDate    time.Time     `json:"due_date"`
	Status     InvoiceStatus `json:"status"`
	PaidAt     *time.Time    `json:"paid_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// ContractTerms is the DTO for creating a contract from a confirmed reservation.
type ContractTerms struct {
	ReservationID    uuid.UUID `json:"reservation_id"`
	PackageID        uuid.UUID `json:"package_id"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	OriginalAmount   int64     `json:"original_amount"`
	DiscountAmount   int64     `json:"discount_amount"`
	PaymentOnSigning bool      `json:"payment_on_signing"`
}

// TransitionContractPayload is the DTO for an explicit status transition request.
type TransitionContractPayload struct {
	Target ContractStatus `json:"target"`
}

// CancelContractPayload is the DTO for a contract cancellation request.
type CancelContractPayload struct {
	Reason string `json:"reason"`
}

// ContractListOptions controls pagination for contract listings.
type ContractListOptions struct {
	Limit  int
	Offset int
	Status string
}
