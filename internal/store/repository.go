/**
 * @description
 * This file defines the `Repository` interface, the contract for all data access
 * required by the allocation core. Methods whose name ends in `Atomic` perform a
 * multi-entity state transition inside a single database transaction with a row lock
 * on the owning entity (the worker for claims, the request for proposal arbitration,
 * the contract for status changes, the session for OTP bookkeeping); they are the only
 * way the rest of the service is allowed to mutate those rows.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Worker / resource ledger methods
	CreateWorker(ctx context.Context, worker *domain.Worker) error
	FindWorkerByID(ctx context.Context, workerID uuid.UUID) (*domain.Worker, error)
	ListWorkers(ctx context.Context, opts domain.WorkerListOptions) ([]domain.Worker, error)
	// ClaimWorkerAtomic is the compare-and-set at the heart of the service: it locks
	// the worker row, verifies the status is exactly Ready, writes
	// ReservedAwaitingContract and inserts the reservation, all in one transaction.
	// Losers of a concurrent race get domain.ErrNotAvailable.
	ClaimWorkerAtomic(ctx context.Context, workerID, customerID uuid.UUID, startDate, endDate, expiresAt time.Time) (*domain.WorkerReservation, error)
	// ReleaseWorkerAtomic restores a claimed worker to Ready. Idempotent: returns
	// false without error when the worker is already Ready or in a terminal state.
	ReleaseWorkerAtomic(ctx context.Context, workerID uuid.UUID) (bool, error)
	AdvanceWorkerOnboardingAtomic(ctx context.Context, workerID uuid.UUID, next domain.WorkerStatus) (*domain.Worker, error)

	// Reservation methods
	FindReservationByID(ctx context.Context, reservationID uuid.UUID) (*domain.WorkerReservation, error)
	ListReservationsByCustomer(ctx context.Context, customerID uuid.UUID, opts domain.ReservationListOptions) ([]domain.WorkerReservation, error)
	// ApproveReservationAtomic re-checks expires_at inside the transaction; a
	// reservation past its deadline is expired and released instead, and the call
	// returns domain.ErrExpired.
	ApproveReservationAtomic(ctx context.Context, reservationID uuid.UUID, now time.Time) (*domain.WorkerReservation, error)
	CancelReservationAtomic(ctx context.Context, reservationID uuid.UUID, reason string, now time.Time) (*domain.WorkerReservation, error)
	ExtendReservationAtomic(ctx context.Context, reservationID uuid.UUID, extension time.Duration, now time.Time) (*domain.WorkerReservation, error)
	// ExpireReservationAtomic is the sweeper's transition: a non-terminal reservation
	// past expires_at becomes Expired and the worker is released, in one transaction.
	// Returns false when another request already moved the reservation on.
	ExpireReservationAtomic(ctx context.Context, reservationID uuid.UUID, now time.Time) (bool, error)
	FindExpiredReservations(ctx context.Context, now time.Time, limit int) ([]domain.WorkerReservation, error)

	// Contract and invoice methods
	// CreateContractFromReservationAtomic verifies the reservation is confirmed and
	// that no contract exists for it yet (domain.ErrAlreadyExists otherwise), inserts
	// the contract and its invoice and completes the reservation, all in one
	// transaction. The worker stays held until the contract activates.
	CreateContractFromReservationAtomic(ctx context.Context, contract *domain.Contract, invoice *domain.Invoice, now time.Time) error
	FindContractByID(ctx context.Context, contractID uuid.UUID) (*domain.Contract, error)
	ListContractsByCustomer(ctx context.Context, customerID uuid.UUID, opts domain.ContractListOptions) ([]domain.Contract, error)
	FindInvoiceByContractID(ctx context.Context, contractID uuid.UUID) (*domain.Invoice, error)
	// TransitionContractStatusAtomic validates the target against the contract
	// transition table and applies the cascading side effects (worker status, pending
	// payment sessions, linked reservation on cancellation) in the same transaction.
	TransitionContractStatusAtomic(ctx context.Context, contractID uuid.UUID, target domain.ContractStatus, reason *string, now time.Time) (*domain.Contract, error)

	// Recruitment request and proposal methods
	CreateRecruitmentRequest(ctx context.Context, request *domain.RecruitmentRequest) error
	FindRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.RecruitmentRequest, error)
	CreateProposal(ctx context.Context, proposal *domain.SupplierProposal) error
	FindProposalByID(ctx context.Context, proposalID uuid.UUID) (*domain.SupplierProposal, error)
	ListProposalsByRequest(ctx context.Context, requestID uuid.UUID) ([]domain.SupplierProposal, error)
	ReviewProposalAtomic(ctx context.Context, proposalID uuid.UUID, notes *string) (*domain.SupplierProposal, error)
	// ApproveProposalAtomic serializes all writes for a request through a lock on the
	// request row: it awards qty to this proposal, updates the request's awarded
	// quantity and status, and auto-rejects rival proposals once the request fills.
	ApproveProposalAtomic(ctx context.Context, proposalID uuid.UUID, qty int, notes *string, now time.Time) (*domain.SupplierProposal, *domain.RecruitmentRequest, error)
	RejectProposalAtomic(ctx context.Context, proposalID uuid.UUID, reason string) (*domain.SupplierProposal, error)

	// Payment session and payment methods
	// CreatePaymentSessionAtomic checks-and-inserts under a contract row lock so at
	// most one pending session exists per contract (domain.ErrAlreadyExists otherwise).
	CreatePaymentSessionAtomic(ctx context.Context, session *domain.PaymentSession) error
	FindPaymentSessionByID(ctx context.Context, sessionID uuid.UUID) (*domain.PaymentSession, error)
	// RecordFailedOTPAttempt increments the attempt counter and, at the cap, cancels
	// the session with the too-many-attempts reason, atomically.
	RecordFailedOTPAttempt(ctx context.Context, sessionID uuid.UUID, maxAttempts int) (*domain.PaymentSession, error)
	// CompletePaymentSessionAtomic completes a pending, unexpired session: inserts the
	// durable payment, marks the invoice paid, activates the contract and assigns the
	// worker, all in one transaction.
	CompletePaymentSessionAtomic(ctx context.Context, sessionID uuid.UUID, payment *domain.Payment, now time.Time) (*domain.PaymentSession, error)
	CancelPaymentSessionAtomic(ctx context.Context, sessionID uuid.UUID, reason string) (*domain.PaymentSession, error)
	FindExpiredPaymentSessions(ctx context.Context, now time.Time, limit int) ([]domain.PaymentSession, error)
	MarkOverdueInvoices(ctx context.Context, now time.Time) (int64, error)

	// Worker problem methods
	CreateWorkerProblem(ctx context.Context, problem *domain.WorkerProblem) error
	FindProblemByID(ctx context.Context, problemID uuid.UUID) (*domain.WorkerProblem, error)
	ResolveWorkerProblemAtomic(ctx context.Context, problemID uuid.UUID, approve bool, action domain.ProblemWorkerAction, resolvedBy uuid.UUID, now time.Time) (*domain.WorkerProblem, error)
	CloseWorkerProblem(ctx context.Context, problemID uuid.UUID) (*domain.WorkerProblem, error)
}
