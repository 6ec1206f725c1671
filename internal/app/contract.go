/**
 * @description
 * Contract operations: creating a contract from a confirmed reservation (with its
 * invoice), explicit status transitions, and cancellation. A new contract starts in
 * Draft, or AwaitingPayment when the terms require payment on signing; activation is
 * always an explicit transition, never a creation-time side effect.
 */

package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

// CreateContract converts a confirmed reservation into a contract and invoice.
func (s *Service) CreateContract(ctx context.Context, customerID uuid.UUID, terms domain.ContractTerms) (*domain.Contract, *domain.Invoice, error) {
	if terms.ReservationID == uuid.Nil {
		return nil, nil, domain.NewValidation("reservation_id", "must be set")
	}
	if terms.EndDate.Before(terms.StartDate) {
		return nil, nil, domain.NewValidation("end_date", "must not precede start_date")
	}
	if terms.OriginalAmount <= 0 {
		return nil, nil, domain.NewValidation("original_amount", "must be positive")
	}
	if terms.DiscountAmount < 0 || terms.DiscountAmount > terms.OriginalAmount {
		return nil, nil, domain.NewValidation("discount_amount", "must be between zero and original_amount")
	}

	reservation, err := s.repo.FindReservationByID(ctx, terms.ReservationID)
	if err != nil {
		return nil, nil, err
	}
	if reservation.CustomerID != customerID {
		return nil, nil, domain.ErrUnauthorized
	}

	now := s.now()
	status := domain.ContractDraft
	if terms.PaymentOnSigning {
		status = domain.ContractAwaitingPayment
	}
	contract := &domain.Contract{
		ID:             uuid.New(),
		ReservationID:  reservation.ID,
		CustomerID:     reservation.CustomerID,
		WorkerID:       reservation.WorkerID,
		PackageID:      terms.PackageID,
		Status:         status,
		StartDate:      terms.StartDate,
		EndDate:        terms.EndDate,
		OriginalAmount: terms.OriginalAmount,
		DiscountAmount: terms.DiscountAmount,
		TotalAmount:    terms.OriginalAmount - terms.DiscountAmount,
	}
	invoice := &domain.Invoice{
		ID:         uuid.New(),
		ContractID: contract.ID,
		Amount:     contract.TotalAmount,
		DueDate:    now.Add(s.policy.InvoiceDueIn),
		Status:     domain.InvoiceUnpaid,
	}

	if err := s.repo.CreateContractFromReservationAtomic(ctx, contract, invoice, now); err != nil {
		return nil, nil, err
	}

	s.publishContractState(ctx, contract, "contract.created", now)
	s.publishAudit(ctx, domain.EntityContract, contract.ID, "created", customerID,
		nil, map[string]interface{}{"status": contract.Status, "reservation_id": contract.ReservationID})
	return contract, invoice, nil
}

// GetContract returns a contract, visible to its owner or back-office staff.
func (s *Service) GetContract(ctx context.Context, actorID uuid.UUID, isStaff bool, contractID uuid.UUID) (*domain.Contract, error) {
	contract, err := s.repo.FindContractByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !isStaff && contract.CustomerID != actorID {
		return nil, domain.ErrUnauthorized
	}
	return contract, nil
}

// ListContracts returns the customer's contracts.
func (s *Service) ListContracts(ctx context.Context, customerID uuid.UUID, opts domain.ContractListOptions) ([]domain.Contract, error) {
	return s.repo.ListContractsByCustomer(ctx, customerID, opts)
}

// GetInvoice returns the invoice attached to a contract.
func (s *Service) GetInvoice(ctx context.Context, actorID uuid.UUID, isStaff bool, contractID uuid.UUID) (*domain.Invoice, error) {
	contract, err := s.repo.FindContractByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !isStaff && contract.CustomerID != actorID {
		return nil, domain.ErrUnauthorized
	}
	return s.repo.FindInvoiceByContractID(ctx, contractID)
}

// TransitionContract applies an explicit status change requested by back office.
func (s *Service) TransitionContract(ctx context.Context, actorID, contractID uuid.UUID, target domain.ContractStatus) (*domain.Contract, error) {
	now := s.now()
	contract, err := s.repo.TransitionContractStatusAtomic(ctx, contractID, target, nil, now)
	if err != nil {
		return nil, err
	}

	s.publishContractState(ctx, contract, "contract.transitioned", now)
	s.publishAudit(ctx, domain.EntityContract, contract.ID, "transitioned", actorID,
		nil, map[string]interface{}{"status": contract.Status})
	return contract, nil
}

// CancelContract cancels a contract that has not yet activated. The owning customer
// may cancel their own contract; staff may cancel any.
func (s *Service) CancelContract(ctx context.Context, actorID uuid.UUID, isStaff bool, contractID uuid.UUID, reason string) (*domain.Contract, error) {
	existing, err := s.repo.FindContractByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !isStaff && existing.CustomerID != actorID {
		return nil, domain.ErrUnauthorized
	}
	if reason == "" {
		return nil, domain.NewValidation("reason", "must not be empty")
	}

	now := s.now()
	contract, err := s.repo.TransitionContractStatusAtomic(ctx, contractID, domain.ContractCancelled, &reason, now)
	if err != nil {
		return nil, err
	}

	s.publishContractState(ctx, contract, "contract.cancelled", now)
	s.publishAudit(ctx, domain.EntityContract, contract.ID, "cancelled", actorID,
		nil, map[string]interface{}{"status": contract.Status, "reason": reason})
	return contract, nil
}

func (s *Service) publishContractState(ctx context.Context, contract *domain.Contract, routingKey string, now time.Time) {
	s.publishEvent(ctx, routingKey, domain.ContractEvent{
		ContractID: contract.ID,
		CustomerID: contract.CustomerID,
		WorkerID:   contract.WorkerID,
		Status:     contract.Status,
		Timestamp:  now.UTC(),
	})
}
