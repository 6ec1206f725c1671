package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
	"github.com/belal1alaidaroos/TestProject-sub001/internal/store"
)

// allocationFlowStub carries one worker and one reservation through the whole
// reserve, approve, contract path, honoring the same state checks the atomic store
// operations make.
type allocationFlowStub struct {
	store.Repository

	workerStatus   domain.WorkerStatus
	reservation    *domain.WorkerReservation
	contractExists bool
}

func (s *allocationFlowStub) ClaimWorkerAtomic(ctx context.Context, workerID, customerID uuid.UUID, startDate, endDate, expiresAt time.Time) (*domain.WorkerReservation, error) {
	if s.workerStatus != domain.WorkerReady {
		return nil, domain.ErrNotAvailable
	}
	s.workerStatus = domain.WorkerReservedAwaitingContract
	s.reservation = &domain.WorkerReservation{
		ID:         uuid.New(),
		WorkerID:   workerID,
		CustomerID: customerID,
		State:      domain.ReservationAwaitingContract,
		StartDate:  startDate,
		EndDate:    endDate,
		ExpiresAt:  expiresAt,
	}
	return s.reservation, nil
}

func (s *allocationFlowStub) FindReservationByID(ctx context.Context, reservationID uuid.UUID) (*domain.WorkerReservation, error) {
	if s.reservation == nil || s.reservation.ID != reservationID {
		return nil, domain.ErrNotFound
	}
	return s.reservation, nil
}

func (s *allocationFlowStub) ApproveReservationAtomic(ctx context.Context, reservationID uuid.UUID, now time.Time) (*domain.WorkerReservation, error) {
	if s.reservation == nil || s.reservation.ID != reservationID {
		return nil, domain.ErrNotFound
	}
	if s.reservation.State != domain.ReservationAwaitingContract {
		return nil, domain.ErrNotProcessable
	}
	s.reservation.State = domain.ReservationAwaitingPayment
	s.workerStatus = domain.WorkerReservedAwaitingPayment
	return s.reservation, nil
}

func (s *allocationFlowStub) CreateContractFromReservationAtomic(ctx context.Context, contract *domain.Contract, invoice *domain.Invoice, now time.Time) error {
	if s.reservation == nil || s.reservation.ID != contract.ReservationID {
		return domain.ErrNotFound
	}
	if s.contractExists {
		return domain.ErrAlreadyExists
	}
	if s.reservation.State != domain.ReservationAwaitingPayment {
		return domain.ErrNotProcessable
	}
	s.contractExists = true
	s.reservation.State = domain.ReservationCompleted
	return nil
}

func TestAllocationFlow_TwoCustomersOneWorker(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	repo := &allocationFlowStub{workerStatus: domain.WorkerReady}
	publisher := &capturingPublisher{}
	svc := newTestService(repo, publisher, now)

	workerID := uuid.New()
	customerA := uuid.New()
	customerB := uuid.New()

	reservation, err := svc.ReserveWorker(context.Background(), customerA, domain.ReserveWorkerPayload{
		WorkerID:  workerID,
		StartDate: now.AddDate(0, 0, 7),
		EndDate:   now.AddDate(1, 0, 7),
	})
	if err != nil {
		t.Fatalf("first customer's reserve returned error: %v", err)
	}
	if repo.workerStatus != domain.WorkerReservedAwaitingContract {
		t.Fatalf("expected the worker held for contract, got %s", repo.workerStatus)
	}

	if _, err := svc.ReserveWorker(context.Background(), customerB, domain.ReserveWorkerPayload{
		WorkerID:  workerID,
		StartDate: now.AddDate(0, 0, 14),
		EndDate:   now.AddDate(1, 0, 14),
	}); !errors.Is(err, domain.ErrNotAvailable) {
		t.Fatalf("expected the second customer to lose the claim, got %v", err)
	}

	staffID := uuid.New()
	approved, err := svc.ProcessReservation(context.Background(), staffID, reservation.ID,
		domain.ProcessReservationPayload{Action: domain.ReservationActionApprove})
	if err != nil {
		t.Fatalf("approve returned error: %v", err)
	}
	if approved.State != domain.ReservationAwaitingPayment {
		t.Fatalf("expected an approved reservation awaiting payment, got %s", approved.State)
	}

	// The claim holds through approval: the rival still cannot reserve.
	if _, err := svc.ReserveWorker(context.Background(), customerB, domain.ReserveWorkerPayload{
		WorkerID:  workerID,
		StartDate: now.AddDate(0, 0, 14),
		EndDate:   now.AddDate(1, 0, 14),
	}); !errors.Is(err, domain.ErrNotAvailable) {
		t.Fatalf("expected the worker to stay unavailable after approval, got %v", err)
	}

	contract, invoice, err := svc.CreateContract(context.Background(), customerA, domain.ContractTerms{
		ReservationID:    reservation.ID,
		PackageID:        uuid.New(),
		StartDate:        reservation.StartDate,
		EndDate:          reservation.EndDate,
		OriginalAmount:   1200000,
		DiscountAmount:   200000,
		PaymentOnSigning: true,
	})
	if err != nil {
		t.Fatalf("CreateContract returned error: %v", err)
	}
	if contract.Status != domain.ContractAwaitingPayment {
		t.Fatalf("expected a contract awaiting payment, got %s", contract.Status)
	}
	if invoice.Amount != 1000000 {
		t.Fatalf("expected an invoice over the discounted total, got %d", invoice.Amount)
	}
	if repo.reservation.State != domain.ReservationCompleted {
		t.Fatalf("expected a completed reservation, got %s", repo.reservation.State)
	}
	if repo.workerStatus != domain.WorkerReservedAwaitingPayment {
		t.Fatalf("expected the worker held until payment, got %s", repo.workerStatus)
	}

	if _, _, err := svc.CreateContract(context.Background(), customerA, domain.ContractTerms{
		ReservationID:  reservation.ID,
		StartDate:      reservation.StartDate,
		EndDate:        reservation.EndDate,
		OriginalAmount: 1200000,
	}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected a duplicate contract to be refused, got %v", err)
	}

	want := []string{"reservation.created", "reservation.approved", "contract.created"}
	got := publisher.routingKeys()
	for _, key := range want {
		found := false
		for _, k := range got {
			if k == key {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected a %s event, published: %v", key, got)
		}
	}
}
