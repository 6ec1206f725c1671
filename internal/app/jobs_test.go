package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
	"github.com/belal1alaidaroos/TestProject-sub001/internal/store"
)

type jobsRepoStub struct {
	store.Repository

	reservations    []domain.WorkerReservation
	reservationsErr error
	expireResults   map[uuid.UUID]bool

	sessions   []domain.PaymentSession
	cancelErrs map[uuid.UUID]error

	overdueCount int64
	overdueErr   error

	expireCalls  int
	cancelCalls  int
	overdueCalls int
}

func (s *jobsRepoStub) FindExpiredReservations(ctx context.Context, now time.Time, limit int) ([]domain.WorkerReservation, error) {
	if s.reservationsErr != nil {
		return nil, s.reservationsErr
	}
	return s.reservations, nil
}

func (s *jobsRepoStub) ExpireReservationAtomic(ctx context.Context, reservationID uuid.UUID, now time.Time) (bool, error) {
	s.expireCalls++
	if s.expireResults == nil {
		return true, nil
	}
	return s.expireResults[reservationID], nil
}

func (s *jobsRepoStub) FindExpiredPaymentSessions(ctx context.Context, now time.Time, limit int) ([]domain.PaymentSession, error) {
	return s.sessions, nil
}

func (s *jobsRepoStub) CancelPaymentSessionAtomic(ctx context.Context, sessionID uuid.UUID, reason string) (*domain.PaymentSession, error) {
	s.cancelCalls++
	if err := s.cancelErrs[sessionID]; err != nil {
		return nil, err
	}
	session := s.sessions[0]
	session.ID = sessionID
	session.Status = domain.PaymentSessionCancelled
	session.CancelReason = &reason
	return &session, nil
}

func (s *jobsRepoStub) MarkOverdueInvoices(ctx context.Context, now time.Time) (int64, error) {
	s.overdueCalls++
	if s.overdueErr != nil {
		return 0, s.overdueErr
	}
	return s.overdueCount, nil
}

func newTestJobs(repo store.Repository, publisher *capturingPublisher) *Jobs {
	svc := newTestService(repo, publisher, time.Now())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewJobs(svc, logger)
}

func TestSweepExpiredReservations_ExpiresAndPublishes(t *testing.T) {
	repo := &jobsRepoStub{reservations: []domain.WorkerReservation{
		{ID: uuid.New(), State: domain.ReservationAwaitingContract},
		{ID: uuid.New(), State: domain.ReservationAwaitingPayment},
	}}
	publisher := &capturingPublisher{}
	jobs := newTestJobs(repo, publisher)

	jobs.SweepExpiredReservations()

	if repo.expireCalls != 2 {
		t.Fatalf("expected two expire calls, got %d", repo.expireCalls)
	}
	expired := 0
	for _, key := range publisher.routingKeys() {
		if key == "reservation.expired" {
			expired++
		}
	}
	if expired != 2 {
		t.Fatalf("expected two reservation.expired events, got %d", expired)
	}
}

func TestSweepExpiredReservations_SkipsRowsMovedOnByAnotherRequest(t *testing.T) {
	won := uuid.New()
	lost := uuid.New()
	repo := &jobsRepoStub{
		reservations: []domain.WorkerReservation{
			{ID: won, State: domain.ReservationAwaitingContract},
			{ID: lost, State: domain.ReservationAwaitingContract},
		},
		expireResults: map[uuid.UUID]bool{won: true, lost: false},
	}
	publisher := &capturingPublisher{}
	jobs := newTestJobs(repo, publisher)

	jobs.SweepExpiredReservations()

	expired := 0
	for _, key := range publisher.routingKeys() {
		if key == "reservation.expired" {
			expired++
		}
	}
	if expired != 1 {
		t.Fatalf("expected one reservation.expired event, got %d", expired)
	}
}

func TestSweepExpiredReservations_StopsOnScanError(t *testing.T) {
	repo := &jobsRepoStub{reservationsErr: errors.New("db unavailable")}
	jobs := newTestJobs(repo, &capturingPublisher{})

	jobs.SweepExpiredReservations()

	if repo.expireCalls != 0 {
		t.Fatal("expected no expire calls when the scan fails")
	}
}

func TestSweepExpiredPaymentSessions_CancelsAndPublishes(t *testing.T) {
	repo := &jobsRepoStub{sessions: []domain.PaymentSession{
		{ID: uuid.New(), ContractID: uuid.New(), Status: domain.PaymentSessionPending},
	}}
	publisher := &capturingPublisher{}
	jobs := newTestJobs(repo, publisher)

	jobs.SweepExpiredPaymentSessions()

	if repo.cancelCalls != 1 {
		t.Fatalf("expected one cancel call, got %d", repo.cancelCalls)
	}
	if !publisher.published("payment.session.expired") {
		t.Fatalf("expected a payment.session.expired event, got %v", publisher.routingKeys())
	}
}

func TestSweepExpiredPaymentSessions_SkipsSessionsMovedOnByAnotherRequest(t *testing.T) {
	settled := uuid.New()
	abandoned := uuid.New()
	repo := &jobsRepoStub{
		sessions: []domain.PaymentSession{
			{ID: settled, ContractID: uuid.New(), Status: domain.PaymentSessionPending},
			{ID: abandoned, ContractID: uuid.New(), Status: domain.PaymentSessionPending},
		},
		cancelErrs: map[uuid.UUID]error{settled: domain.ErrNotProcessable},
	}
	publisher := &capturingPublisher{}
	jobs := newTestJobs(repo, publisher)

	jobs.SweepExpiredPaymentSessions()

	if repo.cancelCalls != 2 {
		t.Fatalf("expected both sessions to be attempted, got %d calls", repo.cancelCalls)
	}
	expired := 0
	for _, key := range publisher.routingKeys() {
		if key == "payment.session.expired" {
			expired++
		}
	}
	if expired != 1 {
		t.Fatalf("expected one payment.session.expired event, got %d", expired)
	}
}

func TestSweepOverdueInvoices_SurvivesStoreError(t *testing.T) {
	repo := &jobsRepoStub{overdueErr: errors.New("db unavailable")}
	jobs := newTestJobs(repo, &capturingPublisher{})

	jobs.SweepOverdueInvoices()

	if repo.overdueCalls != 1 {
		t.Fatalf("expected one overdue sweep call, got %d", repo.overdueCalls)
	}
}
