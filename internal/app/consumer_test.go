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

type intakeRepoStub struct {
	store.Repository

	createErr     error
	createdWorker *domain.Worker
}

func (s *intakeRepoStub) CreateWorker(ctx context.Context, worker *domain.Worker) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.createdWorker = worker
	return nil
}

func newIntakeConsumer(repo store.Repository) *WorkerIntakeConsumer {
	svc := newTestService(repo, &capturingPublisher{}, time.Now())
	return NewWorkerIntakeConsumer(svc)
}

func TestWorkerIntakeConsumer_AcksMalformedJSON(t *testing.T) {
	consumer := newIntakeConsumer(&intakeRepoStub{})

	if !consumer.HandleMessage([]byte("{not json")) {
		t.Fatal("malformed payloads must be acknowledged and dropped")
	}
}

func TestWorkerIntakeConsumer_AcksInvalidAgencyID(t *testing.T) {
	repo := &intakeRepoStub{}
	consumer := newIntakeConsumer(repo)

	body := []byte(`{"full_name":"Maria Santos","nationality":"PH","profession":"nanny","agency_id":"not-a-uuid","experience_years":3}`)
	if !consumer.HandleMessage(body) {
		t.Fatal("an invalid agency id must be acknowledged and dropped")
	}
	if repo.createdWorker != nil {
		t.Fatal("expected no worker for an invalid agency id")
	}
}

func TestWorkerIntakeConsumer_AcksValidationFailure(t *testing.T) {
	repo := &intakeRepoStub{}
	consumer := newIntakeConsumer(repo)

	body := []byte(`{"full_name":"","nationality":"PH","profession":"nanny","agency_id":"` + uuid.NewString() + `","experience_years":3}`)
	if !consumer.HandleMessage(body) {
		t.Fatal("a validation failure must be acknowledged, not re-queued")
	}
	if repo.createdWorker != nil {
		t.Fatal("expected no worker for a rejected payload")
	}
}

func TestWorkerIntakeConsumer_RequeuesOnInfrastructureFailure(t *testing.T) {
	repo := &intakeRepoStub{createErr: errors.New("db unavailable")}
	consumer := newIntakeConsumer(repo)

	body := []byte(`{"full_name":"Maria Santos","nationality":"PH","profession":"nanny","agency_id":"` + uuid.NewString() + `","experience_years":3}`)
	if consumer.HandleMessage(body) {
		t.Fatal("an infrastructure failure must be re-queued")
	}
}

func TestWorkerIntakeConsumer_RegistersWorkerReady(t *testing.T) {
	repo := &intakeRepoStub{}
	consumer := newIntakeConsumer(repo)

	agencyID := uuid.New()
	body := []byte(`{"full_name":"Maria Santos","nationality":"PH","profession":"nanny","agency_id":"` + agencyID.String() + `","experience_years":3}`)
	if !consumer.HandleMessage(body) {
		t.Fatal("a valid intake message must be acknowledged")
	}
	if repo.createdWorker == nil {
		t.Fatal("expected a worker to be created")
	}
	if repo.createdWorker.Status != domain.WorkerReady {
		t.Fatalf("expected the worker to enter the pool ready, got %s", repo.createdWorker.Status)
	}
	if repo.createdWorker.AgencyID != agencyID {
		t.Fatal("expected the worker to carry the intake agency id")
	}
}
