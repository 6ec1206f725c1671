/**
 * @description
 * Worker intake and lifecycle operations: registering workers from agency intake,
 * listing the pool, and advancing the post-assignment onboarding pipeline.
 */

package app

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

// RegisterWorker records a new worker in the Ready status.
func (s *Service) RegisterWorker(ctx context.Context, actorID uuid.UUID, payload domain.WorkerIntakePayload) (*domain.Worker, error) {
	if strings.TrimSpace(payload.FullName) == "" {
		return nil, domain.NewValidation("full_name", "must not be empty")
	}
	if strings.TrimSpace(payload.Nationality) == "" {
		return nil, domain.NewValidation("nationality", "must not be empty")
	}
	if strings.TrimSpace(payload.Profession) == "" {
		return nil, domain.NewValidation("profession", "must not be empty")
	}
	if payload.AgencyID == uuid.Nil {
		return nil, domain.NewValidation("agency_id", "must be set")
	}
	if payload.ExperienceYears < 0 {
		return nil, domain.NewValidation("experience_years", "must not be negative")
	}

	worker := &domain.Worker{
		ID:              uuid.New(),
		FullName:        strings.TrimSpace(payload.FullName),
		Nationality:     strings.TrimSpace(payload.Nationality),
		Profession:      strings.TrimSpace(payload.Profession),
		AgencyID:        payload.AgencyID,
		ExperienceYears: payload.ExperienceYears,
		Status:          domain.WorkerReady,
	}
	if err := s.repo.CreateWorker(ctx, worker); err != nil {
		return nil, err
	}

	s.publishAudit(ctx, domain.EntityWorker, worker.ID, "registered", actorID, nil,
		map[string]interface{}{"status": worker.Status, "agency_id": worker.AgencyID})
	return worker, nil
}

// GetWorker returns a single worker by id.
func (s *Service) GetWorker(ctx context.Context, workerID uuid.UUID) (*domain.Worker, error) {
	return s.repo.FindWorkerByID(ctx, workerID)
}

// ListWorkers returns workers matching the given filters.
func (s *Service) ListWorkers(ctx context.Context, opts domain.WorkerListOptions) ([]domain.Worker, error) {
	return s.repo.ListWorkers(ctx, opts)
}

// ReleaseWorker hands a claimed worker back to the pool. Idempotent: releasing an
// already-ready worker reports released=false without error.
func (s *Service) ReleaseWorker(ctx context.Context, actorID, workerID uuid.UUID) (*domain.Worker, bool, error) {
	released, err := s.repo.ReleaseWorkerAtomic(ctx, workerID)
	if err != nil {
		return nil, false, err
	}
	worker, err := s.repo.FindWorkerByID(ctx, workerID)
	if err != nil {
		return nil, released, err
	}

	if released {
		s.publishAudit(ctx, domain.EntityWorker, worker.ID, "released", actorID,
			nil, map[string]interface{}{"status": worker.Status})
	}
	return worker, released, nil
}

// AdvanceWorkerOnboarding moves an assigned worker to the next onboarding stage.
func (s *Service) AdvanceWorkerOnboarding(ctx context.Context, actorID, workerID uuid.UUID, next domain.WorkerStatus) (*domain.Worker, error) {
	worker, err := s.repo.AdvanceWorkerOnboardingAtomic(ctx, workerID, next)
	if err != nil {
		return nil, err
	}

	s.publishAudit(ctx, domain.EntityWorker, worker.ID, "onboarding_advanced", actorID,
		nil, map[string]interface{}{"status": worker.Status})
	return worker, nil
}
