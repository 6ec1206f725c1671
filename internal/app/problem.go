/**
 * @description
 * Worker problem operations: filing an incident report against an assigned worker
 * and resolving it. An approved resolution may carry a worker action (block or
 * deactivate) that the store applies atomically with the problem status change.
 */

package app

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

// ReportWorkerProblem files a new problem against a worker.
func (s *Service) ReportWorkerProblem(ctx context.Context, reporterID, workerID uuid.UUID, payload domain.ReportProblemPayload) (*domain.WorkerProblem, error) {
	if strings.TrimSpace(payload.Category) == "" {
		return nil, domain.NewValidation("category", "must not be empty")
	}
	if strings.TrimSpace(payload.Description) == "" {
		return nil, domain.NewValidation("description", "must not be empty")
	}
	if _, err := s.repo.FindWorkerByID(ctx, workerID); err != nil {
		return nil, err
	}

	problem := &domain.WorkerProblem{
		ID:           uuid.New(),
		WorkerID:     workerID,
		ReportedBy:   reporterID,
		Category:     strings.TrimSpace(payload.Category),
		Description:  strings.TrimSpace(payload.Description),
		Status:       domain.ProblemPending,
		WorkerAction: domain.ProblemActionNone,
	}
	if err := s.repo.CreateWorkerProblem(ctx, problem); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "worker.problem.reported", domain.ProblemEvent{
		ProblemID: problem.ID,
		WorkerID:  problem.WorkerID,
		Status:    problem.Status,
		Timestamp: s.now().UTC(),
	})
	s.publishAudit(ctx, domain.EntityProblem, problem.ID, "reported", reporterID,
		nil, map[string]interface{}{"worker_id": problem.WorkerID, "category": problem.Category})
	return problem, nil
}

// GetWorkerProblem returns a problem by id.
func (s *Service) GetWorkerProblem(ctx context.Context, problemID uuid.UUID) (*domain.WorkerProblem, error) {
	return s.repo.FindProblemByID(ctx, problemID)
}

// ResolveWorkerProblem approves or rejects a pending problem. Approving with a
// worker action blocks or deactivates the worker in the same transaction.
func (s *Service) ResolveWorkerProblem(ctx context.Context, resolverID, problemID uuid.UUID, payload domain.ResolveProblemPayload) (*domain.WorkerProblem, error) {
	action := payload.WorkerAction
	if action == "" {
		action = domain.ProblemActionNone
	}
	switch action {
	case domain.ProblemActionNone, domain.ProblemActionBlock, domain.ProblemActionDeactivate:
	default:
		return nil, domain.NewValidation("worker_action", "must be none, block or deactivate")
	}
	if !payload.Approve && action != domain.ProblemActionNone {
		return nil, domain.NewValidation("worker_action", "only an approved resolution may carry a worker action")
	}

	problem, err := s.repo.ResolveWorkerProblemAtomic(ctx, problemID, payload.Approve, action, resolverID, s.now())
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "worker.problem.resolved", domain.ProblemEvent{
		ProblemID: problem.ID,
		WorkerID:  problem.WorkerID,
		Status:    problem.Status,
		Timestamp: s.now().UTC(),
	})
	s.publishAudit(ctx, domain.EntityProblem, problem.ID, "resolved", resolverID,
		nil, map[string]interface{}{"status": problem.Status, "worker_action": problem.WorkerAction})
	return problem, nil
}

// CloseWorkerProblem closes an already-resolved problem.
func (s *Service) CloseWorkerProblem(ctx context.Context, actorID, problemID uuid.UUID) (*domain.WorkerProblem, error) {
	problem, err := s.repo.CloseWorkerProblem(ctx, problemID)
	if err != nil {
		return nil, err
	}

	s.publishAudit(ctx, domain.EntityProblem, problem.ID, "closed", actorID,
		nil, map[string]interface{}{"status": problem.Status})
	return problem, nil
}
