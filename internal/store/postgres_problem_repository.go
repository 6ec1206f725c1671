/**
 * @description
 * This file implements worker problem persistence. Resolving a problem with an
 * approved worker action (block or deactivate) mutates the worker row in the same
 * transaction as the problem row, under the usual worker-first lock order.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

const problemColumns = `id, worker_id, reported_by, category, description, status, worker_action, resolved_by, resolved_at, created_at, updated_at`

func scanProblem(row pgx.Row) (*domain.WorkerProblem, error) {
	var p domain.WorkerProblem
	err := row.Scan(&p.ID, &p.WorkerID, &p.ReportedBy, &p.Category, &p.Description,
		&p.Status, &p.WorkerAction, &p.ResolvedBy, &p.ResolvedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreateWorkerProblem files a new problem report in the Pending status.
func (r *PostgresRepository) CreateWorkerProblem(ctx context.Context, problem *domain.WorkerProblem) error {
	query := `
		INSERT INTO worker_problems (id, worker_id, reported_by, category, description, status, worker_action)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, problem.ID, problem.WorkerID, problem.ReportedBy,
		problem.Category, problem.Description, problem.Status, problem.WorkerAction).
		Scan(&problem.CreatedAt, &problem.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert worker problem: %w", err)
	}
	return nil
}

// FindProblemByID retrieves a worker problem by its ID.
func (r *PostgresRepository) FindProblemByID(ctx context.Context, problemID uuid.UUID) (*domain.WorkerProblem, error) {
	query := `SELECT ` + problemColumns + ` FROM worker_problems WHERE id = $1`
	return scanProblem(r.db.QueryRow(ctx, query, problemID))
}

// ResolveWorkerProblemAtomic approves or rejects a pending problem. An approved
// resolution carrying a worker action applies it to the worker row atomically.
func (r *PostgresRepository) ResolveWorkerProblemAtomic(ctx context.Context, problemID uuid.UUID, approve bool, action domain.ProblemWorkerAction, resolvedBy uuid.UUID, now time.Time) (*domain.WorkerProblem, error) {
	var problem *domain.WorkerProblem
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		var workerID uuid.UUID
		err = tx.QueryRow(ctx, `SELECT worker_id FROM worker_problems WHERE id = $1`, problemID).Scan(&workerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to resolve problem worker: %w", err)
		}
		if _, err := tx.Exec(ctx, `SELECT 1 FROM workers WHERE id = $1 FOR UPDATE`, workerID); err != nil {
			return fmt.Errorf("failed to lock worker: %w", err)
		}

		p, err := scanProblem(tx.QueryRow(ctx,
			`SELECT `+problemColumns+` FROM worker_problems WHERE id = $1 FOR UPDATE`, problemID))
		if err != nil {
			return err
		}

		target := domain.ProblemRejected
		if approve {
			target = domain.ProblemApproved
		}
		if !p.Status.CanTransitionTo(target) {
			return domain.NewInvalidTransition(string(domain.EntityProblem), string(p.Status), string(target))
		}

		err = tx.QueryRow(ctx, `
			UPDATE worker_problems
			SET status = $1, worker_action = $2, resolved_by = $3, resolved_at = $4, updated_at = NOW()
			WHERE id = $5
			RETURNING updated_at
		`, target, action, resolvedBy, now, p.ID).Scan(&p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to resolve problem: %w", err)
		}
		p.Status = target
		p.WorkerAction = action
		p.ResolvedBy = &resolvedBy
		p.ResolvedAt = &now

		if approve {
			if workerStatus, ok := action.WorkerStatusFor(); ok {
				if _, err := tx.Exec(ctx,
					`UPDATE workers SET status = $1, updated_at = NOW() WHERE id = $2`,
					workerStatus, p.WorkerID); err != nil {
					return fmt.Errorf("failed to apply worker action: %w", err)
				}
			}
		}

		problem = p
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return problem, nil
}

// CloseWorkerProblem closes an already-resolved problem.
func (r *PostgresRepository) CloseWorkerProblem(ctx context.Context, problemID uuid.UUID) (*domain.WorkerProblem, error) {
	var problem *domain.WorkerProblem
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		p, err := scanProblem(tx.QueryRow(ctx,
			`SELECT `+problemColumns+` FROM worker_problems WHERE id = $1 FOR UPDATE`, problemID))
		if err != nil {
			return err
		}
		if !p.Status.CanTransitionTo(domain.ProblemClosed) {
			return domain.NewInvalidTransition(string(domain.EntityProblem),
				string(p.Status), string(domain.ProblemClosed))
		}

		err = tx.QueryRow(ctx, `
			UPDATE worker_problems SET status = $1, updated_at = NOW()
			WHERE id = $2
			RETURNING updated_at
		`, domain.ProblemClosed, p.ID).Scan(&p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to close problem: %w", err)
		}
		p.Status = domain.ProblemClosed
		problem = p
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return problem, nil
}
