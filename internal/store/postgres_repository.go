/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface for
 * the worker ledger and reservation lifecycle. Every multi-entity transition runs in
 * one pgx transaction with `SELECT ... FOR UPDATE` on the owning rows, so concurrent
 * requests serialize on the worker and the loser of a claim race observes a clean
 * typed failure rather than a silently overwritten reservation.
 *
 * @dependencies
 * - context, errors, fmt, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 *
 * @notes
 * - Lock ordering is worker row first, then reservation row, everywhere both are
 *   touched. This keeps the claim path and the process/expire paths deadlock-free
 *   with respect to each other.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db            *pgxpool.Pool
	retryAttempts int
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db, retryAttempts: defaultRetryAttempts}
}

// SetRetryAttempts overrides the deadlock retry budget for Atomic operations.
func (r *PostgresRepository) SetRetryAttempts(attempts int) {
	if attempts > 0 {
		r.retryAttempts = attempts
	}
}

const workerColumns = `id, full_name, nationality, profession, agency_id, experience_years, status, current_contract_id, created_at, updated_at`

func scanWorker(row pgx.Row) (*domain.Worker, error) {
	var w domain.Worker
	err := row.Scan(&w.ID, &w.FullName, &w.Nationality, &w.Profession, &w.AgencyID,
		&w.ExperienceYears, &w.Status, &w.CurrentContractID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

const reservationColumns = `id, worker_id, customer_id, state, start_date, end_date, expires_at, cancel_reason, created_at, updated_at`

func scanReservation(row pgx.Row) (*domain.WorkerReservation, error) {
	var res domain.WorkerReservation
	err := row.Scan(&res.ID, &res.WorkerID, &res.CustomerID, &res.State, &res.StartDate,
		&res.EndDate, &res.ExpiresAt, &res.CancelReason, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// CreateWorker inserts a new worker in the Ready intake status.
func (r *PostgresRepository) CreateWorker(ctx context.Context, worker *domain.Worker) error {
	query := `
		INSERT INTO workers (id, full_name, nationality, profession, agency_id, experience_years, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, worker.ID, worker.FullName, worker.Nationality,
		worker.Profession, worker.AgencyID, worker.ExperienceYears, worker.Status).
		Scan(&worker.CreatedAt, &worker.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert worker: %w", err)
	}
	return nil
}

// FindWorkerByID retrieves a worker by its ID.
func (r *PostgresRepository) FindWorkerByID(ctx context.Context, workerID uuid.UUID) (*domain.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE id = $1`
	return scanWorker(r.db.QueryRow(ctx, query, workerID))
}

// ListWorkers retrieves workers with optional status/nationality/profession filters.
func (r *PostgresRepository) ListWorkers(ctx context.Context, opts domain.WorkerListOptions) ([]domain.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers`
	var conditions []string
	var args []interface{}

	addFilter := func(column, value string) {
		if value != "" {
			args = append(args, value)
			conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	addFilter("status", opts.Status)
	addFilter("nationality", opts.Nationality)
	addFilter("profession", opts.Profession)

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workers []domain.Worker
	for rows.Next() {
		var w domain.Worker
		if err := rows.Scan(&w.ID, &w.FullName, &w.Nationality, &w.Profession, &w.AgencyID,
			&w.ExperienceYears, &w.Status, &w.CurrentContractID, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// ClaimWorkerAtomic performs the atomic compare-and-set claim on a worker.
func (r *PostgresRepository) ClaimWorkerAtomic(ctx context.Context, workerID, customerID uuid.UUID, startDate, endDate, expiresAt time.Time) (*domain.WorkerReservation, error) {
	var reservation *domain.WorkerReservation
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		// 1. Lock the worker row and verify it is exactly Ready.
		var status domain.WorkerStatus
		err = tx.QueryRow(ctx, `SELECT status FROM workers WHERE id = $1 FOR UPDATE`, workerID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to get and lock worker: %w", err)
		}
		if status != domain.WorkerReady {
			return domain.ErrNotAvailable
		}

		// 2. Reserve the worker.
		_, err = tx.Exec(ctx,
			`UPDATE workers SET status = $1, updated_at = NOW() WHERE id = $2`,
			domain.WorkerReservedAwaitingContract, workerID)
		if err != nil {
			return fmt.Errorf("failed to update worker status: %w", err)
		}

		// 3. Create the reservation row in the same transaction.
		res := &domain.WorkerReservation{
			ID:         uuid.New(),
			WorkerID:   workerID,
			CustomerID: customerID,
			State:      domain.ReservationAwaitingContract,
			StartDate:  startDate,
			EndDate:    endDate,
			ExpiresAt:  expiresAt,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO worker_reservations (id, worker_id, customer_id, state, start_date, end_date, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`, res.ID, res.WorkerID, res.CustomerID, res.State, res.StartDate, res.EndDate, res.ExpiresAt).
			Scan(&res.CreatedAt, &res.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert reservation: %w", err)
		}

		reservation = res
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// ReleaseWorkerAtomic restores a claimed worker to Ready. Idempotent.
func (r *PostgresRepository) ReleaseWorkerAtomic(ctx context.Context, workerID uuid.UUID) (bool, error) {
	released := false
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		var status domain.WorkerStatus
		err = tx.QueryRow(ctx, `SELECT status FROM workers WHERE id = $1 FOR UPDATE`, workerID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to get and lock worker: %w", err)
		}

		// Already Ready or in a terminal state: nothing to do.
		if !status.Releasable() {
			released = false
			return tx.Commit(ctx)
		}

		_, err = tx.Exec(ctx,
			`UPDATE workers SET status = $1, current_contract_id = NULL, updated_at = NOW() WHERE id = $2`,
			domain.WorkerReady, workerID)
		if err != nil {
			return fmt.Errorf("failed to release worker: %w", err)
		}
		released = true
		return tx.Commit(ctx)
	})
	return released, err
}

// AdvanceWorkerOnboardingAtomic moves a worker one stage forward in the onboarding
// pipeline. The requested stage must be exactly the next one.
func (r *PostgresRepository) AdvanceWorkerOnboardingAtomic(ctx context.Context, workerID uuid.UUID, next domain.WorkerStatus) (*domain.Worker, error) {
	var worker *domain.Worker
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		w, err := scanWorker(tx.QueryRow(ctx,
			`SELECT `+workerColumns+` FROM workers WHERE id = $1 FOR UPDATE`, workerID))
		if err != nil {
			return err
		}

		expected, ok := domain.NextOnboardingStage(w.Status)
		if !ok || expected != next || !w.Status.CanTransitionTo(next) {
			return domain.NewInvalidTransition(string(domain.EntityWorker), string(w.Status), string(next))
		}

		err = tx.QueryRow(ctx,
			`UPDATE workers SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`,
			next, workerID).Scan(&w.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to advance worker onboarding: %w", err)
		}
		w.Status = next
		worker = w
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return worker, nil
}

// FindReservationByID retrieves a reservation by its ID.
func (r *PostgresRepository) FindReservationByID(ctx context.Context, reservationID uuid.UUID) (*domain.WorkerReservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM worker_reservations WHERE id = $1`
	return scanReservation(r.db.QueryRow(ctx, query, reservationID))
}

// ListReservationsByCustomer retrieves a customer's reservations, newest first.
func (r *PostgresRepository) ListReservationsByCustomer(ctx context.Context, customerID uuid.UUID, opts domain.ReservationListOptions) ([]domain.WorkerReservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM worker_reservations WHERE customer_id = $1`
	args := []interface{}{customerID}
	if opts.State != "" {
		args = append(args, opts.State)
		query += fmt.Sprintf(" AND state = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []domain.WorkerReservation
	for rows.Next() {
		var res domain.WorkerReservation
		if err := rows.Scan(&res.ID, &res.WorkerID, &res.CustomerID, &res.State, &res.StartDate,
			&res.EndDate, &res.ExpiresAt, &res.CancelReason, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}

// lockReservationWithWorker loads a reservation, then locks the worker row and the
// reservation row in that order, re-reading the reservation under the lock.
func lockReservationWithWorker(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (*domain.WorkerReservation, error) {
	var workerID uuid.UUID
	err := tx.QueryRow(ctx, `SELECT worker_id FROM worker_reservations WHERE id = $1`, reservationID).Scan(&workerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve reservation worker: %w", err)
	}

	if _, err := tx.Exec(ctx, `SELECT 1 FROM workers WHERE id = $1 FOR UPDATE`, workerID); err != nil {
		return nil, fmt.Errorf("failed to lock worker: %w", err)
	}

	return scanReservation(tx.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM worker_reservations WHERE id = $1 FOR UPDATE`, reservationID))
}

// expireReservationLocked marks an already-locked reservation Expired and releases
// its worker. Both rows must be locked by the caller's transaction.
func expireReservationLocked(ctx context.Context, tx pgx.Tx, res *domain.WorkerReservation) error {
	if _, err := tx.Exec(ctx,
		`UPDATE worker_reservations SET state = $1, updated_at = NOW() WHERE id = $2`,
		domain.ReservationExpired, res.ID); err != nil {
		return fmt.Errorf("failed to expire reservation: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE workers SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status IN ($3, $4)
	`, domain.WorkerReady, res.WorkerID,
		domain.WorkerReservedAwaitingContract, domain.WorkerReservedAwaitingPayment); err != nil {
		return fmt.Errorf("failed to release worker on expiry: %w", err)
	}
	res.State = domain.ReservationExpired
	return nil
}

// ApproveReservationAtomic moves a live reservation toward contract creation.
func (r *PostgresRepository) ApproveReservationAtomic(ctx context.Context, reservationID uuid.UUID, now time.Time) (*domain.WorkerReservation, error) {
	var reservation *domain.WorkerReservation
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		res, err := lockReservationWithWorker(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if res.State.Terminal() {
			return domain.ErrNotProcessable
		}

		// Re-check the deadline under the lock: a reservation that expired while the
		// request was in flight is expired here, not approved.
		if now.After(res.ExpiresAt) {
			if err := expireReservationLocked(ctx, tx, res); err != nil {
				return err
			}
			reservation = res
			if err := tx.Commit(ctx); err != nil {
				return err
			}
			return domain.ErrExpired
		}

		if res.State != domain.ReservationAwaitingContract {
			return domain.ErrNotProcessable
		}

		if _, err := tx.Exec(ctx,
			`UPDATE worker_reservations SET state = $1, updated_at = NOW() WHERE id = $2`,
			domain.ReservationAwaitingPayment, res.ID); err != nil {
			return fmt.Errorf("failed to approve reservation: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE workers SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
			domain.WorkerReservedAwaitingPayment, res.WorkerID, domain.WorkerReservedAwaitingContract); err != nil {
			return fmt.Errorf("failed to advance worker status: %w", err)
		}

		res.State = domain.ReservationAwaitingPayment
		reservation = res
		return tx.Commit(ctx)
	})
	if err != nil {
		return reservation, err
	}
	return reservation, nil
}

// CancelReservationAtomic cancels a live reservation and releases its worker.
func (r *PostgresRepository) CancelReservationAtomic(ctx context.Context, reservationID uuid.UUID, reason string, now time.Time) (*domain.WorkerReservation, error) {
	var reservation *domain.WorkerReservation
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		res, err := lockReservationWithWorker(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if res.State.Terminal() {
			return domain.ErrNotProcessable
		}

		if _, err := tx.Exec(ctx,
			`UPDATE worker_reservations SET state = $1, cancel_reason = $2, updated_at = NOW() WHERE id = $3`,
			domain.ReservationCancelled, reason, res.ID); err != nil {
			return fmt.Errorf("failed to cancel reservation: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE workers SET status = $1, updated_at = NOW()
			WHERE id = $2 AND status IN ($3, $4)
		`, domain.WorkerReady, res.WorkerID,
			domain.WorkerReservedAwaitingContract, domain.WorkerReservedAwaitingPayment); err != nil {
			return fmt.Errorf("failed to release worker on cancellation: %w", err)
		}

		res.State = domain.ReservationCancelled
		res.CancelReason = &reason
		reservation = res
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// ExtendReservationAtomic pushes a live reservation's deadline forward. Availability
// is not re-validated: the worker is already exclusively held by this reservation.
func (r *PostgresRepository) ExtendReservationAtomic(ctx context.Context, reservationID uuid.UUID, extension time.Duration, now time.Time) (*domain.WorkerReservation, error) {
	var reservation *domain.WorkerReservation
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		res, err := lockReservationWithWorker(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if res.State.Terminal() {
			return domain.ErrNotProcessable
		}
		if now.After(res.ExpiresAt) {
			if err := expireReservationLocked(ctx, tx, res); err != nil {
				return err
			}
			reservation = res
			if err := tx.Commit(ctx); err != nil {
				return err
			}
			return domain.ErrExpired
		}

		newExpiry := res.ExpiresAt.Add(extension)
		if _, err := tx.Exec(ctx,
			`UPDATE worker_reservations SET expires_at = $1, updated_at = NOW() WHERE id = $2`,
			newExpiry, res.ID); err != nil {
			return fmt.Errorf("failed to extend reservation: %w", err)
		}

		res.ExpiresAt = newExpiry
		reservation = res
		return tx.Commit(ctx)
	})
	if err != nil {
		return reservation, err
	}
	return reservation, nil
}

// ExpireReservationAtomic transitions an overdue reservation to Expired and releases
// the worker. Returns false when the reservation moved on before the sweep got to it.
func (r *PostgresRepository) ExpireReservationAtomic(ctx context.Context, reservationID uuid.UUID, now time.Time) (bool, error) {
	expired := false
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		res, err := lockReservationWithWorker(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		if res.State.Terminal() || res.ExpiresAt.After(now) {
			expired = false
			return tx.Commit(ctx)
		}

		if err := expireReservationLocked(ctx, tx, res); err != nil {
			return err
		}
		expired = true
		return tx.Commit(ctx)
	})
	return expired, err
}

// FindExpiredReservations returns non-terminal reservations past their deadline.
// expires_at is indexed for this range scan.
func (r *PostgresRepository) FindExpiredReservations(ctx context.Context, now time.Time, limit int) ([]domain.WorkerReservation, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + reservationColumns + `
		FROM worker_reservations
		WHERE state IN ($1, $2) AND expires_at <= $3
		ORDER BY expires_at
		LIMIT $4
	`
	rows, err := r.db.Query(ctx, query,
		domain.ReservationAwaitingContract, domain.ReservationAwaitingPayment, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []domain.WorkerReservation
	for rows.Next() {
		var res domain.WorkerReservation
		if err := rows.Scan(&res.ID, &res.WorkerID, &res.CustomerID, &res.State, &res.StartDate,
			&res.EndDate, &res.ExpiresAt, &res.CancelReason, &res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, rows.Err()
}
