/**
 * @description
 * This file implements the contract and invoice portion of the `Repository` interface.
 * Contract creation consumes a confirmed reservation and contract status transitions
 * cascade into the worker row and any pending payment session, so every write here
 * runs in one transaction with the worker row locked first.
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

const contractColumns = `id, reservation_id, customer_id, worker_id, package_id, status, start_date, end_date, original_amount, discount_amount, total_amount, cancel_reason, created_at, updated_at`

func scanContract(row pgx.Row) (*domain.Contract, error) {
	var c domain.Contract
	err := row.Scan(&c.ID, &c.ReservationID, &c.CustomerID, &c.WorkerID, &c.PackageID,
		&c.Status, &c.StartDate, &c.EndDate, &c.OriginalAmount, &c.DiscountAmount,
		&c.TotalAmount, &c.CancelReason, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

const invoiceColumns = `id, contract_id, amount, due_date, status, paid_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(&inv.ID, &inv.ContractID, &inv.Amount, &inv.DueDate, &inv.Status,
		&inv.PaidAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// CreateContractFromReservationAtomic converts a confirmed reservation into a
// contract with its invoice, completing the reservation in the same transaction. A
// second call for the same reservation gets ErrAlreadyExists.
func (r *PostgresRepository) CreateContractFromReservationAtomic(ctx context.Context, contract *domain.Contract, invoice *domain.Invoice, now time.Time) error {
	return withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		res, err := lockReservationWithWorker(ctx, tx, contract.ReservationID)
		if err != nil {
			return err
		}

		if now.After(res.ExpiresAt) && !res.State.Terminal() {
			if err := expireReservationLocked(ctx, tx, res); err != nil {
				return err
			}
			if err := tx.Commit(ctx); err != nil {
				return err
			}
			return domain.ErrExpired
		}
		// One contract per reservation, checked under the worker lock. The duplicate
		// guard runs before the state check: a repeated create reports the existing
		// contract, not the reservation it already completed.
		var exists bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM contracts WHERE reservation_id = $1)`,
			contract.ReservationID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check for existing contract: %w", err)
		}
		if exists {
			return domain.ErrAlreadyExists
		}
		if res.State != domain.ReservationAwaitingPayment {
			return domain.ErrNotProcessable
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO contracts (id, reservation_id, customer_id, worker_id, package_id, status,
				start_date, end_date, original_amount, discount_amount, total_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING created_at, updated_at
		`, contract.ID, contract.ReservationID, contract.CustomerID, contract.WorkerID,
			contract.PackageID, contract.Status, contract.StartDate, contract.EndDate,
			contract.OriginalAmount, contract.DiscountAmount, contract.TotalAmount).
			Scan(&contract.CreatedAt, &contract.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert contract: %w", err)
		}

		if invoice != nil {
			err = tx.QueryRow(ctx, `
				INSERT INTO invoices (id, contract_id, amount, due_date, status)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING created_at, updated_at
			`, invoice.ID, invoice.ContractID, invoice.Amount, invoice.DueDate, invoice.Status).
				Scan(&invoice.CreatedAt, &invoice.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert invoice: %w", err)
			}
		}

		// The reservation completes here, but the worker stays held until the
		// explicit transition to Active assigns them.
		if _, err := tx.Exec(ctx,
			`UPDATE worker_reservations SET state = $1, updated_at = NOW() WHERE id = $2`,
			domain.ReservationCompleted, res.ID); err != nil {
			return fmt.Errorf("failed to complete reservation: %w", err)
		}

		return tx.Commit(ctx)
	})
}

// FindContractByID retrieves a contract by its ID.
func (r *PostgresRepository) FindContractByID(ctx context.Context, contractID uuid.UUID) (*domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE id = $1`
	return scanContract(r.db.QueryRow(ctx, query, contractID))
}

// ListContractsByCustomer retrieves a customer's contracts, newest first.
func (r *PostgresRepository) ListContractsByCustomer(ctx context.Context, customerID uuid.UUID, opts domain.ContractListOptions) ([]domain.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts WHERE customer_id = $1`
	args := []interface{}{customerID}
	if opts.Status != "" {
		args = append(args, opts.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
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

	var contracts []domain.Contract
	for rows.Next() {
		var c domain.Contract
		if err := rows.Scan(&c.ID, &c.ReservationID, &c.CustomerID, &c.WorkerID, &c.PackageID,
			&c.Status, &c.StartDate, &c.EndDate, &c.OriginalAmount, &c.DiscountAmount,
			&c.TotalAmount, &c.CancelReason, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// FindInvoiceByContractID retrieves the invoice attached to a contract.
func (r *PostgresRepository) FindInvoiceByContractID(ctx context.Context, contractID uuid.UUID) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE contract_id = $1`
	return scanInvoice(r.db.QueryRow(ctx, query, contractID))
}

// TransitionContractStatusAtomic applies a validated status change plus its cascading
// side effects on the worker row and any pending payment session.
func (r *PostgresRepository) TransitionContractStatusAtomic(ctx context.Context, contractID uuid.UUID, target domain.ContractStatus, reason *string, now time.Time) (*domain.Contract, error) {
	var contract *domain.Contract
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		var workerID uuid.UUID
		err = tx.QueryRow(ctx, `SELECT worker_id FROM contracts WHERE id = $1`, contractID).Scan(&workerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to resolve contract worker: %w", err)
		}
		if _, err := tx.Exec(ctx, `SELECT 1 FROM workers WHERE id = $1 FOR UPDATE`, workerID); err != nil {
			return fmt.Errorf("failed to lock worker: %w", err)
		}

		c, err := scanContract(tx.QueryRow(ctx,
			`SELECT `+contractColumns+` FROM contracts WHERE id = $1 FOR UPDATE`, contractID))
		if err != nil {
			return err
		}

		if !c.Status.CanTransitionTo(target) {
			return domain.NewInvalidTransition(string(domain.EntityContract), string(c.Status), string(target))
		}

		err = tx.QueryRow(ctx, `
			UPDATE contracts SET status = $1, cancel_reason = COALESCE($2, cancel_reason), updated_at = NOW()
			WHERE id = $3
			RETURNING updated_at
		`, target, reason, c.ID).Scan(&c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update contract status: %w", err)
		}
		c.Status = target
		if reason != nil {
			c.CancelReason = reason
		}

		switch {
		case target == domain.ContractActive:
			if _, err := tx.Exec(ctx, `
				UPDATE workers SET status = $1, current_contract_id = $2, updated_at = NOW()
				WHERE id = $3 AND status IN ($4, $5)
			`, domain.WorkerAssignedToContract, c.ID, c.WorkerID,
				domain.WorkerReservedAwaitingPayment, domain.WorkerOnLeave); err != nil {
				return fmt.Errorf("failed to assign worker: %w", err)
			}

		case target == domain.ContractSuspended:
			if _, err := tx.Exec(ctx, `
				UPDATE workers SET status = $1, updated_at = NOW()
				WHERE id = $2 AND status = $3
			`, domain.WorkerOnLeave, c.WorkerID, domain.WorkerAssignedToContract); err != nil {
				return fmt.Errorf("failed to suspend worker: %w", err)
			}

		case target.ReleasesWorker():
			// Blocked or deactivated workers keep their status; everyone else goes
			// back to the pool. The contract pointer is cleared either way.
			if _, err := tx.Exec(ctx, `
				UPDATE workers SET status = $1, updated_at = NOW()
				WHERE id = $2 AND status IN ($3, $4, $5)
			`, domain.WorkerReady, c.WorkerID,
				domain.WorkerAssignedToContract, domain.WorkerOnLeave,
				domain.WorkerReservedAwaitingPayment); err != nil {
				return fmt.Errorf("failed to release worker: %w", err)
			}
			if _, err := tx.Exec(ctx, `
				UPDATE workers SET current_contract_id = NULL, updated_at = NOW()
				WHERE id = $1 AND current_contract_id = $2
			`, c.WorkerID, c.ID); err != nil {
				return fmt.Errorf("failed to clear worker contract: %w", err)
			}
			if _, err := tx.Exec(ctx, `
				UPDATE payment_sessions SET status = $1, cancel_reason = $2, updated_at = NOW()
				WHERE contract_id = $3 AND status = $4
			`, domain.PaymentSessionCancelled, domain.SessionCancelReasonContractClosed,
				c.ID, domain.PaymentSessionPending); err != nil {
				return fmt.Errorf("failed to cancel pending payment sessions: %w", err)
			}
		}

		contract = c
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return contract, nil
}
