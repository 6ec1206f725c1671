/**
 * @description
 * This file implements payment session and payment persistence. Session creation is a
 * check-and-insert under the contract row lock so at most one pending session exists
 * per contract, and session completion writes the durable payment, the invoice, the
 * contract and the worker in one transaction. OTP attempt bookkeeping is atomic so a
 * burst of concurrent wrong submissions cannot exceed the attempt cap.
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

const sessionColumns = `id, contract_id, phone, session_token, method, status, otp_hash, otp_attempts, cancel_reason, expires_at, created_at, updated_at`

func scanSession(row pgx.Row) (*domain.PaymentSession, error) {
	var s domain.PaymentSession
	err := row.Scan(&s.ID, &s.ContractID, &s.Phone, &s.SessionToken, &s.Method, &s.Status,
		&s.OTPHash, &s.OTPAttempts, &s.CancelReason, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// CreatePaymentSessionAtomic inserts a new pending session for a contract awaiting
// payment. A second pending session for the same contract gets ErrAlreadyExists.
func (r *PostgresRepository) CreatePaymentSessionAtomic(ctx context.Context, session *domain.PaymentSession) error {
	return withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		var status domain.ContractStatus
		err = tx.QueryRow(ctx, `SELECT status FROM contracts WHERE id = $1 FOR UPDATE`, session.ContractID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to get and lock contract: %w", err)
		}
		if status != domain.ContractAwaitingPayment {
			return domain.ErrNotProcessable
		}

		var pending bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM payment_sessions WHERE contract_id = $1 AND status = $2)`,
			session.ContractID, domain.PaymentSessionPending).Scan(&pending)
		if err != nil {
			return fmt.Errorf("failed to check for pending session: %w", err)
		}
		if pending {
			return domain.ErrAlreadyExists
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO payment_sessions (id, contract_id, phone, session_token, method, status, otp_hash, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`, session.ID, session.ContractID, session.Phone, session.SessionToken,
			session.Method, session.Status, session.OTPHash, session.ExpiresAt).
			Scan(&session.CreatedAt, &session.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert payment session: %w", err)
		}
		return tx.Commit(ctx)
	})
}

// FindPaymentSessionByID retrieves a payment session by its ID.
func (r *PostgresRepository) FindPaymentSessionByID(ctx context.Context, sessionID uuid.UUID) (*domain.PaymentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

// RecordFailedOTPAttempt increments the attempt counter under the session row lock
// and cancels the session once the cap is reached. Returns the session as stored
// after the write, so the caller can tell a counted attempt from a dead session.
func (r *PostgresRepository) RecordFailedOTPAttempt(ctx context.Context, sessionID uuid.UUID, maxAttempts int) (*domain.PaymentSession, error) {
	var session *domain.PaymentSession
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		s, err := scanSession(tx.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM payment_sessions WHERE id = $1 FOR UPDATE`, sessionID))
		if err != nil {
			return err
		}
		if s.Status.Terminal() {
			// A parallel attempt already closed the session; nothing to count.
			session = s
			return tx.Commit(ctx)
		}

		s.OTPAttempts++
		if s.OTPAttempts >= maxAttempts {
			reason := domain.SessionCancelReasonTooManyAttempts
			err = tx.QueryRow(ctx, `
				UPDATE payment_sessions
				SET otp_attempts = $1, status = $2, cancel_reason = $3, updated_at = NOW()
				WHERE id = $4
				RETURNING updated_at
			`, s.OTPAttempts, domain.PaymentSessionCancelled, reason, s.ID).Scan(&s.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to cancel session at attempt cap: %w", err)
			}
			s.Status = domain.PaymentSessionCancelled
			s.CancelReason = &reason
		} else {
			err = tx.QueryRow(ctx, `
				UPDATE payment_sessions SET otp_attempts = $1, updated_at = NOW()
				WHERE id = $2
				RETURNING updated_at
			`, s.OTPAttempts, s.ID).Scan(&s.UpdatedAt)
			if err != nil {
				return fmt.Errorf("failed to record failed attempt: %w", err)
			}
		}

		session = s
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// CompletePaymentSessionAtomic settles a pending, unexpired session: the durable
// payment is inserted, the invoice marked paid, the contract activated and the
// worker assigned, all in one transaction. An expired session is cancelled in
// place and the call returns ErrExpired.
func (r *PostgresRepository) CompletePaymentSessionAtomic(ctx context.Context, sessionID uuid.UUID, payment *domain.Payment, now time.Time) (*domain.PaymentSession, error) {
	var session *domain.PaymentSession
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		var contractID, workerID uuid.UUID
		err = tx.QueryRow(ctx, `
			SELECT s.contract_id, c.worker_id
			FROM payment_sessions s JOIN contracts c ON c.id = s.contract_id
			WHERE s.id = $1
		`, sessionID).Scan(&contractID, &workerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("failed to resolve session contract: %w", err)
		}

		// Worker first, then contract, then session.
		if _, err := tx.Exec(ctx, `SELECT 1 FROM workers WHERE id = $1 FOR UPDATE`, workerID); err != nil {
			return fmt.Errorf("failed to lock worker: %w", err)
		}
		var contractStatus domain.ContractStatus
		err = tx.QueryRow(ctx, `SELECT status FROM contracts WHERE id = $1 FOR UPDATE`, contractID).Scan(&contractStatus)
		if err != nil {
			return fmt.Errorf("failed to lock contract: %w", err)
		}
		s, err := scanSession(tx.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM payment_sessions WHERE id = $1 FOR UPDATE`, sessionID))
		if err != nil {
			return err
		}

		if s.Status.Terminal() {
			return domain.ErrNotProcessable
		}
		if now.After(s.ExpiresAt) {
			reason := domain.SessionCancelReasonExpired
			if _, err := tx.Exec(ctx, `
				UPDATE payment_sessions SET status = $1, cancel_reason = $2, updated_at = NOW()
				WHERE id = $3
			`, domain.PaymentSessionCancelled, reason, s.ID); err != nil {
				return fmt.Errorf("failed to cancel expired session: %w", err)
			}
			s.Status = domain.PaymentSessionCancelled
			s.CancelReason = &reason
			session = s
			if err := tx.Commit(ctx); err != nil {
				return err
			}
			return domain.ErrExpired
		}
		if contractStatus != domain.ContractAwaitingPayment {
			return domain.ErrNotProcessable
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO payments (id, contract_id, session_id, invoice_id, amount, method, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`, payment.ID, payment.ContractID, payment.SessionID, payment.InvoiceID,
			payment.Amount, payment.Method, payment.Status).Scan(&payment.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE invoices SET status = $1, paid_at = $2, updated_at = NOW()
			WHERE id = $3 AND status IN ($4, $5)
		`, domain.InvoicePaid, now, payment.InvoiceID,
			domain.InvoiceUnpaid, domain.InvoiceOverdue); err != nil {
			return fmt.Errorf("failed to mark invoice paid: %w", err)
		}

		err = tx.QueryRow(ctx, `
			UPDATE payment_sessions SET status = $1, updated_at = NOW()
			WHERE id = $2
			RETURNING updated_at
		`, domain.PaymentSessionCompleted, s.ID).Scan(&s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to complete session: %w", err)
		}
		s.Status = domain.PaymentSessionCompleted

		if _, err := tx.Exec(ctx, `
			UPDATE contracts SET status = $1, updated_at = NOW() WHERE id = $2
		`, domain.ContractActive, contractID); err != nil {
			return fmt.Errorf("failed to activate contract: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE workers SET status = $1, current_contract_id = $2, updated_at = NOW()
			WHERE id = $3 AND status = $4
		`, domain.WorkerAssignedToContract, contractID, workerID,
			domain.WorkerReservedAwaitingPayment); err != nil {
			return fmt.Errorf("failed to assign worker: %w", err)
		}

		session = s
		return tx.Commit(ctx)
	})
	if err != nil {
		return session, err
	}
	return session, nil
}

// CancelPaymentSessionAtomic cancels a pending session with the given reason.
func (r *PostgresRepository) CancelPaymentSessionAtomic(ctx context.Context, sessionID uuid.UUID, reason string) (*domain.PaymentSession, error) {
	var session *domain.PaymentSession
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		s, err := scanSession(tx.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM payment_sessions WHERE id = $1 FOR UPDATE`, sessionID))
		if err != nil {
			return err
		}
		if s.Status.Terminal() {
			return domain.ErrNotProcessable
		}

		err = tx.QueryRow(ctx, `
			UPDATE payment_sessions SET status = $1, cancel_reason = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING updated_at
		`, domain.PaymentSessionCancelled, reason, s.ID).Scan(&s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to cancel session: %w", err)
		}
		s.Status = domain.PaymentSessionCancelled
		s.CancelReason = &reason
		session = s
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// FindExpiredPaymentSessions returns pending sessions past their deadline.
func (r *PostgresRepository) FindExpiredPaymentSessions(ctx context.Context, now time.Time, limit int) ([]domain.PaymentSession, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + sessionColumns + `
		FROM payment_sessions
		WHERE status = $1 AND expires_at <= $2
		ORDER BY expires_at
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, domain.PaymentSessionPending, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.PaymentSession
	for rows.Next() {
		var s domain.PaymentSession
		if err := rows.Scan(&s.ID, &s.ContractID, &s.Phone, &s.SessionToken, &s.Method, &s.Status,
			&s.OTPHash, &s.OTPAttempts, &s.CancelReason, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// MarkOverdueInvoices flags unpaid invoices past their due date. Returns the number
// of invoices flagged.
func (r *PostgresRepository) MarkOverdueInvoices(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices SET status = $1, updated_at = NOW()
		WHERE status = $2 AND due_date < $3
	`, domain.InvoiceOverdue, domain.InvoiceUnpaid, now)
	if err != nil {
		return 0, fmt.Errorf("failed to mark overdue invoices: %w", err)
	}
	return tag.RowsAffected(), nil
}
