/**
 * @description
 * This file provides the bounded retry wrapper used by all Atomic repository methods.
 * Concurrent transactions that lock the same rows in different orders can trip the
 * PostgreSQL deadlock detector or a serialization failure; both are transient and the
 * whole transaction can simply be re-run.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const defaultRetryAttempts = 3

// SQLSTATE codes for transient transaction failures.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
	}
	return false
}

// withDeadlockRetry runs fn up to attempts times, retrying only on deadlock or
// serialization SQLSTATEs with a short linear backoff. Any other error is final.
func withDeadlockRetry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn(ctx)
		if err == nil || !isRetryable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 25 * time.Millisecond):
		}
	}
	return err
}
