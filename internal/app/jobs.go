/**
 * @description
 * Scheduled job implementations for the allocation service: the reservation expiry
 * sweep, the payment session expiry sweep and the overdue invoice sweep. Lazy expiry
 * on access already keeps individual requests honest; these jobs exist so workers
 * held by abandoned reservations return to the pool without waiting to be touched.
 */

package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

const sweepBatchSize = 200

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	service *Service
	logger  *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(service *Service, logger *slog.Logger) *Jobs {
	return &Jobs{service: service, logger: logger}
}

// SweepExpiredReservations expires overdue reservations and releases their workers.
func (j *Jobs) SweepExpiredReservations() {
	j.logger.Info("starting reservation expiry sweep")
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := j.service.now()
	reservations, err := j.service.repo.FindExpiredReservations(ctx, now, sweepBatchSize)
	if err != nil {
		j.logger.Error("failed to list expired reservations", "error", err)
		return
	}
	if len(reservations) == 0 {
		j.logger.Info("no expired reservations to process")
		return
	}

	expired := 0
	for _, res := range reservations {
		ok, err := j.service.repo.ExpireReservationAtomic(ctx, res.ID, now)
		if err != nil {
			j.logger.Error("failed to expire reservation", "reservation_id", res.ID, "error", err)
			continue
		}
		if !ok {
			// Another request moved the reservation on between the scan and the lock.
			continue
		}
		expired++

		res.State = domain.ReservationExpired
		j.service.publishReservationState(ctx, &res, "reservation.expired", now)
	}

	j.logger.Info("reservation expiry sweep finished", "scanned", len(reservations), "expired", expired)
}

// SweepExpiredPaymentSessions cancels pending sessions past their deadline.
func (j *Jobs) SweepExpiredPaymentSessions() {
	j.logger.Info("starting payment session expiry sweep")
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	now := j.service.now()
	sessions, err := j.service.repo.FindExpiredPaymentSessions(ctx, now, sweepBatchSize)
	if err != nil {
		j.logger.Error("failed to list expired payment sessions", "error", err)
		return
	}
	if len(sessions) == 0 {
		j.logger.Info("no expired payment sessions to process")
		return
	}

	cancelledCount := 0
	for _, session := range sessions {
		cancelled, err := j.service.repo.CancelPaymentSessionAtomic(ctx, session.ID, domain.SessionCancelReasonExpired)
		if err != nil {
			// A session that completed or was cancelled between the scan and the
			// lock has moved on, same as the reservation sweep.
			if errors.Is(err, domain.ErrNotProcessable) {
				continue
			}
			j.logger.Error("failed to cancel expired session", "session_id", session.ID, "error", err)
			continue
		}
		cancelledCount++
		j.service.publishSessionState(ctx, cancelled, "payment.session.expired", now)
	}

	j.logger.Info("payment session expiry sweep finished", "scanned", len(sessions), "cancelled", cancelledCount)
}

// SweepOverdueInvoices flags unpaid invoices past their due date.
func (j *Jobs) SweepOverdueInvoices() {
	j.logger.Info("starting overdue invoice sweep")
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	flagged, err := j.service.repo.MarkOverdueInvoices(ctx, j.service.now())
	if err != nil {
		j.logger.Error("failed to mark overdue invoices", "error", err)
		return
	}

	j.logger.Info("overdue invoice sweep finished", "flagged", flagged)
}
