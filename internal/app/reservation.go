/**
 * @description
 * Reservation operations: the atomic claim on a worker, the back-office process
 * action (approve / reject / extend) and customer-facing reads. Expiry is enforced
 * lazily here on every touch and eagerly by the scheduled sweep in jobs.go.
 */

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

// ReserveWorker places an exclusive time-boxed claim on a worker. Exactly one of
// any number of concurrent callers wins; the rest get domain.ErrNotAvailable.
func (s *Service) ReserveWorker(ctx context.Context, customerID uuid.UUID, payload domain.ReserveWorkerPayload) (*domain.WorkerReservation, error) {
	if payload.WorkerID == uuid.Nil {
		return nil, domain.NewValidation("worker_id", "must be set")
	}
	now := s.now()
	if payload.StartDate.Before(now) {
		return nil, domain.NewValidation("start_date", "must not be in the past")
	}
	if !payload.EndDate.After(payload.StartDate) {
		return nil, domain.NewValidation("end_date", "must follow start_date")
	}

	expiresAt := now.Add(s.policy.ReservationTTL)
	reservation, err := s.repo.ClaimWorkerAtomic(ctx, payload.WorkerID, customerID,
		payload.StartDate, payload.EndDate, expiresAt)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, "reservation.created", domain.ReservationEvent{
		ReservationID: reservation.ID,
		WorkerID:      reservation.WorkerID,
		CustomerID:    reservation.CustomerID,
		State:         reservation.State,
		ExpiresAt:     reservation.ExpiresAt,
		Timestamp:     now.UTC(),
	})
	s.publishAudit(ctx, domain.EntityReservation, reservation.ID, "created", customerID,
		nil, map[string]interface{}{"worker_id": reservation.WorkerID, "state": reservation.State})
	return reservation, nil
}

// GetReservation returns a reservation, visible to its owner or back-office staff.
func (s *Service) GetReservation(ctx context.Context, actorID uuid.UUID, isStaff bool, reservationID uuid.UUID) (*domain.WorkerReservation, error) {
	reservation, err := s.repo.FindReservationByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if !isStaff && reservation.CustomerID != actorID {
		return nil, domain.ErrUnauthorized
	}
	return reservation, nil
}

// ListReservations returns the customer's reservations.
func (s *Service) ListReservations(ctx context.Context, customerID uuid.UUID, opts domain.ReservationListOptions) ([]domain.WorkerReservation, error) {
	return s.repo.ListReservationsByCustomer(ctx, customerID, opts)
}

// CancelReservation lets the owning customer abandon a live reservation.
func (s *Service) CancelReservation(ctx context.Context, customerID, reservationID uuid.UUID, reason string) (*domain.WorkerReservation, error) {
	reservation, err := s.repo.FindReservationByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.CustomerID != customerID {
		return nil, domain.ErrUnauthorized
	}
	if reason == "" {
		reason = "cancelled by customer"
	}
	return s.cancelReservation(ctx, customerID, reservationID, reason)
}

// ProcessReservation is the back-office arbitration entrypoint. Approve moves the
// reservation toward contract creation, reject cancels it and frees the worker,
// extend pushes the deadline forward within the configured bounds.
func (s *Service) ProcessReservation(ctx context.Context, actorID, reservationID uuid.UUID, payload domain.ProcessReservationPayload) (*domain.WorkerReservation, error) {
	switch payload.Action {
	case domain.ReservationActionApprove:
		return s.approveReservation(ctx, actorID, reservationID)
	case domain.ReservationActionReject:
		reason := "rejected by back office"
		if payload.Reason != nil && *payload.Reason != "" {
			reason = *payload.Reason
		}
		return s.cancelReservation(ctx, actorID, reservationID, reason)
	case domain.ReservationActionExtend:
		return s.extendReservation(ctx, actorID, reservationID, payload.ExtensionMinutes)
	default:
		return nil, domain.NewValidation("action", fmt.Sprintf("unknown action %q", payload.Action))
	}
}

func (s *Service) approveReservation(ctx context.Context, actorID, reservationID uuid.UUID) (*domain.WorkerReservation, error) {
	now := s.now()
	reservation, err := s.repo.ApproveReservationAtomic(ctx, reservationID, now)
	if err != nil {
		if reservation != nil && reservation.State == domain.ReservationExpired {
			s.publishReservationState(ctx, reservation, "reservation.expired", now)
		}
		return nil, err
	}

	s.publishReservationState(ctx, reservation, "reservation.approved", now)
	s.publishAudit(ctx, domain.EntityReservation, reservation.ID, "approved", actorID,
		map[string]interface{}{"state": domain.ReservationAwaitingContract},
		map[string]interface{}{"state": reservation.State})
	return reservation, nil
}

func (s *Service) cancelReservation(ctx context.Context, actorID, reservationID uuid.UUID, reason string) (*domain.WorkerReservation, error) {
	now := s.now()
	reservation, err := s.repo.CancelReservationAtomic(ctx, reservationID, reason, now)
	if err != nil {
		return nil, err
	}

	s.publishReservationState(ctx, reservation, "reservation.cancelled", now)
	s.publishAudit(ctx, domain.EntityReservation, reservation.ID, "cancelled", actorID,
		nil, map[string]interface{}{"state": reservation.State, "reason": reason})
	return reservation, nil
}

func (s *Service) extendReservation(ctx context.Context, actorID, reservationID uuid.UUID, extensionMinutes int) (*domain.WorkerReservation, error) {
	extension := time.Duration(extensionMinutes) * time.Minute
	if extension < s.policy.ExtensionMin || extension > s.policy.ExtensionMax {
		return nil, domain.NewValidation("extension_minutes",
			fmt.Sprintf("must be between %d and %d",
				int(s.policy.ExtensionMin.Minutes()), int(s.policy.ExtensionMax.Minutes())))
	}

	now := s.now()
	reservation, err := s.repo.ExtendReservationAtomic(ctx, reservationID, extension, now)
	if err != nil {
		if reservation != nil && reservation.State == domain.ReservationExpired {
			s.publishReservationState(ctx, reservation, "reservation.expired", now)
		}
		return nil, err
	}

	s.publishReservationState(ctx, reservation, "reservation.extended", now)
	s.publishAudit(ctx, domain.EntityReservation, reservation.ID, "extended", actorID,
		nil, map[string]interface{}{"expires_at": reservation.ExpiresAt})
	return reservation, nil
}

func (s *Service) publishReservationState(ctx context.Context, reservation *domain.WorkerReservation, routingKey string, now time.Time) {
	s.publishEvent(ctx, routingKey, domain.ReservationEvent{
		ReservationID: reservation.ID,
		WorkerID:      reservation.WorkerID,
		CustomerID:    reservation.CustomerID,
		State:         reservation.State,
		ExpiresAt:     reservation.ExpiresAt,
		Timestamp:     now.UTC(),
	})
}
