/**
 * @description
 * This file implements recruitment request and supplier proposal persistence. All
 * proposal writes for a request are serialized through a `FOR UPDATE` lock on the
 * request row: awarding quantity, recomputing the request status and auto-rejecting
 * rival proposals happen under that single lock, so two concurrent approvals can
 * never award more than the request asked for.
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

const requestColumns = `id, nationality, profession, requested_qty, awarded_qty, deadline, sla_hours, status, created_at, updated_at`

func scanRequest(row pgx.Row) (*domain.RecruitmentRequest, error) {
	var req domain.RecruitmentRequest
	err := row.Scan(&req.ID, &req.Nationality, &req.Profession, &req.RequestedQty,
		&req.AwardedQty, &req.Deadline, &req.SLAHours, &req.Status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

const proposalColumns = `id, request_id, agency_id, offered_qty, approved_qty, unit_price, valid_from, valid_until, status, review_notes, reject_reason, created_at, updated_at`

func scanProposal(row pgx.Row) (*domain.SupplierProposal, error) {
	var p domain.SupplierProposal
	err := row.Scan(&p.ID, &p.RequestID, &p.AgencyID, &p.OfferedQty, &p.ApprovedQty,
		&p.UnitPrice, &p.ValidFrom, &p.ValidUntil, &p.Status, &p.ReviewNotes,
		&p.RejectReason, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreateRecruitmentRequest inserts a new demand request in the Open status.
func (r *PostgresRepository) CreateRecruitmentRequest(ctx context.Context, request *domain.RecruitmentRequest) error {
	query := `
		INSERT INTO recruitment_requests (id, nationality, profession, requested_qty, deadline, sla_hours, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, request.ID, request.Nationality, request.Profession,
		request.RequestedQty, request.Deadline, request.SLAHours, request.Status).
		Scan(&request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert recruitment request: %w", err)
	}
	return nil
}

// FindRequestByID retrieves a recruitment request by its ID.
func (r *PostgresRepository) FindRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.RecruitmentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM recruitment_requests WHERE id = $1`
	return scanRequest(r.db.QueryRow(ctx, query, requestID))
}

// CreateProposal inserts a new supplier proposal in the Submitted status.
func (r *PostgresRepository) CreateProposal(ctx context.Context, proposal *domain.SupplierProposal) error {
	query := `
		INSERT INTO supplier_proposals (id, request_id, agency_id, offered_qty, unit_price, valid_from, valid_until, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, proposal.ID, proposal.RequestID, proposal.AgencyID,
		proposal.OfferedQty, proposal.UnitPrice, proposal.ValidFrom, proposal.ValidUntil,
		proposal.Status).Scan(&proposal.CreatedAt, &proposal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert proposal: %w", err)
	}
	return nil
}

// FindProposalByID retrieves a proposal by its ID.
func (r *PostgresRepository) FindProposalByID(ctx context.Context, proposalID uuid.UUID) (*domain.SupplierProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM supplier_proposals WHERE id = $1`
	return scanProposal(r.db.QueryRow(ctx, query, proposalID))
}

// ListProposalsByRequest retrieves all proposals competing for a request.
func (r *PostgresRepository) ListProposalsByRequest(ctx context.Context, requestID uuid.UUID) ([]domain.SupplierProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM supplier_proposals WHERE request_id = $1 ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var proposals []domain.SupplierProposal
	for rows.Next() {
		var p domain.SupplierProposal
		if err := rows.Scan(&p.ID, &p.RequestID, &p.AgencyID, &p.OfferedQty, &p.ApprovedQty,
			&p.UnitPrice, &p.ValidFrom, &p.ValidUntil, &p.Status, &p.ReviewNotes,
			&p.RejectReason, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// lockProposalWithRequest locks the request row first, then the proposal row.
func lockProposalWithRequest(ctx context.Context, tx pgx.Tx, proposalID uuid.UUID) (*domain.SupplierProposal, *domain.RecruitmentRequest, error) {
	var requestID uuid.UUID
	err := tx.QueryRow(ctx, `SELECT request_id FROM supplier_proposals WHERE id = $1`, proposalID).Scan(&requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to resolve proposal request: %w", err)
	}

	req, err := scanRequest(tx.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM recruitment_requests WHERE id = $1 FOR UPDATE`, requestID))
	if err != nil {
		return nil, nil, err
	}
	prop, err := scanProposal(tx.QueryRow(ctx,
		`SELECT `+proposalColumns+` FROM supplier_proposals WHERE id = $1 FOR UPDATE`, proposalID))
	if err != nil {
		return nil, nil, err
	}
	return prop, req, nil
}

// ReviewProposalAtomic moves a submitted proposal to Reviewed, recording notes.
func (r *PostgresRepository) ReviewProposalAtomic(ctx context.Context, proposalID uuid.UUID, notes *string) (*domain.SupplierProposal, error) {
	var proposal *domain.SupplierProposal
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		prop, _, err := lockProposalWithRequest(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if prop.Status != domain.ProposalSubmitted {
			return domain.NewInvalidTransition(string(domain.EntityProposal),
				string(prop.Status), string(domain.ProposalReviewed))
		}

		err = tx.QueryRow(ctx, `
			UPDATE supplier_proposals SET status = $1, review_notes = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING updated_at
		`, domain.ProposalReviewed, notes, prop.ID).Scan(&prop.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to review proposal: %w", err)
		}
		prop.Status = domain.ProposalReviewed
		prop.ReviewNotes = notes
		proposal = prop
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// ApproveProposalAtomic awards qty to a proposal under the request row lock. The
// caller has already clamped qty to [1, proposal.OfferedQty]; the award is further
// capped by the request's remaining quantity inside the lock. When the request
// fills, every other still-live proposal is auto-rejected.
func (r *PostgresRepository) ApproveProposalAtomic(ctx context.Context, proposalID uuid.UUID, qty int, notes *string, now time.Time) (*domain.SupplierProposal, *domain.RecruitmentRequest, error) {
	var (
		proposal *domain.SupplierProposal
		request  *domain.RecruitmentRequest
	)
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		prop, req, err := lockProposalWithRequest(ctx, tx, proposalID)
		if err != nil {
			return err
		}

		if !prop.Status.Approvable() {
			return domain.NewInvalidTransition(string(domain.EntityProposal),
				string(prop.Status), string(domain.ProposalApproved))
		}
		if !req.Status.Accepting() {
			return domain.ErrNotProcessable
		}
		if now.After(req.Deadline) {
			return domain.ErrExpired
		}

		remaining := req.RemainingQty()
		if remaining <= 0 {
			return domain.ErrNotProcessable
		}
		award := qty
		if award > remaining {
			award = remaining
		}

		newStatus := domain.ProposalApproved
		if award < prop.OfferedQty {
			newStatus = domain.ProposalPartiallyApproved
		}
		err = tx.QueryRow(ctx, `
			UPDATE supplier_proposals
			SET status = $1, approved_qty = $2, review_notes = COALESCE($3, review_notes), updated_at = NOW()
			WHERE id = $4
			RETURNING updated_at
		`, newStatus, award, notes, prop.ID).Scan(&prop.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to approve proposal: %w", err)
		}
		prop.Status = newStatus
		prop.ApprovedQty = award
		if notes != nil {
			prop.ReviewNotes = notes
		}

		req.AwardedQty += award
		reqStatus := domain.RequestPartiallyAwarded
		if req.AwardedQty >= req.RequestedQty {
			reqStatus = domain.RequestFullyAwarded
		}
		err = tx.QueryRow(ctx, `
			UPDATE recruitment_requests SET awarded_qty = $1, status = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING updated_at
		`, req.AwardedQty, reqStatus, req.ID).Scan(&req.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update request award: %w", err)
		}
		req.Status = reqStatus

		if reqStatus == domain.RequestFullyAwarded {
			if _, err := tx.Exec(ctx, `
				UPDATE supplier_proposals
				SET status = $1, reject_reason = $2, updated_at = NOW()
				WHERE request_id = $3 AND id <> $4 AND status IN ($5, $6)
			`, domain.ProposalRejected, "request fully awarded", req.ID, prop.ID,
				domain.ProposalSubmitted, domain.ProposalReviewed); err != nil {
				return fmt.Errorf("failed to auto-reject rival proposals: %w", err)
			}
		}

		proposal = prop
		request = req
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, nil, err
	}
	return proposal, request, nil
}

// RejectProposalAtomic rejects a still-live proposal with a mandatory reason.
func (r *PostgresRepository) RejectProposalAtomic(ctx context.Context, proposalID uuid.UUID, reason string) (*domain.SupplierProposal, error) {
	var proposal *domain.SupplierProposal
	err := withDeadlockRetry(ctx, r.retryAttempts, func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		prop, _, err := lockProposalWithRequest(ctx, tx, proposalID)
		if err != nil {
			return err
		}
		if prop.Status.Terminal() {
			return domain.NewInvalidTransition(string(domain.EntityProposal),
				string(prop.Status), string(domain.ProposalRejected))
		}

		err = tx.QueryRow(ctx, `
			UPDATE supplier_proposals SET status = $1, reject_reason = $2, updated_at = NOW()
			WHERE id = $3
			RETURNING updated_at
		`, domain.ProposalRejected, reason, prop.ID).Scan(&prop.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to reject proposal: %w", err)
		}
		prop.Status = domain.ProposalRejected
		prop.RejectReason = &reason
		proposal = prop
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}
