/**
 * @description
 * Recruitment request and supplier proposal operations. Many agency proposals compete
 * for one request's quantity; approval arbitration (full or partial award, rival
 * auto-rejection) is serialized in the store under the request row lock, so this
 * layer only validates input and publishes the outcome.
 */

package app

import (
	"context"

	"github.com/google/uuid"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

// CreateRecruitmentRequest opens a new demand request.
func (s *Service) CreateRecruitmentRequest(ctx context.Context, actorID uuid.UUID, payload domain.CreateRequestPayload) (*domain.RecruitmentRequest, error) {
	if payload.RequestedQty <= 0 {
		return nil, domain.NewValidation("requested_qty", "must be positive")
	}
	if payload.Nationality == "" {
		return nil, domain.NewValidation("nationality", "must not be empty")
	}
	if payload.Profession == "" {
		return nil, domain.NewValidation("profession", "must not be empty")
	}
	if !payload.Deadline.After(s.now()) {
		return nil, domain.NewValidation("deadline", "must be in the future")
	}

	request := &domain.RecruitmentRequest{
		ID:           uuid.New(),
		Nationality:  payload.Nationality,
		Profession:   payload.Profession,
		RequestedQty: payload.RequestedQty,
		Deadline:     payload.Deadline,
		SLAHours:     payload.SLAHours,
		Status:       domain.RequestOpen,
	}
	if err := s.repo.CreateRecruitmentRequest(ctx, request); err != nil {
		return nil, err
	}

	s.publishAudit(ctx, domain.EntityRequest, request.ID, "created", actorID,
		nil, map[string]interface{}{"requested_qty": request.RequestedQty})
	return request, nil
}

// GetRecruitmentRequest returns a request by id.
func (s *Service) GetRecruitmentRequest(ctx context.Context, requestID uuid.UUID) (*domain.RecruitmentRequest, error) {
	return s.repo.FindRequestByID(ctx, requestID)
}

// SubmitProposal files an agency's offer against an open request.
func (s *Service) SubmitProposal(ctx context.Context, agencyID uuid.UUID, payload domain.SubmitProposalPayload) (*domain.SupplierProposal, error) {
	if payload.OfferedQty <= 0 {
		return nil, domain.NewValidation("offered_qty", "must be positive")
	}
	if payload.UnitPrice <= 0 {
		return nil, domain.NewValidation("unit_price", "must be positive")
	}
	if payload.ValidUntil.Before(payload.ValidFrom) {
		return nil, domain.NewValidation("valid_until", "must not precede valid_from")
	}

	request, err := s.repo.FindRequestByID(ctx, payload.RequestID)
	if err != nil {
		return nil, err
	}
	if !request.Status.Accepting() {
		return nil, domain.ErrNotProcessable
	}
	if s.now().After(request.Deadline) {
		return nil, domain.ErrExpired
	}

	proposal := &domain.SupplierProposal{
		ID:         uuid.New(),
		RequestID:  request.ID,
		AgencyID:   agencyID,
		OfferedQty: payload.OfferedQty,
		UnitPrice:  payload.UnitPrice,
		ValidFrom:  payload.ValidFrom,
		ValidUntil: payload.ValidUntil,
		Status:     domain.ProposalSubmitted,
	}
	if err := s.repo.CreateProposal(ctx, proposal); err != nil {
		return nil, err
	}

	s.publishAudit(ctx, domain.EntityProposal, proposal.ID, "submitted", agencyID,
		nil, map[string]interface{}{"request_id": proposal.RequestID, "offered_qty": proposal.OfferedQty})
	return proposal, nil
}

// ListProposals returns every proposal competing for a request.
func (s *Service) ListProposals(ctx context.Context, requestID uuid.UUID) ([]domain.SupplierProposal, error) {
	return s.repo.ListProposalsByRequest(ctx, requestID)
}

// ReviewProposal marks a submitted proposal as reviewed.
func (s *Service) ReviewProposal(ctx context.Context, actorID, proposalID uuid.UUID, notes *string) (*domain.SupplierProposal, error) {
	proposal, err := s.repo.ReviewProposalAtomic(ctx, proposalID, notes)
	if err != nil {
		return nil, err
	}

	s.publishProposalOutcome(ctx, proposal, domain.RequestStatus(""), "proposal.reviewed")
	s.publishAudit(ctx, domain.EntityProposal, proposal.ID, "reviewed", actorID,
		nil, map[string]interface{}{"status": proposal.Status})
	return proposal, nil
}

// ApproveProposal awards quantity to a proposal. A zero qty in the payload means the
// full offered quantity; the store caps the award at the request's remainder.
func (s *Service) ApproveProposal(ctx context.Context, actorID, proposalID uuid.UUID, payload domain.ApproveProposalPayload) (*domain.SupplierProposal, error) {
	proposal, err := s.repo.FindProposalByID(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	qty := payload.Qty
	if qty == 0 {
		qty = proposal.OfferedQty
	}
	if qty < 0 || qty > proposal.OfferedQty {
		return nil, domain.NewValidation("qty", "must be between zero and the offered quantity")
	}

	approved, request, err := s.repo.ApproveProposalAtomic(ctx, proposalID, qty, payload.Notes, s.now())
	if err != nil {
		return nil, err
	}

	s.publishProposalOutcome(ctx, approved, request.Status, "proposal.approved")
	s.publishAudit(ctx, domain.EntityProposal, approved.ID, "approved", actorID,
		nil, map[string]interface{}{"status": approved.Status, "approved_qty": approved.ApprovedQty})
	return approved, nil
}

// RejectProposal rejects a live proposal with a mandatory reason.
func (s *Service) RejectProposal(ctx context.Context, actorID, proposalID uuid.UUID, reason string) (*domain.SupplierProposal, error) {
	if reason == "" {
		return nil, domain.NewValidation("reason", "must not be empty")
	}

	proposal, err := s.repo.RejectProposalAtomic(ctx, proposalID, reason)
	if err != nil {
		return nil, err
	}

	s.publishProposalOutcome(ctx, proposal, domain.RequestStatus(""), "proposal.rejected")
	s.publishAudit(ctx, domain.EntityProposal, proposal.ID, "rejected", actorID,
		nil, map[string]interface{}{"status": proposal.Status, "reason": reason})
	return proposal, nil
}

func (s *Service) publishProposalOutcome(ctx context.Context, proposal *domain.SupplierProposal, requestStatus domain.RequestStatus, routingKey string) {
	s.publishEvent(ctx, routingKey, domain.ProposalEvent{
		ProposalID:    proposal.ID,
		RequestID:     proposal.RequestID,
		AgencyID:      proposal.AgencyID,
		Status:        proposal.Status,
		ApprovedQty:   proposal.ApprovedQty,
		RequestStatus: requestStatus,
		Timestamp:     s.now().UTC(),
	})
}
