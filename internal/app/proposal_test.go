package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
	"github.com/belal1alaidaroos/TestProject-sub001/internal/store"
)

type proposalRepoStub struct {
	store.Repository

	request  *domain.RecruitmentRequest
	proposal *domain.SupplierProposal

	createdRequest  *domain.RecruitmentRequest
	createdProposal *domain.SupplierProposal
	approvedQty     int
	approveErr      error
	rejectReason    string
}

func (s *proposalRepoStub) CreateRecruitmentRequest(ctx context.Context, request *domain.RecruitmentRequest) error {
	s.createdRequest = request
	return nil
}

func (s *proposalRepoStub) FindRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.RecruitmentRequest, error) {
	if s.request == nil {
		return nil, domain.ErrNotFound
	}
	return s.request, nil
}

func (s *proposalRepoStub) CreateProposal(ctx context.Context, proposal *domain.SupplierProposal) error {
	s.createdProposal = proposal
	return nil
}

func (s *proposalRepoStub) FindProposalByID(ctx context.Context, proposalID uuid.UUID) (*domain.SupplierProposal, error) {
	if s.proposal == nil {
		return nil, domain.ErrNotFound
	}
	return s.proposal, nil
}

func (s *proposalRepoStub) ApproveProposalAtomic(ctx context.Context, proposalID uuid.UUID, qty int, notes *string, now time.Time) (*domain.SupplierProposal, *domain.RecruitmentRequest, error) {
	if s.approveErr != nil {
		return nil, nil, s.approveErr
	}
	s.approvedQty = qty
	s.proposal.ApprovedQty = qty
	if qty < s.proposal.OfferedQty {
		s.proposal.Status = domain.ProposalPartiallyApproved
	} else {
		s.proposal.Status = domain.ProposalApproved
	}
	s.request.AwardedQty += qty
	if s.request.AwardedQty >= s.request.RequestedQty {
		s.request.Status = domain.RequestFullyAwarded
	} else {
		s.request.Status = domain.RequestPartiallyAwarded
	}
	return s.proposal, s.request, nil
}

func (s *proposalRepoStub) RejectProposalAtomic(ctx context.Context, proposalID uuid.UUID, reason string) (*domain.SupplierProposal, error) {
	s.rejectReason = reason
	s.proposal.Status = domain.ProposalRejected
	s.proposal.RejectReason = &reason
	return s.proposal, nil
}

func openRequestFixture(qty int, deadline time.Time) *domain.RecruitmentRequest {
	return &domain.RecruitmentRequest{
		ID:           uuid.New(),
		Nationality:  "PH",
		Profession:   "driver",
		RequestedQty: qty,
		Deadline:     deadline,
		Status:       domain.RequestOpen,
	}
}

func submittedProposalFixture(requestID uuid.UUID, offered int) *domain.SupplierProposal {
	return &domain.SupplierProposal{
		ID:         uuid.New(),
		RequestID:  requestID,
		AgencyID:   uuid.New(),
		OfferedQty: offered,
		UnitPrice:  500000,
		Status:     domain.ProposalSubmitted,
	}
}

func TestCreateRecruitmentRequest_RejectsPastDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(&proposalRepoStub{}, &capturingPublisher{}, now)

	_, err := svc.CreateRecruitmentRequest(context.Background(), uuid.New(), domain.CreateRequestPayload{
		Nationality:  "PH",
		Profession:   "driver",
		RequestedQty: 5,
		Deadline:     now.Add(-time.Hour),
	})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected a validation error for a past deadline, got %v", err)
	}
}

func TestSubmitProposal_RejectsClosedRequest(t *testing.T) {
	now := time.Now()
	repo := &proposalRepoStub{request: openRequestFixture(5, now.Add(time.Hour))}
	repo.request.Status = domain.RequestFullyAwarded
	svc := newTestService(repo, &capturingPublisher{}, now)

	_, err := svc.SubmitProposal(context.Background(), uuid.New(), domain.SubmitProposalPayload{
		RequestID:  repo.request.ID,
		OfferedQty: 3,
		UnitPrice:  500000,
		ValidFrom:  now,
		ValidUntil: now.Add(72 * time.Hour),
	})
	if !errors.Is(err, domain.ErrNotProcessable) {
		t.Fatalf("expected ErrNotProcessable for a fully awarded request, got %v", err)
	}
}

func TestSubmitProposal_RejectsPastDeadline(t *testing.T) {
	now := time.Now()
	repo := &proposalRepoStub{request: openRequestFixture(5, now.Add(-time.Minute))}
	svc := newTestService(repo, &capturingPublisher{}, now)

	_, err := svc.SubmitProposal(context.Background(), uuid.New(), domain.SubmitProposalPayload{
		RequestID:  repo.request.ID,
		OfferedQty: 3,
		UnitPrice:  500000,
		ValidFrom:  now,
		ValidUntil: now.Add(72 * time.Hour),
	})
	if !errors.Is(err, domain.ErrExpired) {
		t.Fatalf("expected ErrExpired past the deadline, got %v", err)
	}
}

func TestApproveProposal_ZeroQtyMeansFullOffer(t *testing.T) {
	now := time.Now()
	request := openRequestFixture(10, now.Add(time.Hour))
	repo := &proposalRepoStub{
		request:  request,
		proposal: submittedProposalFixture(request.ID, 4),
	}
	publisher := &capturingPublisher{}
	svc := newTestService(repo, publisher, now)

	proposal, err := svc.ApproveProposal(context.Background(), uuid.New(), repo.proposal.ID, domain.ApproveProposalPayload{})
	if err != nil {
		t.Fatalf("ApproveProposal returned error: %v", err)
	}
	if repo.approvedQty != 4 {
		t.Fatalf("expected the full offered quantity of 4, got %d", repo.approvedQty)
	}
	if proposal.Status != domain.ProposalApproved {
		t.Fatalf("expected a fully approved proposal, got %s", proposal.Status)
	}
	if !publisher.published("proposal.approved") {
		t.Fatalf("expected a proposal.approved event, got %v", publisher.routingKeys())
	}
}

func TestApproveProposal_PartialAwardMarksPartiallyApproved(t *testing.T) {
	now := time.Now()
	request := openRequestFixture(10, now.Add(time.Hour))
	repo := &proposalRepoStub{
		request:  request,
		proposal: submittedProposalFixture(request.ID, 6),
	}
	svc := newTestService(repo, &capturingPublisher{}, now)

	proposal, err := svc.ApproveProposal(context.Background(), uuid.New(), repo.proposal.ID, domain.ApproveProposalPayload{Qty: 2})
	if err != nil {
		t.Fatalf("ApproveProposal returned error: %v", err)
	}
	if proposal.Status != domain.ProposalPartiallyApproved {
		t.Fatalf("expected a partially approved proposal, got %s", proposal.Status)
	}
	if proposal.ApprovedQty != 2 {
		t.Fatalf("expected approved qty 2, got %d", proposal.ApprovedQty)
	}
}

func TestApproveProposal_RejectsQtyAboveOffer(t *testing.T) {
	now := time.Now()
	request := openRequestFixture(10, now.Add(time.Hour))
	repo := &proposalRepoStub{
		request:  request,
		proposal: submittedProposalFixture(request.ID, 3),
	}
	svc := newTestService(repo, &capturingPublisher{}, now)

	_, err := svc.ApproveProposal(context.Background(), uuid.New(), repo.proposal.ID, domain.ApproveProposalPayload{Qty: 4})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected a validation error for qty above the offer, got %v", err)
	}
}

func TestApproveProposal_PropagatesArbitrationFailure(t *testing.T) {
	now := time.Now()
	request := openRequestFixture(10, now.Add(time.Hour))
	repo := &proposalRepoStub{
		request:    request,
		proposal:   submittedProposalFixture(request.ID, 3),
		approveErr: domain.ErrNotProcessable,
	}
	svc := newTestService(repo, &capturingPublisher{}, now)

	_, err := svc.ApproveProposal(context.Background(), uuid.New(), repo.proposal.ID, domain.ApproveProposalPayload{Qty: 3})
	if !errors.Is(err, domain.ErrNotProcessable) {
		t.Fatalf("expected ErrNotProcessable from the store, got %v", err)
	}
}

func TestRejectProposal_RequiresReason(t *testing.T) {
	svc := newTestService(&proposalRepoStub{}, &capturingPublisher{}, time.Now())

	_, err := svc.RejectProposal(context.Background(), uuid.New(), uuid.New(), "")
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected a validation error for a missing reason, got %v", err)
	}
}

func TestRejectProposal_RecordsReasonAndPublishes(t *testing.T) {
	now := time.Now()
	request := openRequestFixture(10, now.Add(time.Hour))
	repo := &proposalRepoStub{
		request:  request,
		proposal: submittedProposalFixture(request.ID, 3),
	}
	publisher := &capturingPublisher{}
	svc := newTestService(repo, publisher, now)

	proposal, err := svc.RejectProposal(context.Background(), uuid.New(), repo.proposal.ID, "price above budget")
	if err != nil {
		t.Fatalf("RejectProposal returned error: %v", err)
	}
	if proposal.Status != domain.ProposalRejected {
		t.Fatalf("expected a rejected proposal, got %s", proposal.Status)
	}
	if repo.rejectReason != "price above budget" {
		t.Fatalf("expected the reason to reach the store, got %q", repo.rejectReason)
	}
	if !publisher.published("proposal.rejected") {
		t.Fatalf("expected a proposal.rejected event, got %v", publisher.routingKeys())
	}
}
