/**
 * @description
 * This file defines the RecruitmentRequest and SupplierProposal entities. A request is
 * a demand signal for N workers of a given nationality/profession; many agency
 * proposals compete for its remaining quantity. Approving one proposal (fully or
 * partially) reduces what is left for the others and may auto-close rivals, so all
 * proposal writes for a request are serialized through the request row.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus enumerates recruitment request states, derived from awarded quantity.
type RequestStatus string

const (
	RequestOpen             RequestStatus = "open"
	RequestPartiallyAwarded RequestStatus = "partially_awarded"
	RequestFullyAwarded     RequestStatus = "fully_awarded"
)

// Accepting reports whether the request still accepts proposal approvals.
func (s RequestStatus) Accepting() bool {
	return s == RequestOpen || s == RequestPartiallyAwarded
}

// RecruitmentRequest maps to the `recruitment_requests` table.
type RecruitmentRequest struct {
	ID           uuid.UUID     `json:"id"`
	Nationality  string        `json:"nationality"`
	Profession   string        `json:"profession"`
	RequestedQty int           `json:"requested_qty"`
	AwardedQty   int           `json:"awarded_qty"`
	Deadline     time.Time     `json:"deadline"`
	SLAHours     int           `json:"sla_hours"`
	Status       RequestStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// RemainingQty returns the quantity still open for award.
func (r *RecruitmentRequest) RemainingQty() int {
	return r.RequestedQty - r.AwardedQty
}

// ProposalStatus enumerates supplier proposal states.
type ProposalStatus string

const (
	ProposalSubmitted         ProposalStatus = "submitted"
	ProposalReviewed          ProposalStatus = "reviewed"
	ProposalApproved          ProposalStatus = "approved"
	ProposalPartiallyApproved ProposalStatus = "partially_approved"
	ProposalRejected          ProposalStatus = "rejected"
	ProposalCancelled         ProposalStatus = "cancelled"
)

// Terminal reports whether the proposal can no longer change state.
func (s ProposalStatus) Terminal() bool {
	switch s {
	case ProposalApproved, ProposalPartiallyApproved, ProposalRejected, ProposalCancelled:
		return true
	}
	return false
}

// Approvable reports whether the proposal may be approved from its current state.
func (s ProposalStatus) Approvable() bool {
	return s == ProposalSubmitted || s == ProposalReviewed
}

// SupplierProposal maps to the `supplier_proposals` table.
type SupplierProposal struct {
	ID           uuid.UUID      `json:"id"`
	RequestID    uuid.UUID      `json:"request_id"`
	AgencyID     uuid.UUID      `json:"agency_id"`
	OfferedQty   int            `json:"offered_qty"`
	ApprovedQty  int            `json:"approved_qty"`
	UnitPrice    int64          `json:"unit_price"`
	ValidFrom    time.Time      `json:"valid_from"`
	ValidUntil   time.Time      `json:"valid_until"`
	Status       ProposalStatus `json:"status"`
	ReviewNotes  *string        `json:"review_notes,omitempty"`
	RejectReason *string        `json:"reject_reason,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CreateRequestPayload is the DTO for opening a recruitment request.
type CreateRequestPayload struct {
	Nationality  string    `json:"nationality"`
	Profession   string    `json:"profession"`
	RequestedQty int       `json:"requested_qty"`
	Deadline     time.Time `json:"deadline"`
	SLAHours     int       `json:"sla_hours"`
}

// SubmitProposalPayload is the DTO for an agency proposal submission.
type SubmitProposalPayload struct {
	RequestID  uuid.UUID `json:"request_id"`
	OfferedQty int       `json:"offered_qty"`
	UnitPrice  int64     `json:"unit_price"`
	ValidFrom  time.Time `json:"valid_from"`
	ValidUntil time.Time `json:"valid_until"`
}

// ApproveProposalPayload is the DTO for a proposal approval. Qty zero means the full
// offered quantity (capped by the request's remaining quantity).
type ApproveProposalPayload struct {
	Qty   int     `json:"qty,omitempty"`
	Notes *string `json:"notes,omitempty"`
}

// RejectProposalPayload is the DTO for a proposal rejection. Reason is mandatory.
type RejectProposalPayload struct {
	Reason string `json:"reason"`
}
