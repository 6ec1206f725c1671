/**
 * @description
 * HTTP handlers for recruitment requests and the supplier proposal arbitration
 * flow: submission by agencies, review, full or partial approval and rejection by
 * back office.
 */

package api

import (
	"net/http"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

// CreateRequestHandler opens a new recruitment request.
func (h *AllocationHandlers) CreateRequestHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload domain.CreateRequestPayload
	if !h.decodeBody(w, r, &payload) {
		return
	}

	request, err := h.service.CreateRecruitmentRequest(r.Context(), actor.ID, payload)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, request)
}

// GetRequestHandler returns a recruitment request.
func (h *AllocationHandlers) GetRequestHandler(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.pathUUID(w, r, "requestID")
	if !ok {
		return
	}

	request, err := h.service.GetRecruitmentRequest(r.Context(), requestID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// SubmitProposalHandler files an agency's offer against a request.
func (h *AllocationHandlers) SubmitProposalHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload domain.SubmitProposalPayload
	if !h.decodeBody(w, r, &payload) {
		return
	}

	proposal, err := h.service.SubmitProposal(r.Context(), actor.ID, payload)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, proposal)
}

// ListProposalsHandler returns every proposal competing for a request.
func (h *AllocationHandlers) ListProposalsHandler(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.pathUUID(w, r, "requestID")
	if !ok {
		return
	}

	proposals, err := h.service.ListProposals(r.Context(), requestID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"proposals": proposals})
}

// ReviewProposalHandler marks a submitted proposal as reviewed.
func (h *AllocationHandlers) ReviewProposalHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	proposalID, ok := h.pathUUID(w, r, "proposalID")
	if !ok {
		return
	}

	var payload struct {
		Notes *string `json:"notes,omitempty"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	proposal, err := h.service.ReviewProposal(r.Context(), actor.ID, proposalID, payload.Notes)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, proposal)
}

// ApproveProposalHandler awards quantity to a proposal.
func (h *AllocationHandlers) ApproveProposalHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	proposalID, ok := h.pathUUID(w, r, "proposalID")
	if !ok {
		return
	}

	var payload domain.ApproveProposalPayload
	if !h.decodeBody(w, r, &payload) {
		return
	}

	proposal, err := h.service.ApproveProposal(r.Context(), actor.ID, proposalID, payload)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, proposal)
}

// RejectProposalHandler rejects a proposal with a mandatory reason.
func (h *AllocationHandlers) RejectProposalHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	proposalID, ok := h.pathUUID(w, r, "proposalID")
	if !ok {
		return
	}

	var payload domain.RejectProposalPayload
	if !h.decodeBody(w, r, &payload) {
		return
	}

	proposal, err := h.service.RejectProposal(r.Context(), actor.ID, proposalID, payload.Reason)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, proposal)
}
