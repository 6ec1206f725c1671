/**
 * @description
 * HTTP handlers for contracts and their invoices: creation from a confirmed
 * reservation, listing, explicit status transitions and cancellation.
 */

package api

import (
	"net/http"
	"strconv"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

// CreateContractHandler converts a confirmed reservation into a contract.
func (h *AllocationHandlers) CreateContractHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var terms domain.ContractTerms
	if !h.decodeBody(w, r, &terms) {
		return
	}

	contract, invoice, err := h.service.CreateContract(r.Context(), actor.ID, terms)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"contract": contract,
		"invoice":  invoice,
	})
}

// ListContractsHandler returns the caller's contracts.
func (h *AllocationHandlers) ListContractsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	q := r.URL.Query()
	opts := domain.ContractListOptions{Status: q.Get("status")}
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))
	opts.Offset, _ = strconv.Atoi(q.Get("offset"))

	contracts, err := h.service.ListContracts(r.Context(), actor.ID, opts)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"contracts": contracts})
}

// GetContractHandler returns one contract.
func (h *AllocationHandlers) GetContractHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	contractID, ok := h.pathUUID(w, r, "contractID")
	if !ok {
		return
	}

	contract, err := h.service.GetContract(r.Context(), actor.ID, actor.IsStaff(), contractID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, contract)
}

// GetInvoiceHandler returns the invoice attached to a contract.
func (h *AllocationHandlers) GetInvoiceHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	contractID, ok := h.pathUUID(w, r, "contractID")
	if !ok {
		return
	}

	invoice, err := h.service.GetInvoice(r.Context(), actor.ID, actor.IsStaff(), contractID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, invoice)
}

// TransitionContractHandler applies an explicit back-office status change.
func (h *AllocationHandlers) TransitionContractHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	contractID, ok := h.pathUUID(w, r, "contractID")
	if !ok {
		return
	}

	var payload domain.TransitionContractPayload
	if !h.decodeBody(w, r, &payload) {
		return
	}

	contract, err := h.service.TransitionContract(r.Context(), actor.ID, contractID, payload.Target)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, contract)
}

// CancelContractHandler cancels a contract with a mandatory reason.
func (h *AllocationHandlers) CancelContractHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	contractID, ok := h.pathUUID(w, r, "contractID")
	if !ok {
		return
	}

	var payload domain.CancelContractPayload
	if !h.decodeBody(w, r, &payload) {
		return
	}

	contract, err := h.service.CancelContract(r.Context(), actor.ID, actor.IsStaff(), contractID, payload.Reason)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, contract)
}
