/**
 * @description
 * HTTP handlers for worker intake, pool listing, the onboarding pipeline and worker
 * problem reports.
 */

package api

import (
	"net/http"
	"strconv"

	"github.com/belal1alaidaroos/TestProject-sub001/internal/domain"
)

// RegisterWorkerHandler handles back-office worker intake.
func (h *AllocationHandlers) RegisterWorkerHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var payload domain.WorkerIntakePayload
	if !h.decodeBody(w, r, &payload) {
		return
	}

	worker, err := h.service.RegisterWorker(r.Context(), actor.ID, payload)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, worker)
}

// GetWorkerHandler returns a single worker.
func (h *AllocationHandlers) GetWorkerHandler(w http.ResponseWriter, r *http.Request) {
	workerID, ok := h.pathUUID(w, r, "workerID")
	if !ok {
		return
	}

	worker, err := h.service.GetWorker(r.Context(), workerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, worker)
}

// ListWorkersHandler returns workers matching the query filters.
func (h *AllocationHandlers) ListWorkersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := domain.WorkerListOptions{
		Status:      q.Get("status"),
		Nationality: q.Get("nationality"),
		Profession:  q.Get("profession"),
	}
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))
	opts.Offset, _ = strconv.Atoi(q.Get("offset"))

	workers, err := h.service.ListWorkers(r.Context(), opts)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"workers": workers})
}

// AdvanceOnboardingHandler moves an assigned worker to the next onboarding stage.
func (h *AllocationHandlers) AdvanceOnboardingHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	workerID, ok := h.pathUUID(w, r, "workerID")
	if !ok {
		return
	}

	var payload struct {
		Next domain.WorkerStatus `json:"next"`
	}
	if !h.decodeBody(w, r, &payload) {
		return
	}

	worker, err := h.service.AdvanceWorkerOnboarding(r.Context(), actor.ID, workerID, payload.Next)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, worker)
}

// ReleaseWorkerHandler hands a claimed worker back to the pool.
func (h *AllocationHandlers) ReleaseWorkerHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	workerID, ok := h.pathUUID(w, r, "workerID")
	if !ok {
		return
	}

	worker, released, err := h.service.ReleaseWorker(r.Context(), actor.ID, workerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"worker":   worker,
		"released": released,
	})
}

// ReportProblemHandler files a problem report against a worker.
func (h *AllocationHandlers) ReportProblemHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	workerID, ok := h.pathUUID(w, r, "workerID")
	if !ok {
		return
	}

	var payload domain.ReportProblemPayload
	if !h.decodeBody(w, r, &payload) {
		return
	}

	problem, err := h.service.ReportWorkerProblem(r.Context(), actor.ID, workerID, payload)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, problem)
}

// GetProblemHandler returns a problem report.
func (h *AllocationHandlers) GetProblemHandler(w http.ResponseWriter, r *http.Request) {
	problemID, ok := h.pathUUID(w, r, "problemID")
	if !ok {
		return
	}

	problem, err := h.service.GetWorkerProblem(r.Context(), problemID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, problem)
}

// ResolveProblemHandler approves or rejects a pending problem.
func (h *AllocationHandlers) ResolveProblemHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	problemID, ok := h.pathUUID(w, r, "problemID")
	if !ok {
		return
	}

	var payload domain.ResolveProblemPayload
	if !h.decodeBody(w, r, &payload) {
		return
	}

	problem, err := h.service.ResolveWorkerProblem(r.Context(), actor.ID, problemID, payload)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, problem)
}

// CloseProblemHandler closes a resolved problem.
func (h *AllocationHandlers) CloseProblemHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := GetActor(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	problemID, ok := h.pathUUID(w, r, "problemID")
	if !ok {
		return
	}

	problem, err := h.service.CloseWorkerProblem(r.Context(), actor.ID, problemID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, problem)
}
