/**
 * @description
 * This file defines the WorkerProblem entity: an incident report filed by staff
 * against a worker currently assigned to a contract. Approving a problem can carry a
 * worker action (block or deactivate) that is applied to the worker row atomically
 * with the problem resolution.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProblemStatus enumerates worker problem states.
type ProblemStatus string

const (
	ProblemPending  ProblemStatus = "pending"
	ProblemApproved ProblemStatus = "approved"
	ProblemRejected ProblemStatus = "rejected"
	ProblemClosed   ProblemStatus = "closed"
)

var problemTransitions = map[ProblemStatus][]ProblemStatus{
	ProblemPending:  {ProblemApproved, ProblemRejected},
	ProblemApproved: {ProblemClosed},
	ProblemRejected: {ProblemClosed},
	ProblemClosed:   {},
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s ProblemStatus) CanTransitionTo(target ProblemStatus) bool {
	for _, allowed := range problemTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ProblemWorkerAction is the worker-side effect carried by an approved resolution.
type ProblemWorkerAction string

const (
	ProblemActionNone       ProblemWorkerAction = "none"
	ProblemActionBlock      ProblemWorkerAction = "block"
	ProblemActionDeactivate ProblemWorkerAction = "deactivate"
)

// WorkerStatusFor returns the worker status an action maps to, if any.
func (a ProblemWorkerAction) WorkerStatusFor() (WorkerStatus, bool) {
	switch a {
	case ProblemActionBlock:
		return WorkerBlocked, true
	case ProblemActionDeactivate:
		return WorkerInactive, true
	}
	return "", false
}

// WorkerProblem maps to the `worker_problems` table.
type WorkerProblem struct {
	ID           uuid.UUID           `json:"id"`
	WorkerID     uuid.UUID           `json:"worker_id"`
	ReportedBy   uuid.UUID           `json:"reported_by"`
	Category     string              `json:"category"`
	Description  string              `json:"description"`
	Status       ProblemStatus       `json:"status"`
	WorkerAction ProblemWorkerAction `json:"worker_action"`
	ResolvedBy   *uuid.UUID          `json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time          `json:"resolved_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ReportProblemPayload is the DTO for filing a worker problem.
type ReportProblemPayload struct {
	Category    string `json:"category"`
	Description string `json:"description"`
}

// ResolveProblemPayload is the DTO for resolving a worker problem.
type ResolveProblemPayload struct {
	Approve      bool                `json:"approve"`
	WorkerAction ProblemWorkerAction `json:"worker_action,omitempty"`
}
