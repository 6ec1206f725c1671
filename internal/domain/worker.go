/**
 * @description
 * This file defines the Worker entity and its status state machine. The worker is the
 * exclusive resource the whole service brokers: every reservation, contract and problem
 * ultimately resolves to a status change on a worker row, and all of those changes are
 * validated against the single transition table below.
 *
 * @notes
 * - Worker status is the sole source of truth for availability. No other table is
 *   consulted when deciding whether a worker can be claimed.
 * - The onboarding stages form a strictly forward pipeline that begins once a worker
 *   has been assigned to a contract.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// WorkerStatus enumerates the canonical worker states.
type WorkerStatus string

const (
	WorkerReady                    WorkerStatus = "ready"
	WorkerReservedAwaitingContract WorkerStatus = "reserved_awaiting_contract"
	WorkerReservedAwaitingPayment  WorkerStatus = "reserved_awaiting_payment"
	WorkerAssignedToContract       WorkerStatus = "assigned_to_contract"
	WorkerMedicalCheck             WorkerStatus = "medical_check"
	WorkerIqamaIssued              WorkerStatus = "iqama_issued"
	WorkerBankAccount              WorkerStatus = "bank_account"
	WorkerSIMCardIssued            WorkerStatus = "sim_card_issued"
	WorkerReadyToWork              WorkerStatus = "ready_to_work"
	WorkerOnLeave                  WorkerStatus = "on_leave"
	WorkerTerminated               WorkerStatus = "terminated"
	WorkerBlocked                  WorkerStatus = "blocked"
	WorkerInactive                 WorkerStatus = "inactive"
)

// workerTransitions is the authoritative transition table. Any pair not listed here
// is rejected with an InvalidTransitionError.
var workerTransitions = map[WorkerStatus][]WorkerStatus{
	WorkerReady:                    {WorkerReservedAwaitingContract, WorkerInactive},
	WorkerReservedAwaitingContract: {WorkerReservedAwaitingPayment, WorkerReady},
	WorkerReservedAwaitingPayment:  {WorkerAssignedToContract, WorkerReady},
	WorkerAssignedToContract:       {WorkerMedicalCheck, WorkerReady, WorkerBlocked, WorkerInactive},
	WorkerMedicalCheck:             {WorkerIqamaIssued, WorkerReady, WorkerBlocked, WorkerInactive},
	WorkerIqamaIssued:              {WorkerBankAccount, WorkerReady, WorkerBlocked, WorkerInactive},
	WorkerBankAccount:              {WorkerSIMCardIssued, WorkerReady, WorkerBlocked, WorkerInactive},
	WorkerSIMCardIssued:            {WorkerReadyToWork, WorkerReady, WorkerBlocked, WorkerInactive},
	WorkerReadyToWork:              {WorkerOnLeave, WorkerReady, WorkerTerminated, WorkerBlocked, WorkerInactive},
	WorkerOnLeave:                  {},
	WorkerTerminated:               {},
	WorkerBlocked:                  {},
	WorkerInactive:                 {},
}

// onboardingPipeline is the ordered post-assignment stage chain.
var onboardingPipeline = []WorkerStatus{
	WorkerAssignedToContract,
	WorkerMedicalCheck,
	WorkerIqamaIssued,
	WorkerBankAccount,
	WorkerSIMCardIssued,
	WorkerReadyToWork,
}

// CanTransitionTo reports whether moving from s to target is allowed by the table.
func (s WorkerStatus) CanTransitionTo(target WorkerStatus) bool {
	for _, allowed := range workerTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s WorkerStatus) Terminal() bool {
	return len(workerTransitions[s]) == 0
}

// Releasable reports whether a release may restore the worker to Ready.
// Terminal workers stay where they are; releasing an already-Ready worker is a no-op.
func (s WorkerStatus) Releasable() bool {
	return s != WorkerReady && !s.Terminal()
}

// NextOnboardingStage returns the stage that follows s in the onboarding pipeline.
// The second return value is false when s is not a pipeline stage or is the last one.
func NextOnboardingStage(s WorkerStatus) (WorkerStatus, bool) {
	for i, stage := range onboardingPipeline {
		if stage == s && i+1 < len(onboardingPipeline) {
			return onboardingPipeline[i+1], true
		}
	}
	return "", false
}

// Worker represents the exclusive resource. Maps to the `workers` table.
type Worker struct {
	ID                uuid.UUID    `json:"id"`
	FullName          string       `json:"full_name"`
	Nationality       string       `json:"nationality"`
	Profession        string       `json:"profession"`
	AgencyID          uuid.UUID    `json:"agency_id"`
	ExperienceYears   int          `json:"experience_years"`
	Status            WorkerStatus `json:"status"`
	CurrentContractID *uuid.UUID   `json:"current_contract_id,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// WorkerIntakePayload is the DTO for back-office worker intake.
type WorkerIntakePayload struct {
	FullName        string    `json:"full_name"`
	Nationality     string    `json:"nationality"`
	Profession      string    `json:"profession"`
	AgencyID        uuid.UUID `json:"agency_id"`
	ExperienceYears int       `json:"experience_years"`
}

// WorkerListOptions controls pagination and filtering for worker listings.
type WorkerListOptions struct {
	Limit       int
	Offset      int
	Status      string
	Nationality string
	Profession  string
}
