package domain

import "testing"

func TestWorkerStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		name    string
		from    WorkerStatus
		to      WorkerStatus
		allowed bool
	}{
		{"ready to reserved", WorkerReady, WorkerReservedAwaitingContract, true},
		{"ready to inactive", WorkerReady, WorkerInactive, true},
		{"ready straight to assigned", WorkerReady, WorkerAssignedToContract, false},
		{"reserved back to ready", WorkerReservedAwaitingContract, WorkerReady, true},
		{"reserved contract to payment", WorkerReservedAwaitingContract, WorkerReservedAwaitingPayment, true},
		{"reserved payment to assigned", WorkerReservedAwaitingPayment, WorkerAssignedToContract, true},
		{"assigned to medical", WorkerAssignedToContract, WorkerMedicalCheck, true},
		{"assigned skips to iqama", WorkerAssignedToContract, WorkerIqamaIssued, false},
		{"ready to work to on leave", WorkerReadyToWork, WorkerOnLeave, true},
		{"terminated is frozen", WorkerTerminated, WorkerReady, false},
		{"blocked is frozen", WorkerBlocked, WorkerReady, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
				t.Fatalf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
			}
		})
	}
}

func TestWorkerStatus_Terminal(t *testing.T) {
	terminal := []WorkerStatus{WorkerOnLeave, WorkerTerminated, WorkerBlocked, WorkerInactive}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	live := []WorkerStatus{WorkerReady, WorkerReservedAwaitingContract, WorkerAssignedToContract, WorkerReadyToWork}
	for _, s := range live {
		if s.Terminal() {
			t.Fatalf("expected %s not to be terminal", s)
		}
	}
}

func TestWorkerStatus_Releasable(t *testing.T) {
	if WorkerReady.Releasable() {
		t.Fatal("releasing an already-ready worker must be a no-op")
	}
	if WorkerTerminated.Releasable() {
		t.Fatal("terminal workers must not be releasable")
	}
	if !WorkerReservedAwaitingContract.Releasable() {
		t.Fatal("a reserved worker must be releasable")
	}
	if !WorkerAssignedToContract.Releasable() {
		t.Fatal("an assigned worker must be releasable")
	}
}

func TestNextOnboardingStage(t *testing.T) {
	pipeline := []struct {
		from WorkerStatus
		next WorkerStatus
	}{
		{WorkerAssignedToContract, WorkerMedicalCheck},
		{WorkerMedicalCheck, WorkerIqamaIssued},
		{WorkerIqamaIssued, WorkerBankAccount},
		{WorkerBankAccount, WorkerSIMCardIssued},
		{WorkerSIMCardIssued, WorkerReadyToWork},
	}
	for _, step := range pipeline {
		next, ok := NextOnboardingStage(step.from)
		if !ok {
			t.Fatalf("expected a next stage after %s", step.from)
		}
		if next != step.next {
			t.Fatalf("expected %s after %s, got %s", step.next, step.from, next)
		}
	}

	if _, ok := NextOnboardingStage(WorkerReadyToWork); ok {
		t.Fatal("the last pipeline stage must have no successor")
	}
	if _, ok := NextOnboardingStage(WorkerReady); ok {
		t.Fatal("a non-pipeline status must have no successor")
	}
}
