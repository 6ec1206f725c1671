package domain

import "testing"

func TestProblemStatus_CanTransitionTo(t *testing.T) {
	if !ProblemPending.CanTransitionTo(ProblemApproved) || !ProblemPending.CanTransitionTo(ProblemRejected) {
		t.Fatal("a pending problem must be approvable and rejectable")
	}
	if ProblemPending.CanTransitionTo(ProblemClosed) {
		t.Fatal("a pending problem must not close directly")
	}
	if !ProblemApproved.CanTransitionTo(ProblemClosed) || !ProblemRejected.CanTransitionTo(ProblemClosed) {
		t.Fatal("resolved problems must be closable")
	}
	if ProblemClosed.CanTransitionTo(ProblemPending) {
		t.Fatal("a closed problem must stay closed")
	}
}

func TestProblemWorkerAction_WorkerStatusFor(t *testing.T) {
	if status, ok := ProblemActionBlock.WorkerStatusFor(); !ok || status != WorkerBlocked {
		t.Fatalf("expected block to map to %s, got %s (%v)", WorkerBlocked, status, ok)
	}
	if status, ok := ProblemActionDeactivate.WorkerStatusFor(); !ok || status != WorkerInactive {
		t.Fatalf("expected deactivate to map to %s, got %s (%v)", WorkerInactive, status, ok)
	}
	if _, ok := ProblemActionNone.WorkerStatusFor(); ok {
		t.Fatal("the none action must not touch the worker")
	}
}
