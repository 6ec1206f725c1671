package domain

import "testing"

func TestReservationState_CanTransitionTo(t *testing.T) {
	cases := []struct {
		name    string
		from    ReservationState
		to      ReservationState
		allowed bool
	}{
		{"contract stage advances to payment", ReservationAwaitingContract, ReservationAwaitingPayment, true},
		{"contract stage can expire", ReservationAwaitingContract, ReservationExpired, true},
		{"contract stage cannot complete directly", ReservationAwaitingContract, ReservationCompleted, false},
		{"payment stage completes", ReservationAwaitingPayment, ReservationCompleted, true},
		{"payment stage can cancel", ReservationAwaitingPayment, ReservationCancelled, true},
		{"completed is frozen", ReservationCompleted, ReservationCancelled, false},
		{"expired is frozen", ReservationExpired, ReservationAwaitingContract, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
				t.Fatalf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
			}
		})
	}
}

func TestReservationState_Terminal(t *testing.T) {
	terminal := []ReservationState{ReservationCompleted, ReservationCancelled, ReservationExpired}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Fatalf("expected %s to be terminal", s)
		}
	}
	if ReservationAwaitingContract.Terminal() || ReservationAwaitingPayment.Terminal() {
		t.Fatal("live reservation states must not be terminal")
	}
}
