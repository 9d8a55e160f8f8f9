package domain

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusNew, StatusContacted, true},
		{StatusContacted, StatusQualified, true},
		{StatusQualified, StatusConverted, true},
		{StatusNew, StatusNew, true},
		{StatusNew, StatusLost, true},
		{StatusContacted, StatusLost, true},
		{StatusQualified, StatusLost, true},
		{StatusConverted, StatusLost, true},
		{StatusLost, StatusLost, true},
		{StatusNew, StatusConverted, true}, // terminal targets are always reachable
		{StatusNew, StatusQualified, false},
		{StatusContacted, StatusNew, false},
		{StatusConverted, StatusNew, false},
		{StatusConverted, StatusContacted, false},
		{StatusLost, StatusContacted, false},
		{StatusNew, Status("BOGUS"), false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTransitionStampsFirstResponseOnce(t *testing.T) {
	next, stamp, err := Transition(StatusNew, StatusContacted, false)
	if err != nil {
		t.Fatalf("NEW -> CONTACTED failed: %v", err)
	}
	if next != StatusContacted {
		t.Fatalf("got status %s, want CONTACTED", next)
	}
	if !stamp {
		t.Fatalf("expected first-response stamp on first CONTACTED entry")
	}

	// Re-entering CONTACTED with an existing stamp must not restamp.
	_, stamp, err = Transition(StatusContacted, StatusContacted, true)
	if err != nil {
		t.Fatalf("CONTACTED -> CONTACTED failed: %v", err)
	}
	if stamp {
		t.Fatalf("first-response stamp must not be overwritten")
	}
}

func TestTransitionRejectsIllegalTarget(t *testing.T) {
	next, stamp, err := Transition(StatusConverted, StatusContacted, true)
	if err == nil {
		t.Fatalf("CONVERTED -> CONTACTED must be rejected")
	}

	var invalid *ErrInvalidTransition
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *ErrInvalidTransition, got %T", err)
	}
	if invalid.From != StatusConverted || invalid.To != StatusContacted {
		t.Fatalf("error carries %s -> %s, want CONVERTED -> CONTACTED", invalid.From, invalid.To)
	}
	if next != StatusConverted || stamp {
		t.Fatalf("rejected transition must leave the status unchanged")
	}
}

func TestTransitionAnyStateToLost(t *testing.T) {
	for _, from := range []Status{StatusNew, StatusContacted, StatusQualified, StatusConverted, StatusLost} {
		if _, _, err := Transition(from, StatusLost, false); err != nil {
			t.Fatalf("%s -> LOST failed: %v", from, err)
		}
	}
}
