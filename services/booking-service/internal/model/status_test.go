package model

import "testing"

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusOnRoute, false},
		{StatusPending, StatusCompleted, false},
		{StatusApproved, StatusOnRoute, true},
		{StatusApproved, StatusRejected, true},
		{StatusApproved, StatusCompleted, false},
		{StatusApproved, StatusPending, false},
		{StatusOnRoute, StatusCompleted, true},
		{StatusOnRoute, StatusRejected, false},
		{StatusCompleted, StatusRejected, false},
		{StatusCompleted, StatusPending, false},
		{StatusRejected, StatusApproved, false},
		{StatusRejected, StatusPending, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", c.from, c.to, c.ok, got)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	if !StatusRejected.Terminal() || !StatusCompleted.Terminal() {
		t.Fatalf("REJECTED and COMPLETED must be terminal")
	}
	if StatusPending.Terminal() || StatusApproved.Terminal() || StatusOnRoute.Terminal() {
		t.Fatalf("non-terminal status reported terminal")
	}
}

func TestServiceDurations(t *testing.T) {
	cases := map[ServiceType]int{
		ServiceBath:         45,
		ServiceHaircut:      60,
		ServiceNailTrim:     20,
		ServiceFullGrooming: 90,
	}
	for svc, want := range cases {
		if got := svc.DurationMinutes(); got != want {
			t.Fatalf("%s: expected %d minutes, got %d", svc, want, got)
		}
	}
	if _, err := ParseServiceType("MASSAGE"); err == nil {
		t.Fatalf("expected error for unknown service type")
	}
}

func TestParseMinute(t *testing.T) {
	m, err := ParseMinute("10:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != 630 {
		t.Fatalf("expected 630, got %d", m)
	}
	if FormatMinute(m) != "10:30" {
		t.Fatalf("expected 10:30, got %s", FormatMinute(m))
	}
	if _, err := ParseMinute("25:00"); err == nil {
		t.Fatalf("expected error for out-of-range hour")
	}
}
