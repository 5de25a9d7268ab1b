package order

import (
	"strings"
	"testing"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusRefunded, true},
		{StatusPending, StatusDelivered, false},
		{StatusProcessing, StatusShipped, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusShipped, StatusRefunded, true},
		{StatusDelivered, StatusRefunded, false},
		{StatusCancelled, StatusPending, false},
		{StatusRefunded, StatusPending, false},
		{"bogus", StatusPending, false},
	}
	for _, tc := range cases {
		o := Order{Status: tc.from}
		if got := o.CanTransition(tc.to); got != tc.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCanBeCancelled(t *testing.T) {
	cancellable := map[string]bool{
		StatusPending:    true,
		StatusProcessing: true,
		StatusShipped:    false,
		StatusDelivered:  false,
		StatusCancelled:  false,
		StatusRefunded:   false,
	}
	for status, want := range cancellable {
		o := Order{Status: status}
		if got := o.CanBeCancelled(); got != want {
			t.Errorf("CanBeCancelled(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestGenerateNumber(t *testing.T) {
	n := GenerateNumber()
	parts := strings.Split(n, "-")
	if len(parts) != 3 || parts[0] != "ORD" {
		t.Fatalf("unexpected order number %q", n)
	}
	if len(parts[1]) != 8 || len(parts[2]) != 6 {
		t.Fatalf("unexpected segment lengths in %q", n)
	}
	if n != strings.ToUpper(n) {
		t.Fatalf("expected uppercase suffix in %q", n)
	}
}
