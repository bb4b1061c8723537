package lifecycle

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusPreparing, true},
		{StatusPreparing, StatusReady, true},
		{StatusReady, StatusDelivered, true},
		{StatusPending, StatusCancelled, true},
		{StatusReady, StatusCancelled, true},
		{StatusPending, StatusDelivered, false},
		{StatusPending, StatusReady, false},
		{StatusPreparing, StatusConfirmed, false},
		{StatusPending, StatusPending, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{"", StatusPending, false},
		{StatusPending, "completed", false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestAdvanceRejectsSkippingAhead(t *testing.T) {
	got, err := Advance(StatusPending, StatusDelivered)
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("err = %v, want ErrIllegalTransition", err)
	}
	if got != StatusPending {
		t.Errorf("status after rejection = %s, want pending", got)
	}

	var te *TransitionError
	if !errors.As(err, &te) || te.From != StatusPending || te.To != StatusDelivered {
		t.Errorf("unexpected error detail %+v", te)
	}
}

func TestAdvanceWalksForwardChain(t *testing.T) {
	status := StatusPending
	for {
		next, ok := Next(status)
		if !ok {
			break
		}
		var err error
		status, err = Advance(status, next)
		if err != nil {
			t.Fatalf("Advance to %s: %v", next, err)
		}
	}
	if status != StatusDelivered {
		t.Errorf("chain ended at %s, want delivered", status)
	}
}

func TestAdvanceUnknownStatus(t *testing.T) {
	if _, err := Advance(StatusPending, "completed"); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("target completed: err = %v, want ErrUnknownStatus", err)
	}
	if _, err := Advance("bogus", StatusConfirmed); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("source bogus: err = %v, want ErrUnknownStatus", err)
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range All() {
		terminal := s == StatusDelivered || s == StatusCancelled
		if s.IsTerminal() != terminal {
			t.Errorf("%s.IsTerminal() = %v", s, s.IsTerminal())
		}
		if terminal && len(Allowed(s)) != 0 {
			t.Errorf("terminal %s should allow nothing, got %v", s, Allowed(s))
		}
		if !terminal {
			allowed := Allowed(s)
			if len(allowed) != 2 || allowed[1] != StatusCancelled {
				t.Errorf("%s allowed = %v, want next step and cancelled", s, allowed)
			}
		}
	}
}

func TestParse(t *testing.T) {
	if s, err := Parse(" Ready "); err != nil || s != StatusReady {
		t.Errorf("Parse(Ready) = %q, %v", s, err)
	}
	if _, err := Parse("completed"); !errors.Is(err, ErrUnknownStatus) {
		t.Errorf("completed must not parse as a lifecycle state, err = %v", err)
	}
}

func TestCountsAsRevenue(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{"delivered", true},
		{"ready", true},
		{"completed", true},
		{"COMPLETED", true},
		{"pending", false},
		{"preparing", false},
		{"cancelled", false},
	}
	for _, tt := range tests {
		if got := CountsAsRevenue(tt.status); got != tt.want {
			t.Errorf("CountsAsRevenue(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
