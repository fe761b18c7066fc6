package wheel

import (
	"math"
	"testing"
	"time"
)

func newTestClock() *Clock {
	return NewClock(20*time.Second, 4*time.Second)
}

func TestClock_PhaseBoundary(t *testing.T) {
	clock := newTestClock()

	tests := []struct {
		name    string
		seconds float64
		phase   Phase
	}{
		{"just before betting closes", 19.9, PhaseBetting},
		{"just after betting closes", 20.1, PhaseSpinning},
		{"start of round", 0.0, PhaseBetting},
		{"exact boundary", 20.0, PhaseSpinning},
		{"late in spin", 23.9, PhaseSpinning},
		{"next round opens", 24.0, PhaseBetting},
		{"second round boundary", 44.1, PhaseSpinning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clock.PhaseAt(tt.seconds); got != tt.phase {
				t.Errorf("PhaseAt(%.1f) = %s, want %s", tt.seconds, got, tt.phase)
			}
		})
	}
}

func TestClock_RoundAt(t *testing.T) {
	clock := newTestClock()

	if got := clock.RoundAt(0); got != 0 {
		t.Errorf("RoundAt(0) = %d, want 0", got)
	}
	if got := clock.RoundAt(23.9); got != 0 {
		t.Errorf("RoundAt(23.9) = %d, want 0", got)
	}
	if got := clock.RoundAt(24.0); got != 1 {
		t.Errorf("RoundAt(24.0) = %d, want 1", got)
	}
	if got := clock.RoundAt(240.0); got != 10 {
		t.Errorf("RoundAt(240.0) = %d, want 10", got)
	}
}

func TestClock_RoundMonotonic(t *testing.T) {
	clock := newTestClock()

	prev := int64(-1)
	for s := 0.0; s <= 480.0; s += 0.5 {
		round := clock.RoundAt(s)
		if round < prev {
			t.Fatalf("round went backwards at %.1fs: %d after %d", s, round, prev)
		}
		prev = round
	}
	// One cycle is exactly one round.
	if a, b := clock.RoundAt(10), clock.RoundAt(10+clock.CycleSeconds()); b != a+1 {
		t.Errorf("round did not advance by one over a full cycle: %d then %d", a, b)
	}
}

func TestClock_RemainingAt(t *testing.T) {
	clock := newTestClock()

	if got := clock.RemainingAt(0); math.Abs(got-20) > 1e-9 {
		t.Errorf("RemainingAt(0) = %.4f, want 20", got)
	}
	if got := clock.RemainingAt(20); math.Abs(got-4) > 1e-9 {
		t.Errorf("RemainingAt(20) = %.4f, want 4", got)
	}
	if got := clock.RemainingAt(19.9); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("RemainingAt(19.9) = %.4f, want 0.1", got)
	}
}

func TestClock_HostileInput(t *testing.T) {
	clock := newTestClock()

	if got := clock.RoundAt(-100); got != 0 {
		t.Errorf("RoundAt(-100) = %d, want 0", got)
	}
	if got := clock.PhaseAt(-100); got != PhaseBetting {
		t.Errorf("PhaseAt(-100) = %s, want %s", got, PhaseBetting)
	}
	if got := clock.RoundAt(math.NaN()); got != 0 {
		t.Errorf("RoundAt(NaN) = %d, want 0", got)
	}
}

func TestClock_DefaultDurations(t *testing.T) {
	clock := NewClock(0, -1)
	if got := clock.CycleSeconds(); math.Abs(got-24) > 1e-9 {
		t.Errorf("CycleSeconds = %.4f, want 24 from defaults", got)
	}
}

func TestClock_Snapshot(t *testing.T) {
	clock := newTestClock()

	// 1234 rounds in: display id wraps at 1000.
	at := time.Unix(0, 0).Add(time.Duration(1234) * 24 * time.Second).Add(2 * time.Second)
	state := clock.Snapshot(at)
	if state.RoundID != 1234 {
		t.Errorf("RoundID = %d, want 1234", state.RoundID)
	}
	if state.DisplayID != 234 {
		t.Errorf("DisplayID = %d, want 234", state.DisplayID)
	}
	if state.Phase != PhaseBetting {
		t.Errorf("Phase = %s, want %s", state.Phase, PhaseBetting)
	}
	if math.Abs(state.Remaining-18) > 1e-6 {
		t.Errorf("Remaining = %.4f, want 18", state.Remaining)
	}
}

func TestClock_UntilBoundaryAt(t *testing.T) {
	clock := newTestClock()

	if got := clock.UntilBoundaryAt(19.5); got != 500*time.Millisecond {
		t.Errorf("UntilBoundaryAt(19.5) = %v, want 500ms", got)
	}
	if got := clock.UntilBoundaryAt(22.0); got != 2*time.Second {
		t.Errorf("UntilBoundaryAt(22.0) = %v, want 2s", got)
	}
}
