package wheel

import (
	"math"
	"time"
)

// Phase is the sub-state of a round. It is never persisted: every observer
// recomputes it from wall-clock time, so independent processes always agree.
type Phase string

const (
	PhaseBetting  Phase = "BETTING"
	PhaseSpinning Phase = "SPINNING"
)

// Clock converts wall-clock time into (round id, phase, time remaining).
// Round ids strictly increase with time and are never reused.
type Clock struct {
	betting float64 // seconds
	spin    float64 // seconds
}

func NewClock(betting, spin time.Duration) *Clock {
	if betting <= 0 {
		betting = DefaultBettingDuration
	}
	if spin <= 0 {
		spin = DefaultSpinDuration
	}
	return &Clock{
		betting: betting.Seconds(),
		spin:    spin.Seconds(),
	}
}

// CycleSeconds is the full betting+spin period.
func (c *Clock) CycleSeconds() float64 {
	return c.betting + c.spin
}

// RoundAt returns the round id active at the given wall-clock seconds.
// Negative input is clamped to zero so the conversion is total.
func (c *Clock) RoundAt(nowSeconds float64) int64 {
	if nowSeconds < 0 || math.IsNaN(nowSeconds) {
		return 0
	}
	return int64(nowSeconds / c.CycleSeconds())
}

// PhaseAt returns the phase active at the given wall-clock seconds.
func (c *Clock) PhaseAt(nowSeconds float64) Phase {
	if c.offset(nowSeconds) >= c.betting {
		return PhaseSpinning
	}
	return PhaseBetting
}

// RemainingAt returns seconds left in the current phase.
func (c *Clock) RemainingAt(nowSeconds float64) float64 {
	off := c.offset(nowSeconds)
	if off >= c.betting {
		return c.CycleSeconds() - off
	}
	return c.betting - off
}

// UntilBoundaryAt returns the time until the next phase transition. The
// scheduler sleeps on this instead of polling.
func (c *Clock) UntilBoundaryAt(nowSeconds float64) time.Duration {
	return time.Duration(c.RemainingAt(nowSeconds) * float64(time.Second))
}

func (c *Clock) offset(nowSeconds float64) float64 {
	if nowSeconds < 0 || math.IsNaN(nowSeconds) {
		return 0
	}
	return math.Mod(nowSeconds, c.CycleSeconds())
}

// ClockState is one observation of the clock.
type ClockState struct {
	RoundID   int64   `json:"round_id"`
	DisplayID int64   `json:"display_id"`
	Phase     Phase   `json:"phase"`
	Remaining float64 `json:"seconds_remaining"`
}

// Snapshot observes the clock at a point in time.
func (c *Clock) Snapshot(t time.Time) ClockState {
	now := Seconds(t)
	roundID := c.RoundAt(now)
	return ClockState{
		RoundID:   roundID,
		DisplayID: roundID % DisplayIDModulus,
		Phase:     c.PhaseAt(now),
		Remaining: c.RemainingAt(now),
	}
}

// Seconds converts a time.Time to fractional unix seconds.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
