package wheel

import (
	"context"
	"fmt"
	"log"
	"time"
)

type EventType string

const (
	EventRoundStarted EventType = "round_started"
	EventSpinStarted  EventType = "spin_started"
	EventRoundSettled EventType = "round_settled"
)

// Event is one lifecycle notification from the scheduler.
type Event struct {
	Type       EventType
	RoundID    int64
	Phase      Phase
	Outcome    *Outcome
	Settlement *Settlement
}

// Scheduler drives the round state machine off the wall clock. It keeps no
// timer state of its own: every transition re-samples the clock, so a slow
// tick can never drift the phase away from what other observers compute.
//
// One scheduler is authoritative per room; independent rooms run their own
// schedulers with no shared state.
type Scheduler struct {
	room   string
	cfg    Config
	clock  *Clock
	gen    *Generator
	ledger *Ledger
	hub    *Hub
	now    func() time.Time

	events   chan Event
	pauseCh  chan struct{}
	resumeCh chan struct{}

	roundID int64
	phase   Phase
}

func NewScheduler(room string, cfg Config, clock *Clock, gen *Generator, ledger *Ledger, hub *Hub) *Scheduler {
	return &Scheduler{
		room:     room,
		cfg:      cfg,
		clock:    clock,
		gen:      gen,
		ledger:   ledger,
		hub:      hub,
		now:      time.Now,
		events:   make(chan Event, 64),
		pauseCh:  make(chan struct{}, 1),
		resumeCh: make(chan struct{}, 1),
	}
}

// Events exposes the lifecycle stream. Slow consumers drop events rather
// than stall the round loop.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// State recomputes the current round and phase from the clock. No stored
// phase is consulted, so every caller in every process gets the same answer.
func (s *Scheduler) State() ClockState {
	return s.clock.Snapshot(s.now())
}

// Pause suspends phase advancement while a settlement presentation is shown.
// The clock keeps running underneath.
func (s *Scheduler) Pause() {
	select {
	case s.pauseCh <- struct{}{}:
	default:
	}
}

// Resume re-samples wall time and jumps straight to whatever round and phase
// are now current. Rounds that elapsed while paused are skipped, not
// replayed; with multiple server replicas another settler picks them up, and
// a paused client simply misses them. This is a deliberate policy choice.
func (s *Scheduler) Resume() {
	select {
	case s.resumeCh <- struct{}{}:
	default:
	}
}

// Run executes the round loop until the context is cancelled. Instead of
// polling it sleeps until the next computed phase boundary.
func (s *Scheduler) Run(ctx context.Context) error {
	state := s.clock.Snapshot(s.now())
	s.roundID = state.RoundID
	s.phase = state.Phase
	log.Printf("[SCHED] room %s joining at round %d (%s)", s.room, s.roundID, s.phase)

	if s.phase == PhaseBetting {
		s.announceRound(state)
	} else {
		s.beginSpin(state)
	}

	for {
		wait := s.clock.UntilBoundaryAt(Seconds(s.now()))
		// Land just past the boundary so the re-sample sees the new phase.
		timer := time.NewTimer(wait + 5*time.Millisecond)

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case <-s.pauseCh:
			timer.Stop()
			if err := s.awaitResume(ctx); err != nil {
				return err
			}

		case <-timer.C:
			s.advance(ctx)
		}
	}
}

func (s *Scheduler) awaitResume(ctx context.Context) error {
	log.Printf("[SCHED] room %s paused at round %d (%s)", s.room, s.roundID, s.phase)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.resumeCh:
	}
	state := s.clock.Snapshot(s.now())
	if skipped := state.RoundID - s.roundID; skipped > 0 {
		log.Printf("[SCHED] room %s resumed, skipping %d round(s) to %d", s.room, skipped, state.RoundID)
	}
	s.roundID = state.RoundID
	s.phase = state.Phase
	if s.phase == PhaseBetting {
		s.announceRound(state)
	} else {
		s.beginSpin(state)
	}
	return nil
}

// advance re-samples the clock and applies whatever transition it implies.
func (s *Scheduler) advance(ctx context.Context) {
	state := s.clock.Snapshot(s.now())

	switch {
	case state.RoundID == s.roundID && state.Phase == s.phase:
		// Woke early; the next loop iteration recomputes the deadline.

	case state.RoundID == s.roundID && state.Phase == PhaseSpinning:
		s.phase = PhaseSpinning
		s.beginSpin(state)

	case state.RoundID > s.roundID:
		// Cycle rolled over: the round we were watching settles now. Rounds
		// between it and the current one (if the process stalled that long)
		// were never open for bets here and are left to other settlers.
		s.settle(ctx, s.roundID)
		s.roundID = state.RoundID
		s.phase = state.Phase
		if s.phase == PhaseBetting {
			s.announceRound(state)
		} else {
			s.beginSpin(state)
		}
	}
}

func (s *Scheduler) announceRound(state ClockState) {
	log.Printf("[SCHED] room %s round %d betting open (%.1fs)", s.room, state.RoundID, state.Remaining)
	s.emit(Event{Type: EventRoundStarted, RoundID: state.RoundID, Phase: PhaseBetting})
	s.broadcast(WSMessage{Type: string(EventRoundStarted), Data: RoundStartedMessage{
		RoundID:   state.RoundID,
		DisplayID: state.DisplayID,
		TimeLeft:  state.Remaining,
	}})
}

// beginSpin fixes the winner the instant the betting window closes, before
// any reveal animation runs. Reveal-time jitter can therefore never leak
// into the outcome.
func (s *Scheduler) beginSpin(state ClockState) {
	outcome, err := s.gen.OutcomeFor(state.RoundID)
	if err != nil {
		log.Printf("[SCHED] room %s outcome for round %d: %v", s.room, state.RoundID, err)
		return
	}
	log.Printf("[SCHED] room %s round %d spinning: %s %dx", s.room, state.RoundID, outcome.Category, outcome.Multiplier)
	s.emit(Event{Type: EventSpinStarted, RoundID: state.RoundID, Phase: PhaseSpinning, Outcome: &outcome})
	s.broadcast(WSMessage{Type: string(EventSpinStarted), Data: SpinStartedMessage{
		RoundID:  state.RoundID,
		Outcome:  outcome,
		TimeLeft: state.Remaining,
	}})
}

func (s *Scheduler) settle(ctx context.Context, roundID int64) {
	outcome, err := s.gen.OutcomeFor(roundID)
	if err != nil {
		log.Printf("[SCHED] room %s cannot settle round %d: %v", s.room, roundID, err)
		return
	}
	settlement, err := s.ledger.Settle(ctx, outcome)
	if err != nil {
		log.Printf("[SCHED] room %s settlement for round %d: %v", s.room, roundID, err)
		return
	}
	if settlement.AlreadySettled {
		log.Printf("[SCHED] room %s round %d already settled elsewhere", s.room, roundID)
		return
	}
	log.Printf("[SCHED] room %s round %d settled: %s %dx, paid %.2f of %.2f wagered",
		s.room, roundID, outcome.Category, outcome.Multiplier, settlement.TotalPaid, settlement.TotalWagered)
	s.emit(Event{Type: EventRoundSettled, RoundID: roundID, Phase: PhaseSpinning, Outcome: &outcome, Settlement: settlement})
	s.broadcast(WSMessage{Type: string(EventRoundSettled), Data: RoundSettledMessage{
		RoundID:      roundID,
		Outcome:      outcome,
		TopWinners:   settlement.TopWinners,
		TotalWagered: settlement.TotalWagered,
		TotalPaid:    settlement.TotalPaid,
	}})
}

func (s *Scheduler) emit(e Event) {
	select {
	case s.events <- e:
	default:
		log.Printf("[SCHED] room %s event channel full, dropping %s", s.room, e.Type)
	}
}

func (s *Scheduler) broadcast(msg WSMessage) {
	if s.hub != nil {
		s.hub.Broadcast(msg)
	}
}

// String identifies the scheduler in logs and health output.
func (s *Scheduler) String() string {
	return fmt.Sprintf("scheduler(room=%s)", s.room)
}
