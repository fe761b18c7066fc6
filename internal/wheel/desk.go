package wheel

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Desk accepts wagers against the currently open round. Submissions from
// different bettors are independent; submissions from the same bettor (e.g.
// two devices) serialize on a per-bettor lock so the read-merge-write never
// loses an update.
type Desk struct {
	cfg     Config
	clock   *Clock
	bets    BetStore
	balance BalanceAuthority
	hub     *Hub
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewDesk(cfg Config, clock *Clock, bets BetStore, balance BalanceAuthority, hub *Hub) *Desk {
	return &Desk{
		cfg:     cfg,
		clock:   clock,
		bets:    bets,
		balance: balance,
		hub:     hub,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// PlaceBet merges the given amounts into the bettor's bet for the open
// round and debits the total. The round id is taken from the clock at entry;
// once the phase has flipped to spinning the wager is rejected, not queued.
func (d *Desk) PlaceBet(ctx context.Context, bettorID string, amounts map[Category]float64) (*Bet, error) {
	if bettorID == "" {
		return nil, fmt.Errorf("bettor id is required")
	}
	total, err := validateAmounts(amounts, d.cfg)
	if err != nil {
		return nil, err
	}

	state := d.clock.Snapshot(d.now())
	if state.Phase != PhaseBetting {
		return nil, fmt.Errorf("%w: round %d is spinning", ErrBettingClosed, state.RoundID)
	}
	roundID := state.RoundID

	unlock := d.lockBettor(bettorID)
	defer unlock()

	existing, err := d.bets.GetBets(ctx, bettorID, roundID)
	if err != nil {
		return nil, fmt.Errorf("load existing bet: %w", err)
	}
	merged := make(map[Category]float64)
	if existing != nil {
		for c, a := range existing.Amounts {
			merged[c] = a
		}
	}
	for c, a := range amounts {
		merged[c] += a
	}
	if len(merged) > d.cfg.MaxBetCategories {
		return nil, fmt.Errorf("%w: %d funded, limit %d", ErrCategoryLimitExceeded, len(merged), d.cfg.MaxBetCategories)
	}

	if _, err := d.balance.AdjustBalance(ctx, bettorID, -total); err != nil {
		return nil, err
	}
	if err := d.bets.PutBets(ctx, bettorID, roundID, merged); err != nil {
		// Give the stake back; the bet was never recorded.
		if _, refundErr := d.balance.AdjustBalance(ctx, bettorID, total); refundErr != nil {
			log.Printf("[DESK] refund after failed bet write for %s: %v", bettorID, refundErr)
		}
		return nil, fmt.Errorf("store bet: %w", err)
	}

	bet, err := d.bets.GetBets(ctx, bettorID, roundID)
	if err != nil || bet == nil {
		bet = &Bet{BettorID: bettorID, RoundID: roundID, Amounts: merged}
	}

	if d.hub != nil {
		d.hub.Broadcast(WSMessage{
			Type: "bet_placed",
			Data: BetPlacedMessage{
				BettorID: bettorID,
				RoundID:  roundID,
				Amount:   total,
				Total:    bet.Total(),
			},
		})
	}
	log.Printf("[DESK] %s wagered %.2f on round %d", bettorID, total, roundID)
	return bet, nil
}

// CurrentBet returns the bettor's bet for the round open right now.
func (d *Desk) CurrentBet(ctx context.Context, bettorID string) (*Bet, error) {
	state := d.clock.Snapshot(d.now())
	return d.bets.GetBets(ctx, bettorID, state.RoundID)
}

func (d *Desk) lockBettor(bettorID string) func() {
	d.mu.Lock()
	lock, ok := d.locks[bettorID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[bettorID] = lock
	}
	d.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func validateAmounts(amounts map[Category]float64, cfg Config) (float64, error) {
	if len(amounts) == 0 {
		return 0, fmt.Errorf("no amounts given")
	}
	total := 0.0
	for c, a := range amounts {
		if !c.Valid() {
			return 0, fmt.Errorf("invalid category %d", int(c))
		}
		if a < 0 {
			return 0, fmt.Errorf("negative amount %.2f on %s", a, c)
		}
		total += a
	}
	if total < cfg.MinBet || total > cfg.MaxBet {
		return 0, fmt.Errorf("bet total must be between %.2f and %.2f", cfg.MinBet, cfg.MaxBet)
	}
	return total, nil
}
