package wheel

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"
)

const (
	settleRetries    = 3
	settleRetryDelay = 200 * time.Millisecond
)

// Settlement is the full result of closing out one round.
type Settlement struct {
	RoundID        int64          `json:"round_id"`
	Outcome        Outcome        `json:"outcome"`
	Results        []PayoutResult `json:"results"`
	TopWinners     []RankedWinner `json:"top_winners"`
	TotalWagered   float64        `json:"total_wagered"`
	TotalPaid      float64        `json:"total_paid"`
	AlreadySettled bool           `json:"already_settled"`
}

// Ledger aggregates a round's bets, computes payouts from the winning
// category and credits winners exactly once.
type Ledger struct {
	cfg     Config
	bets    BetStore
	history HistoryStore
	users   UserDirectory
	balance BalanceAuthority
	log     SettlementLog
}

func NewLedger(cfg Config, bets BetStore, history HistoryStore, users UserDirectory, balance BalanceAuthority, settleLog SettlementLog) *Ledger {
	return &Ledger{
		cfg:     cfg,
		bets:    bets,
		history: history,
		users:   users,
		balance: balance,
		log:     settleLog,
	}
}

// Payouts computes every bettor's result against an outcome. Pure: callable
// any number of times with the same inputs. Input order (submission order)
// is preserved.
func Payouts(outcome Outcome, bets []Bet) []PayoutResult {
	results := make([]PayoutResult, 0, len(bets))
	for _, bet := range bets {
		results = append(results, PayoutResult{
			BettorID:      bet.BettorID,
			AmountWon:     bet.AmountOn(outcome.Category) * float64(outcome.Multiplier),
			AmountWagered: bet.Total(),
		})
	}
	return results
}

// TopWinners ranks the n largest payouts, descending. Ties keep submission
// order (the sort is stable over the submission-ordered input). Bettors who
// won nothing never make the board.
func TopWinners(results []PayoutResult, n int) []PayoutResult {
	winners := make([]PayoutResult, 0, len(results))
	for _, r := range results {
		if r.AmountWon > 0 {
			winners = append(winners, r)
		}
	}
	sort.SliceStable(winners, func(i, j int) bool { return winners[i].AmountWon > winners[j].AmountWon })
	if n > 0 && len(winners) > n {
		winners = winners[:n]
	}
	return winners
}

// Settle finalizes a round: computes payouts, credits winners and appends
// the outcome to history. It runs at most once per round id — concurrent
// settlers (e.g. server replicas observing the same phase flip) race on the
// settlement log and all but one see a no-op.
func (l *Ledger) Settle(ctx context.Context, outcome Outcome) (*Settlement, error) {
	first, err := l.log.MarkSettled(ctx, outcome.RoundID)
	if err != nil {
		return nil, fmt.Errorf("claim settlement for round %d: %w", outcome.RoundID, err)
	}
	if !first {
		return &Settlement{RoundID: outcome.RoundID, Outcome: outcome, AlreadySettled: true}, nil
	}

	bets, err := l.bets.GetAllBets(ctx, outcome.RoundID)
	if err != nil {
		l.markFailed(ctx, outcome.RoundID, fmt.Sprintf("load bets: %v", err))
		return nil, fmt.Errorf("%w: load bets for round %d: %v", ErrSettlementFailed, outcome.RoundID, err)
	}

	results := Payouts(outcome, bets)
	settlement := &Settlement{
		RoundID: outcome.RoundID,
		Outcome: outcome,
		Results: results,
	}
	for _, r := range results {
		settlement.TotalWagered += r.AmountWagered
		settlement.TotalPaid += r.AmountWon
	}

	// Credit each winner. Individual calls are retried; a credit that still
	// fails leaves the round marked failed for an operator, never dropped.
	for _, r := range results {
		if r.AmountWon <= 0 {
			continue
		}
		if err := l.creditWithRetry(ctx, r.BettorID, r.AmountWon); err != nil {
			l.markFailed(ctx, outcome.RoundID, fmt.Sprintf("credit %s: %v", r.BettorID, err))
			return nil, fmt.Errorf("%w: round %d, bettor %s: %v", ErrSettlementFailed, outcome.RoundID, r.BettorID, err)
		}
	}

	if err := l.appendHistoryWithRetry(ctx, outcome); err != nil {
		// Winners are paid; a lost history row degrades the display strip
		// but is still surfaced as a failed round.
		l.markFailed(ctx, outcome.RoundID, fmt.Sprintf("append history: %v", err))
		log.Printf("[LEDGER] history append failed for round %d: %v", outcome.RoundID, err)
	}

	settlement.TopWinners = l.rankWinners(ctx, results)
	return settlement, nil
}

func (l *Ledger) creditWithRetry(ctx context.Context, bettorID string, amount float64) error {
	var err error
	for attempt := 1; attempt <= settleRetries; attempt++ {
		if _, err = l.balance.AdjustBalance(ctx, bettorID, amount); err == nil {
			return nil
		}
		log.Printf("[LEDGER] credit attempt %d/%d for %s failed: %v", attempt, settleRetries, bettorID, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settleRetryDelay):
		}
	}
	return err
}

func (l *Ledger) appendHistoryWithRetry(ctx context.Context, outcome Outcome) error {
	var err error
	for attempt := 1; attempt <= settleRetries; attempt++ {
		if err = l.history.AppendHistory(ctx, outcome.RoundID, outcome.Category); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settleRetryDelay):
		}
	}
	return err
}

func (l *Ledger) markFailed(ctx context.Context, roundID int64, reason string) {
	if err := l.log.MarkFailed(ctx, roundID, reason); err != nil {
		log.Printf("[LEDGER] could not record failed settlement for round %d: %v", roundID, err)
	}
}

// rankWinners attaches display profiles to the top payouts. A directory
// outage costs avatars, not money, so it only logs.
func (l *Ledger) rankWinners(ctx context.Context, results []PayoutResult) []RankedWinner {
	top := TopWinners(results, l.cfg.TopWinners)
	profiles := make(map[string]UserProfile)
	if l.users != nil {
		users, err := l.users.GetAllUsers(ctx)
		if err != nil {
			log.Printf("[LEDGER] resolve winner profiles: %v", err)
		}
		for _, u := range users {
			profiles[u.ID] = u
		}
	}
	ranked := make([]RankedWinner, 0, len(top))
	for i, r := range top {
		profile, ok := profiles[r.BettorID]
		if !ok {
			profile = UserProfile{ID: r.BettorID, DisplayName: r.BettorID}
		}
		ranked = append(ranked, RankedWinner{Rank: i + 1, Profile: profile, PayoutResult: r})
	}
	return ranked
}
