package wheel

import (
	"context"
	"time"
)

// The round engine never owns persistence. Bets, history, profiles and
// balances live behind these narrow interfaces; internal/store provides the
// Redis and Postgres implementations, and the in-memory versions below back
// the tests.

// UserProfile is the display identity of a bettor, resolved by the
// UserDirectory for the top-winners board.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// HistoryEntry is one settled round in the recent-history strip.
type HistoryEntry struct {
	RoundID   int64     `json:"round_id"`
	Category  Category  `json:"category"`
	IsBigWin  bool      `json:"is_big_win"`
	SettledAt time.Time `json:"settled_at"`
}

// BetStore holds the open bet set for each round.
type BetStore interface {
	// GetBets returns the bettor's bet for the round, or nil if none exists.
	GetBets(ctx context.Context, bettorID string, roundID int64) (*Bet, error)
	// PutBets replaces the bettor's bet for the round.
	PutBets(ctx context.Context, bettorID string, roundID int64, amounts map[Category]float64) error
	// GetAllBets returns every bet against the round in submission order.
	GetAllBets(ctx context.Context, roundID int64) ([]Bet, error)
}

// HistoryStore records settled rounds for the recent-history display.
type HistoryStore interface {
	AppendHistory(ctx context.Context, roundID int64, winner Category) error
	RecentHistory(ctx context.Context, limit int) ([]HistoryEntry, error)
}

// UserDirectory resolves bettor ids into display profiles.
type UserDirectory interface {
	GetAllUsers(ctx context.Context) ([]UserProfile, error)
}

// BalanceAuthority is the only door to player funds. The engine computes
// deltas; custody rules live on the other side of this interface.
type BalanceAuthority interface {
	AdjustBalance(ctx context.Context, bettorID string, delta float64) (float64, error)
	Balance(ctx context.Context, bettorID string) (float64, error)
}

// SettlementLog guards the at-most-once settlement per round. MarkSettled
// returns false when another settler (or an earlier retry) already claimed
// the round, which makes replayed settlements safe no-ops even across
// server replicas.
type SettlementLog interface {
	MarkSettled(ctx context.Context, roundID int64) (bool, error)
	MarkFailed(ctx context.Context, roundID int64, reason string) error
}
