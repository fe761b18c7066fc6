package wheel

import (
	"time"
)

// Bet is one bettor's wagers against a single round, keyed by category.
// The bettor owns it exclusively while the round is open; it freezes the
// moment the round enters the spinning phase.
type Bet struct {
	BettorID string               `json:"bettor_id"`
	RoundID  int64                `json:"round_id"`
	Amounts  map[Category]float64 `json:"amounts"`
	Seq      int64                `json:"seq"` // submission order within the round
	PlacedAt time.Time            `json:"placed_at"`
}

// Total is the sum wagered across all categories.
func (b *Bet) Total() float64 {
	total := 0.0
	for _, amount := range b.Amounts {
		total += amount
	}
	return total
}

// AmountOn returns the wager against one category, zero if unfunded.
func (b *Bet) AmountOn(c Category) float64 {
	return b.Amounts[c]
}

// PayoutResult is what one bettor gets out of a settled round. It is derived
// data: recomputable at any time from the bet set and the round's outcome.
type PayoutResult struct {
	BettorID      string  `json:"bettor_id"`
	AmountWon     float64 `json:"amount_won"`
	AmountWagered float64 `json:"amount_wagered"`
}

// RankedWinner pairs a payout with the bettor's display profile for the
// top-winners board.
type RankedWinner struct {
	Rank    int         `json:"rank"`
	Profile UserProfile `json:"profile"`
	PayoutResult
}

// WSMessage is the envelope for every websocket broadcast.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type RoundStartedMessage struct {
	RoundID   int64   `json:"round_id"`
	DisplayID int64   `json:"display_id"`
	TimeLeft  float64 `json:"time_left"`
}

type SpinStartedMessage struct {
	RoundID  int64   `json:"round_id"`
	Outcome  Outcome `json:"outcome"`
	TimeLeft float64 `json:"time_left"`
}

type RoundSettledMessage struct {
	RoundID      int64          `json:"round_id"`
	Outcome      Outcome        `json:"outcome"`
	TopWinners   []RankedWinner `json:"top_winners"`
	TotalWagered float64        `json:"total_wagered"`
	TotalPaid    float64        `json:"total_paid"`
}

type BetPlacedMessage struct {
	BettorID string  `json:"bettor_id"`
	RoundID  int64   `json:"round_id"`
	Amount   float64 `json:"amount"`
	Total    float64 `json:"total"`
}
