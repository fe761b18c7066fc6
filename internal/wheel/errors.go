package wheel

import "errors"

var (
	// ErrInvalidRound flags a negative round index. This is a contract
	// violation by the caller, never silently clamped.
	ErrInvalidRound = errors.New("invalid round id")

	// ErrBettingClosed rejects wagers once a round has left the betting phase.
	ErrBettingClosed = errors.New("betting is closed for this round")

	// ErrInsufficientBalance rejects wagers the bettor cannot cover.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrCategoryLimitExceeded rejects a bet funding more distinct
	// categories than the configured maximum.
	ErrCategoryLimitExceeded = errors.New("too many bet categories")

	// ErrSettlementFailed marks a round whose winners could not be credited
	// after exhausting retries. It must reach an operator, never be dropped.
	ErrSettlementFailed = errors.New("settlement failed")
)
