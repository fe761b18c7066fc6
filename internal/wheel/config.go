package wheel

import (
	"fmt"
	"time"
)

const (
	DefaultBettingDuration  = 20 * time.Second
	DefaultSpinDuration     = 4 * time.Second
	DefaultMaxBetCategories = 4
	DefaultTopWinners       = 3
	MinBetAmount            = 1.0
	MaxBetAmount            = 10000.0
)

// Config is the external configuration surface of the round engine. Changing
// it tunes the game, never the algorithm.
type Config struct {
	BettingDuration  time.Duration
	SpinDuration     time.Duration
	MaxBetCategories int
	TopWinners       int
	MinBet           float64
	MaxBet           float64
	PityTable        PityTable
}

func DefaultConfig() Config {
	return Config{
		BettingDuration:  DefaultBettingDuration,
		SpinDuration:     DefaultSpinDuration,
		MaxBetCategories: DefaultMaxBetCategories,
		TopWinners:       DefaultTopWinners,
		MinBet:           MinBetAmount,
		MaxBet:           MaxBetAmount,
		PityTable:        DefaultPityTable,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	if c.BettingDuration <= 0 || c.SpinDuration <= 0 {
		return fmt.Errorf("betting and spin durations must be positive (got %v / %v)",
			c.BettingDuration, c.SpinDuration)
	}
	if c.MaxBetCategories < 1 {
		return fmt.Errorf("max bet categories must be at least 1 (got %d)", c.MaxBetCategories)
	}
	if c.TopWinners < 1 {
		return fmt.Errorf("top winners size must be at least 1 (got %d)", c.TopWinners)
	}
	if c.MinBet <= 0 || c.MaxBet < c.MinBet {
		return fmt.Errorf("bad bet limits: min %.2f max %.2f", c.MinBet, c.MaxBet)
	}
	return nil
}

// Warnings reports tolerated misconfigurations: the round loop survives them
// via runtime fallbacks, but an operator should see them at startup.
func (c Config) Warnings() []string {
	var warns []string
	for _, m := range Multipliers {
		if len(CategoriesWithMultiplier(m)) == 0 {
			warns = append(warns, fmt.Sprintf("multiplier bucket %dx has no categories; draws fall back to %dx", m, BaseMultiplier))
		}
	}
	for level := 0; level <= MaxPityLevel; level++ {
		row := c.PityTable.Row(level)
		sum := 0.0
		for i, p := range row {
			if p < 0 {
				warns = append(warns, fmt.Sprintf("pity level %d has negative probability for %dx", level, Multipliers[i]))
			}
			sum += p
		}
		if sum > 1.0+1e-9 {
			warns = append(warns, fmt.Sprintf("pity level %d probabilities sum to %.4f (> 1)", level, sum))
		}
	}
	for level := 1; level <= MaxPityLevel; level++ {
		if c.PityTable.BigWinMass(level) < c.PityTable.BigWinMass(level-1) {
			warns = append(warns, fmt.Sprintf("pity level %d lowers big-win probability below level %d", level, level-1))
		}
	}
	return warns
}
