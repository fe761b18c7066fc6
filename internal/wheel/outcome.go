package wheel

import (
	"fmt"
	"math/rand"
	"sync"
)

// DisplayIDModulus wraps the true monotonic round id into the 0..999 number
// shown on screen. The forced-event rules key off this display id.
const DisplayIDModulus = 1000

// Outcome is the settled result of one round. It is a pure function of the
// round id: any two processes computing it independently agree bit for bit.
type Outcome struct {
	RoundID    int64    `json:"round_id"`
	Category   Category `json:"category"`
	Multiplier int      `json:"multiplier"`
	IsBigWin   bool     `json:"is_big_win"`
}

// DisplayID is the wrapped round number shown to players.
func (o Outcome) DisplayID() int64 {
	return o.RoundID % DisplayIDModulus
}

// Cache memoizes computed outcomes. Outcomes never change once computed, so
// the cache is append-only; concurrent writers racing on the same round id
// insert identical values.
type Cache interface {
	Get(roundID int64) (Outcome, bool)
	Put(roundID int64, o Outcome)
}

type memoryCache struct {
	mu       sync.RWMutex
	outcomes map[int64]Outcome
}

// NewMemoryCache returns an in-process outcome cache.
func NewMemoryCache() Cache {
	return &memoryCache{outcomes: make(map[int64]Outcome)}
}

func (c *memoryCache) Get(roundID int64) (Outcome, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.outcomes[roundID]
	return o, ok
}

func (c *memoryCache) Put(roundID int64, o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[roundID] = o
}

// Generator produces deterministic round outcomes. Each round draws from a
// pseudo-random sequence seeded with its own round id, so repeated draws
// within one round differ while two evaluations of the same round never do.
// No other state feeds the result; a client knowing only the current time
// can replay the whole outcome history offline.
type Generator struct {
	table PityTable
	cache Cache
}

// NewGenerator builds a generator around an injectable cache; pass nil to
// get a private in-memory one.
func NewGenerator(table PityTable, cache Cache) *Generator {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Generator{table: table, cache: cache}
}

// OutcomeFor returns the outcome of the given round, computing and caching
// any missing predecessors on the way. Negative round ids are a caller bug.
func (g *Generator) OutcomeFor(roundID int64) (Outcome, error) {
	if roundID < 0 {
		return Outcome{}, fmt.Errorf("%w: %d", ErrInvalidRound, roundID)
	}
	return g.resolve(roundID), nil
}

// resolve memoizes one round. The pity scan recurses into predecessors, but
// the recursion is shallow no matter how large the round id is: forced-event
// rounds need no history, and at most 19 consecutive display ids escape both
// forced events, so an ancestry chain always ends within a few dozen rounds.
// Concurrent callers may race on an uncached round; both compute the same
// value, so the race is harmless.
func (g *Generator) resolve(roundID int64) Outcome {
	if o, ok := g.cache.Get(roundID); ok {
		return o
	}
	out := g.compute(roundID)
	g.cache.Put(roundID, out)
	return out
}

func (g *Generator) compute(roundID int64) Outcome {
	rng := rand.New(rand.NewSource(roundID))
	displayID := roundID % DisplayIDModulus

	// Forced events come before the probability model. The every-20 big win
	// is checked first and wins over the every-10 low-tier round.
	if roundID > 0 && displayID > 0 {
		switch {
		case displayID%20 == 0:
			pool := append(CategoriesWithMultiplier(10), CategoriesWithMultiplier(15)...)
			if len(pool) > 0 {
				cat := pool[rng.Intn(len(pool))]
				return Outcome{RoundID: roundID, Category: cat, Multiplier: cat.Multiplier(), IsBigWin: true}
			}
		case displayID%10 == 0:
			pool := CategoriesWithMultiplier(BaseMultiplier)
			if len(pool) > 0 {
				cat := pool[rng.Intn(len(pool))]
				return Outcome{RoundID: roundID, Category: cat, Multiplier: BaseMultiplier, IsBigWin: false}
			}
		}
	}

	row := g.table.Row(g.pityLevel(roundID))

	// Walk the tiers in fixed order, subtracting probability mass from the
	// draw. A draw that survives every tier (unassigned remainder, or a
	// float edge case) lands on the base tier.
	draw := rng.Float64()
	multiplier := BaseMultiplier
	for i, m := range Multipliers {
		draw -= row[i]
		if draw < 0 {
			multiplier = m
			break
		}
	}

	pool := CategoriesWithMultiplier(multiplier)
	if len(pool) == 0 {
		multiplier = BaseMultiplier
		pool = CategoriesWithMultiplier(BaseMultiplier)
	}
	if len(pool) == 0 {
		// Nothing configured at all; pin the first category so the round
		// loop keeps turning.
		return Outcome{RoundID: roundID, Category: Category(0), Multiplier: BaseMultiplier, IsBigWin: false}
	}

	cat := pool[rng.Intn(len(pool))]
	return Outcome{RoundID: roundID, Category: cat, Multiplier: multiplier, IsBigWin: multiplier > BaseMultiplier}
}

// pityLevel counts consecutive non-big-win outcomes immediately preceding
// roundID, capped at MaxPityLevel. Looking back further cannot change the
// clamped level, so the scan is bounded.
func (g *Generator) pityLevel(roundID int64) int {
	level := 0
	for i := int64(1); i <= MaxPityLevel && roundID-i >= 0; i++ {
		if g.resolve(roundID - i).IsBigWin {
			break
		}
		level++
	}
	return level
}
