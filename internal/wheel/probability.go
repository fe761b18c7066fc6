package wheel

// MaxPityLevel caps the "rounds since last big win" counter. Rows above it
// reuse the last row, so the backward history scan never needs to look
// further than MaxPityLevel rounds.
const MaxPityLevel = 5

// PityTable maps a pity level (rounds since the last big win, clamped at
// MaxPityLevel) to selection probabilities for each payout tier, indexed in
// Multipliers order. Rows may sum to slightly less than 1; the unassigned
// remainder falls through to the base tier during the draw.
type PityTable [MaxPityLevel + 1][len(Multipliers)]float64

// DefaultPityTable shifts probability mass toward the higher tiers as a
// drought persists.
var DefaultPityTable = PityTable{
	//        5x    10x   15x   25x   45x
	{0.80, 0.10, 0.06, 0.03, 0.01}, // level 0: fresh after a big win
	{0.74, 0.13, 0.08, 0.04, 0.01},
	{0.66, 0.17, 0.10, 0.05, 0.02},
	{0.56, 0.21, 0.13, 0.07, 0.03},
	{0.44, 0.26, 0.17, 0.09, 0.04},
	{0.30, 0.32, 0.21, 0.11, 0.06}, // level 5+: drought
}

// Row returns the distribution for a pity level, clamping out-of-range input.
func (t *PityTable) Row(level int) [len(Multipliers)]float64 {
	if level < 0 {
		level = 0
	}
	if level > MaxPityLevel {
		level = MaxPityLevel
	}
	return t[level]
}

// BigWinMass is the probability assigned to multipliers above the base tier
// at a given level. The default table keeps it monotonically non-decreasing.
func (t *PityTable) BigWinMass(level int) float64 {
	row := t.Row(level)
	mass := 0.0
	for i, m := range Multipliers {
		if m > BaseMultiplier {
			mass += row[i]
		}
	}
	return mass
}
