package wheel

import "testing"

func TestPityTable_RowClamping(t *testing.T) {
	table := DefaultPityTable

	if got := table.Row(-3); got != table[0] {
		t.Errorf("Row(-3) = %v, want level 0 row", got)
	}
	if got := table.Row(MaxPityLevel + 10); got != table[MaxPityLevel] {
		t.Errorf("Row(%d) = %v, want level %d row", MaxPityLevel+10, got, MaxPityLevel)
	}
}

func TestDefaultPityTable_RowsSumWithinOne(t *testing.T) {
	for level := 0; level <= MaxPityLevel; level++ {
		sum := 0.0
		for _, p := range DefaultPityTable.Row(level) {
			if p < 0 {
				t.Errorf("level %d has negative probability %v", level, p)
			}
			sum += p
		}
		if sum > 1.0+1e-9 {
			t.Errorf("level %d probabilities sum to %v", level, sum)
		}
	}
}

func TestDefaultPityTable_BigWinMassMonotone(t *testing.T) {
	// A longer drought must never make a big win less likely.
	for level := 1; level <= MaxPityLevel; level++ {
		prev := DefaultPityTable.BigWinMass(level - 1)
		cur := DefaultPityTable.BigWinMass(level)
		if cur < prev {
			t.Errorf("big-win mass fell from %.4f (level %d) to %.4f (level %d)", prev, level-1, cur, level)
		}
	}
}

func TestPityTable_BigWinMass(t *testing.T) {
	table := PityTable{}
	table[0] = [len(Multipliers)]float64{0.5, 0.2, 0.1, 0.1, 0.1}

	if got := table.BigWinMass(0); got != 0.5 {
		t.Errorf("BigWinMass(0) = %v, want 0.5", got)
	}
}
