package wheel

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type ledgerFixture struct {
	ledger  *Ledger
	bets    *MemoryBetStore
	history *MemoryHistoryStore
	users   *MemoryUserDirectory
	balance *MemoryBalanceAuthority
	log     *MemorySettlementLog
}

func newLedgerFixture() *ledgerFixture {
	f := &ledgerFixture{
		bets:    NewMemoryBetStore(),
		history: NewMemoryHistoryStore(100),
		users:   NewMemoryUserDirectory(),
		balance: NewMemoryBalanceAuthority(),
		log:     NewMemorySettlementLog(),
	}
	f.ledger = NewLedger(DefaultConfig(), f.bets, f.history, f.users, f.balance, f.log)
	return f
}

func TestPayouts(t *testing.T) {
	outcome := Outcome{RoundID: 42, Category: CategoryWatermelon, Multiplier: 10, IsBigWin: true}
	bets := []Bet{
		{BettorID: "alice", RoundID: 42, Amounts: map[Category]float64{CategoryWatermelon: 100}},
		{BettorID: "bob", RoundID: 42, Amounts: map[Category]float64{CategoryApple: 50}},
		{BettorID: "carol", RoundID: 42, Amounts: map[Category]float64{CategoryWatermelon: 20, CategoryApple: 30}},
	}

	results := Payouts(outcome, bets)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].BettorID != "alice" || results[0].AmountWon != 1000 || results[0].AmountWagered != 100 {
		t.Errorf("alice: %+v, want 1000 won on 100 wagered", results[0])
	}
	if results[1].AmountWon != 0 {
		t.Errorf("bob won %.2f, want 0", results[1].AmountWon)
	}
	if results[2].AmountWon != 200 || results[2].AmountWagered != 50 {
		t.Errorf("carol: %+v, want 200 won on 50 wagered", results[2])
	}
}

func TestTopWinners(t *testing.T) {
	results := []PayoutResult{
		{BettorID: "a", AmountWon: 50},
		{BettorID: "b", AmountWon: 0},
		{BettorID: "c", AmountWon: 500},
		{BettorID: "d", AmountWon: 50},
		{BettorID: "e", AmountWon: 120},
	}

	t.Run("ranks descending and drops losers", func(t *testing.T) {
		top := TopWinners(results, 3)
		want := []string{"c", "e", "a"}
		if len(top) != 3 {
			t.Fatalf("got %d winners, want 3", len(top))
		}
		for i, id := range want {
			if top[i].BettorID != id {
				t.Errorf("rank %d = %s, want %s", i+1, top[i].BettorID, id)
			}
		}
	})

	t.Run("ties keep submission order", func(t *testing.T) {
		top := TopWinners(results, 10)
		// a and d tie at 50; a came first.
		if top[2].BettorID != "a" || top[3].BettorID != "d" {
			t.Errorf("tie broke submission order: %s before %s", top[2].BettorID, top[3].BettorID)
		}
	})

	t.Run("fewer winners than slots", func(t *testing.T) {
		top := TopWinners(results[:2], 3)
		if len(top) != 1 {
			t.Errorf("got %d winners, want 1", len(top))
		}
	})
}

func TestSettle_CreditsWinners(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	f.balance.SetBalance("alice", 0)
	f.balance.SetBalance("bob", 0)
	f.bets.PutBets(ctx, "alice", 7, map[Category]float64{CategoryCherry: 100})
	f.bets.PutBets(ctx, "bob", 7, map[Category]float64{CategoryApple: 40})
	f.users.PutUser(UserProfile{ID: "alice", DisplayName: "Alice"})

	outcome := Outcome{RoundID: 7, Category: CategoryCherry, Multiplier: 25, IsBigWin: true}
	settlement, err := f.ledger.Settle(ctx, outcome)
	if err != nil {
		t.Fatalf("Settle err: %v", err)
	}
	if settlement.AlreadySettled {
		t.Fatal("first settlement reported AlreadySettled")
	}
	if settlement.TotalWagered != 140 || settlement.TotalPaid != 2500 {
		t.Errorf("totals = %.2f wagered, %.2f paid; want 140 / 2500", settlement.TotalWagered, settlement.TotalPaid)
	}

	if got, _ := f.balance.Balance(ctx, "alice"); got != 2500 {
		t.Errorf("alice balance = %.2f, want 2500", got)
	}
	if got, _ := f.balance.Balance(ctx, "bob"); got != 0 {
		t.Errorf("bob balance = %.2f, want 0", got)
	}

	if len(settlement.TopWinners) != 1 {
		t.Fatalf("got %d top winners, want 1", len(settlement.TopWinners))
	}
	winner := settlement.TopWinners[0]
	if winner.Rank != 1 || winner.Profile.DisplayName != "Alice" || winner.AmountWon != 2500 {
		t.Errorf("top winner = %+v", winner)
	}

	history, _ := f.history.RecentHistory(ctx, 10)
	if len(history) != 1 || history[0].RoundID != 7 || history[0].Category != CategoryCherry {
		t.Errorf("history = %+v, want round 7 cherry", history)
	}
}

func TestSettle_Idempotent(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	f.bets.PutBets(ctx, "alice", 9, map[Category]float64{CategoryMango: 10})
	outcome := Outcome{RoundID: 9, Category: CategoryMango, Multiplier: 45, IsBigWin: true}

	if _, err := f.ledger.Settle(ctx, outcome); err != nil {
		t.Fatalf("first Settle err: %v", err)
	}
	after, _ := f.balance.Balance(ctx, "alice")

	second, err := f.ledger.Settle(ctx, outcome)
	if err != nil {
		t.Fatalf("second Settle err: %v", err)
	}
	if !second.AlreadySettled {
		t.Error("second settlement did not report AlreadySettled")
	}
	if got, _ := f.balance.Balance(ctx, "alice"); got != after {
		t.Errorf("balance changed on repeat settlement: %.2f then %.2f", after, got)
	}
}

func TestSettle_ConcurrentSettlersCreditOnce(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	f.bets.PutBets(ctx, "alice", 11, map[Category]float64{CategoryStrawberry: 10})
	outcome := Outcome{RoundID: 11, Category: CategoryStrawberry, Multiplier: 15, IsBigWin: true}

	done := make(chan *Settlement, 4)
	for i := 0; i < 4; i++ {
		go func() {
			s, err := f.ledger.Settle(ctx, outcome)
			if err != nil {
				t.Errorf("Settle err: %v", err)
			}
			done <- s
		}()
	}
	settledCount := 0
	for i := 0; i < 4; i++ {
		if s := <-done; s != nil && !s.AlreadySettled {
			settledCount++
		}
	}
	if settledCount != 1 {
		t.Errorf("%d settlers performed the settlement, want exactly 1", settledCount)
	}
	if got, _ := f.balance.Balance(ctx, "alice"); got != 150 {
		t.Errorf("alice balance = %.2f, want 150 (credited once)", got)
	}
}

type failingAuthority struct{}

func (failingAuthority) AdjustBalance(_ context.Context, _ string, _ float64) (float64, error) {
	return 0, fmt.Errorf("wallet unavailable")
}

func (failingAuthority) Balance(_ context.Context, _ string) (float64, error) {
	return 0, fmt.Errorf("wallet unavailable")
}

func TestSettle_FailureIsSurfaced(t *testing.T) {
	f := newLedgerFixture()
	f.ledger = NewLedger(DefaultConfig(), f.bets, f.history, f.users, failingAuthority{}, f.log)
	ctx := context.Background()

	f.bets.PutBets(ctx, "alice", 13, map[Category]float64{CategoryGrape: 10})
	outcome := Outcome{RoundID: 13, Category: CategoryGrape, Multiplier: 5}

	_, err := f.ledger.Settle(ctx, outcome)
	if !errors.Is(err, ErrSettlementFailed) {
		t.Fatalf("Settle err = %v, want ErrSettlementFailed", err)
	}
	if _, ok := f.log.FailedRounds()[13]; !ok {
		t.Error("failed settlement was not recorded for operators")
	}
}

func TestSettle_NoBetsRound(t *testing.T) {
	f := newLedgerFixture()
	ctx := context.Background()

	outcome := Outcome{RoundID: 15, Category: CategoryApple, Multiplier: 5}
	settlement, err := f.ledger.Settle(ctx, outcome)
	if err != nil {
		t.Fatalf("Settle err: %v", err)
	}
	if settlement.TotalWagered != 0 || settlement.TotalPaid != 0 || len(settlement.TopWinners) != 0 {
		t.Errorf("empty round produced activity: %+v", settlement)
	}
	history, _ := f.history.RecentHistory(ctx, 10)
	if len(history) != 1 {
		t.Errorf("empty round should still append history, got %d entries", len(history))
	}
}
