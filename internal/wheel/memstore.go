package wheel

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// In-memory collaborators. They keep the engine runnable without Redis or
// Postgres and give the tests deterministic, isolated state.

type MemoryBetStore struct {
	mu      sync.Mutex
	bets    map[int64]map[string]*Bet
	nextSeq map[int64]int64
}

func NewMemoryBetStore() *MemoryBetStore {
	return &MemoryBetStore{
		bets:    make(map[int64]map[string]*Bet),
		nextSeq: make(map[int64]int64),
	}
}

func (s *MemoryBetStore) GetBets(_ context.Context, bettorID string, roundID int64) (*Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bet, ok := s.bets[roundID][bettorID]
	if !ok {
		return nil, nil
	}
	copied := *bet
	copied.Amounts = copyAmounts(bet.Amounts)
	return &copied, nil
}

func (s *MemoryBetStore) PutBets(_ context.Context, bettorID string, roundID int64, amounts map[Category]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	round, ok := s.bets[roundID]
	if !ok {
		round = make(map[string]*Bet)
		s.bets[roundID] = round
	}
	if existing, ok := round[bettorID]; ok {
		// Seq is assigned on first submission; merges keep their slot.
		existing.Amounts = copyAmounts(amounts)
		return nil
	}
	s.nextSeq[roundID]++
	round[bettorID] = &Bet{
		BettorID: bettorID,
		RoundID:  roundID,
		Amounts:  copyAmounts(amounts),
		Seq:      s.nextSeq[roundID],
		PlacedAt: time.Now(),
	}
	return nil
}

func (s *MemoryBetStore) GetAllBets(_ context.Context, roundID int64) ([]Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Bet, 0, len(s.bets[roundID]))
	for _, bet := range s.bets[roundID] {
		copied := *bet
		copied.Amounts = copyAmounts(bet.Amounts)
		out = append(out, copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func copyAmounts(in map[Category]float64) map[Category]float64 {
	out := make(map[Category]float64, len(in))
	for c, a := range in {
		out[c] = a
	}
	return out
}

type MemoryHistoryStore struct {
	mu      sync.Mutex
	entries []HistoryEntry
	limit   int
}

func NewMemoryHistoryStore(limit int) *MemoryHistoryStore {
	if limit <= 0 {
		limit = 100
	}
	return &MemoryHistoryStore{limit: limit}
}

func (s *MemoryHistoryStore) AppendHistory(_ context.Context, roundID int64, winner Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]HistoryEntry{{
		RoundID:   roundID,
		Category:  winner,
		IsBigWin:  winner.Multiplier() > BaseMultiplier,
		SettledAt: time.Now(),
	}}, s.entries...)
	if len(s.entries) > s.limit {
		s.entries = s.entries[:s.limit]
	}
	return nil
}

func (s *MemoryHistoryStore) RecentHistory(_ context.Context, limit int) ([]HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]HistoryEntry, limit)
	copy(out, s.entries[:limit])
	return out, nil
}

type MemoryUserDirectory struct {
	mu    sync.RWMutex
	users map[string]UserProfile
}

func NewMemoryUserDirectory() *MemoryUserDirectory {
	return &MemoryUserDirectory{users: make(map[string]UserProfile)}
}

func (d *MemoryUserDirectory) PutUser(profile UserProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[profile.ID] = profile
}

func (d *MemoryUserDirectory) GetAllUsers(_ context.Context) ([]UserProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]UserProfile, 0, len(d.users))
	for _, p := range d.users {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type MemoryBalanceAuthority struct {
	mu       sync.Mutex
	balances map[string]float64
}

func NewMemoryBalanceAuthority() *MemoryBalanceAuthority {
	return &MemoryBalanceAuthority{balances: make(map[string]float64)}
}

func (a *MemoryBalanceAuthority) SetBalance(bettorID string, balance float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[bettorID] = balance
}

func (a *MemoryBalanceAuthority) AdjustBalance(_ context.Context, bettorID string, delta float64) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.balances[bettorID] + delta
	if next < 0 {
		return a.balances[bettorID], fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientBalance, a.balances[bettorID], -delta)
	}
	a.balances[bettorID] = next
	return next, nil
}

func (a *MemoryBalanceAuthority) Balance(_ context.Context, bettorID string) (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balances[bettorID], nil
}

type MemorySettlementLog struct {
	mu      sync.Mutex
	settled map[int64]bool
	failed  map[int64]string
}

func NewMemorySettlementLog() *MemorySettlementLog {
	return &MemorySettlementLog{
		settled: make(map[int64]bool),
		failed:  make(map[int64]string),
	}
}

func (l *MemorySettlementLog) MarkSettled(_ context.Context, roundID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.settled[roundID] {
		return false, nil
	}
	l.settled[roundID] = true
	return true, nil
}

func (l *MemorySettlementLog) MarkFailed(_ context.Context, roundID int64, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failed[roundID] = reason
	return nil
}

// FailedRounds lists rounds whose settlement exhausted retries.
func (l *MemorySettlementLog) FailedRounds() map[int64]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[int64]string, len(l.failed))
	for id, reason := range l.failed {
		out[id] = reason
	}
	return out
}
