package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"fruitwheel/internal/wheel"
)

const (
	betTTL       = 10 * time.Minute
	settledTTL   = 24 * time.Hour
	historyLimit = 100
)

// RedisStore implements every collaborator interface the round engine
// consumes, on Redis. Keys are namespaced per room so independent rooms
// never touch each other's state.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, room string) *RedisStore {
	return &RedisStore{client: client, prefix: "wheel:" + room}
}

func (s *RedisStore) betsKey(roundID int64) string {
	return fmt.Sprintf("%s:bets:%d", s.prefix, roundID)
}

func (s *RedisStore) seqKey(roundID int64) string {
	return fmt.Sprintf("%s:betseq:%d", s.prefix, roundID)
}

func (s *RedisStore) balanceKey(bettorID string) string {
	return s.prefix + ":balance:" + bettorID
}

// --- wheel.BetStore ---

type storedBet struct {
	Amounts  map[wheel.Category]float64 `json:"amounts"`
	Seq      int64                      `json:"seq"`
	PlacedAt time.Time                  `json:"placed_at"`
}

func (s *RedisStore) GetBets(ctx context.Context, bettorID string, roundID int64) (*wheel.Bet, error) {
	raw, err := s.client.HGet(ctx, s.betsKey(roundID), bettorID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bet: %w", err)
	}
	var sb storedBet
	if err := json.Unmarshal([]byte(raw), &sb); err != nil {
		return nil, fmt.Errorf("decode bet: %w", err)
	}
	return &wheel.Bet{
		BettorID: bettorID,
		RoundID:  roundID,
		Amounts:  sb.Amounts,
		Seq:      sb.Seq,
		PlacedAt: sb.PlacedAt,
	}, nil
}

func (s *RedisStore) PutBets(ctx context.Context, bettorID string, roundID int64, amounts map[wheel.Category]float64) error {
	key := s.betsKey(roundID)

	sb := storedBet{Amounts: amounts, PlacedAt: time.Now()}
	if existing, err := s.GetBets(ctx, bettorID, roundID); err != nil {
		return err
	} else if existing != nil {
		sb.Seq = existing.Seq
		sb.PlacedAt = existing.PlacedAt
	} else {
		seq, err := s.client.Incr(ctx, s.seqKey(roundID)).Result()
		if err != nil {
			return fmt.Errorf("assign bet seq: %w", err)
		}
		sb.Seq = seq
	}

	data, err := json.Marshal(sb)
	if err != nil {
		return fmt.Errorf("encode bet: %w", err)
	}
	if err := s.client.HSet(ctx, key, bettorID, data).Err(); err != nil {
		return fmt.Errorf("store bet: %w", err)
	}
	s.client.Expire(ctx, key, betTTL)
	s.client.Expire(ctx, s.seqKey(roundID), betTTL)
	return nil
}

func (s *RedisStore) GetAllBets(ctx context.Context, roundID int64) ([]wheel.Bet, error) {
	raw, err := s.client.HGetAll(ctx, s.betsKey(roundID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load bets: %w", err)
	}
	bets := make([]wheel.Bet, 0, len(raw))
	for bettorID, payload := range raw {
		var sb storedBet
		if json.Unmarshal([]byte(payload), &sb) != nil {
			continue
		}
		bets = append(bets, wheel.Bet{
			BettorID: bettorID,
			RoundID:  roundID,
			Amounts:  sb.Amounts,
			Seq:      sb.Seq,
			PlacedAt: sb.PlacedAt,
		})
	}
	sort.Slice(bets, func(i, j int) bool { return bets[i].Seq < bets[j].Seq })
	return bets, nil
}

// --- wheel.BalanceAuthority ---

func (s *RedisStore) AdjustBalance(ctx context.Context, bettorID string, delta float64) (float64, error) {
	key := s.balanceKey(bettorID)
	if delta < 0 {
		balance, err := s.client.Get(ctx, key).Float64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("read balance: %w", err)
		}
		if balance < -delta {
			return balance, fmt.Errorf("%w: have %.2f, need %.2f", wheel.ErrInsufficientBalance, balance, -delta)
		}
	}
	next, err := s.client.IncrByFloat(ctx, key, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("adjust balance: %w", err)
	}
	if next < 0 {
		// Concurrent debit slipped past the pre-check; undo it.
		s.client.IncrByFloat(ctx, key, -delta)
		return next - delta, fmt.Errorf("%w: concurrent debit", wheel.ErrInsufficientBalance)
	}
	return next, nil
}

func (s *RedisStore) Balance(ctx context.Context, bettorID string) (float64, error) {
	balance, err := s.client.Get(ctx, s.balanceKey(bettorID)).Float64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return balance, nil
}

// SetBalance overwrites a balance. Admin/testing helper, not part of the
// engine's contract.
func (s *RedisStore) SetBalance(ctx context.Context, bettorID string, balance float64) error {
	return s.client.Set(ctx, s.balanceKey(bettorID), balance, 0).Err()
}

// --- wheel.HistoryStore ---

func (s *RedisStore) AppendHistory(ctx context.Context, roundID int64, winner wheel.Category) error {
	entry := wheel.HistoryEntry{
		RoundID:   roundID,
		Category:  winner,
		IsBigWin:  winner.Multiplier() > wheel.BaseMultiplier,
		SettledAt: time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}
	key := s.prefix + ":history"
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, historyLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *RedisStore) RecentHistory(ctx context.Context, limit int) ([]wheel.HistoryEntry, error) {
	if limit <= 0 || limit > historyLimit {
		limit = historyLimit
	}
	raw, err := s.client.LRange(ctx, s.prefix+":history", 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	entries := make([]wheel.HistoryEntry, 0, len(raw))
	for _, payload := range raw {
		var entry wheel.HistoryEntry
		if json.Unmarshal([]byte(payload), &entry) == nil {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// --- wheel.UserDirectory ---

func (s *RedisStore) PutUser(ctx context.Context, profile wheel.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return s.client.HSet(ctx, s.prefix+":users", profile.ID, data).Err()
}

func (s *RedisStore) GetAllUsers(ctx context.Context) ([]wheel.UserProfile, error) {
	raw, err := s.client.HGetAll(ctx, s.prefix+":users").Result()
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	users := make([]wheel.UserProfile, 0, len(raw))
	for _, payload := range raw {
		var profile wheel.UserProfile
		if json.Unmarshal([]byte(payload), &profile) == nil {
			users = append(users, profile)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// --- wheel.SettlementLog ---

// MarkSettled claims a round with SETNX, so exactly one settler wins even
// when multiple replicas observe the same phase transition.
func (s *RedisStore) MarkSettled(ctx context.Context, roundID int64) (bool, error) {
	key := fmt.Sprintf("%s:settled:%d", s.prefix, roundID)
	ok, err := s.client.SetNX(ctx, key, time.Now().Unix(), settledTTL).Result()
	if err != nil {
		return false, fmt.Errorf("mark settled: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) MarkFailed(ctx context.Context, roundID int64, reason string) error {
	key := fmt.Sprintf("%s:settle_failed:%d", s.prefix, roundID)
	if err := s.client.Set(ctx, key, reason, 0).Err(); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// Stores bundles this store into the per-room collaborator set.
func (s *RedisStore) Stores() wheel.Stores {
	return wheel.Stores{
		Bets:    s,
		History: s,
		Users:   s,
		Balance: s,
		Settle:  s,
	}
}
