package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fruitwheel/internal/wheel"
)

// PostgresStore keeps the durable side of the game: the settled-round
// archive and user profiles. Hot round state stays in Redis; Postgres rows
// outlive the bet TTLs.
type PostgresStore struct {
	db   *sql.DB
	room string
}

func NewPostgresStore(db *sql.DB, room string) *PostgresStore {
	return &PostgresStore{db: db, room: room}
}

// --- wheel.HistoryStore ---

func (s *PostgresStore) AppendHistory(ctx context.Context, roundID int64, winner wheel.Category) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO wheel_rounds (room, round_id, winning_category, multiplier, is_big_win, settled_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (room, round_id) DO NOTHING`,
		s.room, roundID, winner.String(), winner.Multiplier(),
		winner.Multiplier() > wheel.BaseMultiplier, time.Now())
	if err != nil {
		return fmt.Errorf("insert round history: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentHistory(ctx context.Context, limit int) ([]wheel.HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT round_id, winning_category, is_big_win, settled_at
		 FROM wheel_rounds WHERE room = $1
		 ORDER BY round_id DESC LIMIT $2`,
		s.room, limit)
	if err != nil {
		return nil, fmt.Errorf("query round history: %w", err)
	}
	defer rows.Close()

	var entries []wheel.HistoryEntry
	for rows.Next() {
		var entry wheel.HistoryEntry
		var name string
		if err := rows.Scan(&entry.RoundID, &name, &entry.IsBigWin, &entry.SettledAt); err != nil {
			return nil, fmt.Errorf("scan round history: %w", err)
		}
		category, err := wheel.ParseCategory(name)
		if err != nil {
			continue
		}
		entry.Category = category
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// --- wheel.UserDirectory ---

func (s *PostgresStore) GetAllUsers(ctx context.Context) ([]wheel.UserProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, display_name, COALESCE(avatar_url, '') FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []wheel.UserProfile
	for rows.Next() {
		var u wheel.UserProfile
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpsertUser registers or refreshes a profile.
func (s *PostgresStore) UpsertUser(ctx context.Context, u wheel.UserProfile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, display_name, avatar_url)
		 VALUES ($1, $2, NULLIF($3, ''))
		 ON CONFLICT (id) DO UPDATE SET display_name = $2, avatar_url = NULLIF($3, '')`,
		u.ID, u.DisplayName, u.AvatarURL)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}
