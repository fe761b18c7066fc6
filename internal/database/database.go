package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/joho/godotenv/autoload"
)

// Service wraps the Postgres connection used for the round archive and
// user profiles.
type Service interface {
	DB() *sql.DB
	Health() map[string]string
	Close() error
}

type service struct {
	db *sql.DB
}

var (
	database = os.Getenv("WHEEL_DB_DATABASE")
	password = os.Getenv("WHEEL_DB_PASSWORD")
	username = os.Getenv("WHEEL_DB_USERNAME")
	port     = os.Getenv("WHEEL_DB_PORT")
	host     = os.Getenv("WHEEL_DB_HOST")
	schema   = os.Getenv("WHEEL_DB_SCHEMA")

	dbInstance *service
)

func New() Service {
	if dbInstance != nil {
		return dbInstance
	}

	db, err := sql.Open("pgx", ConnectionString())
	if err != nil {
		log.Fatalf("[DB] open failed: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	dbInstance = &service{db: db}
	return dbInstance
}

// ConnectionString assembles the DSN from the environment with the same
// defaults the migrate CLI uses.
func ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		orDefault(username, "postgres"),
		orDefault(password, "postgres"),
		orDefault(host, "localhost"),
		orDefault(port, "5432"),
		orDefault(database, "wheeldb"),
		orDefault(schema, "public"),
	)
}

func (s *service) DB() *sql.DB {
	return s.db
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)
	if err := s.db.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "Postgres is healthy"

	poolStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(poolStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(poolStats.InUse)
	stats["idle"] = strconv.Itoa(poolStats.Idle)
	stats["wait_count"] = strconv.FormatInt(poolStats.WaitCount, 10)
	return stats
}

func (s *service) Close() error {
	log.Printf("[DB] disconnecting from %s", orDefault(database, "wheeldb"))
	return s.db.Close()
}

func orDefault(val, def string) string {
	if val != "" {
		return val
	}
	return def
}
