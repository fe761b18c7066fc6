package server

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"fruitwheel/internal/cache"
	"fruitwheel/internal/database"
	"fruitwheel/internal/store"
	"fruitwheel/internal/wheel"
)

// DefaultRoom is the room every connection lands in. Additional rooms can be
// opened through the RoomManager; each runs its own independent round loop.
const DefaultRoom = "main"

type FiberServer struct {
	*fiber.App

	db    database.Service
	cache cache.Service
	hub   *wheel.Hub
	rooms *wheel.RoomManager
	room  *wheel.Room
	redis *store.RedisStore

	cancelRooms context.CancelFunc
}

func New() *FiberServer {
	cfg := configFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[SERVER] bad configuration: %v", err)
	}
	for _, warn := range cfg.Warnings() {
		log.Printf("[SERVER] configuration warning: %s", warn)
	}

	db := database.New()

	redisService := cache.New()
	if redisService == nil {
		log.Fatal("[SERVER] Redis is required for game functionality")
	}

	hub := wheel.NewHub()
	rooms := wheel.NewRoomManager(cfg, hub)

	redisStore := store.NewRedisStore(redisService.GetClient(), DefaultRoom)
	pgStore := store.NewPostgresStore(db.DB(), DefaultRoom)

	stores := redisStore.Stores()
	// Settled rounds land in Redis for the live strip and in Postgres for
	// the durable archive.
	stores.History = store.TeeHistory(redisStore, pgStore)
	stores.Users = pgStore

	roomsCtx, cancelRooms := context.WithCancel(context.Background())

	server := &FiberServer{
		App: fiber.New(fiber.Config{
			ServerHeader:  "fruitwheel",
			AppName:       "fruitwheel",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			IdleTimeout:   120 * time.Second,
			StrictRouting: false,
		}),

		db:          db,
		cache:       redisService,
		hub:         hub,
		rooms:       rooms,
		redis:       redisStore,
		cancelRooms: cancelRooms,
	}

	server.App.Use(recover.New())
	server.App.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
	}))

	go hub.Run()
	server.room = rooms.Open(roomsCtx, DefaultRoom, stores)

	log.Printf("[SERVER] round loop running: %v betting + %v spin",
		cfg.BettingDuration, cfg.SpinDuration)

	return server
}

// Shutdown stops the round loops and closes connections.
func (s *FiberServer) Shutdown() error {
	log.Println("[SERVER] shutting down...")

	if s.cancelRooms != nil {
		s.cancelRooms()
	}
	if s.rooms != nil {
		s.rooms.CloseAll()
	}
	if s.cache != nil {
		s.cache.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// configFromEnv applies env overrides on top of the engine defaults. The
// probability table is code, not env: it changes with a deploy, on purpose.
func configFromEnv() wheel.Config {
	cfg := wheel.DefaultConfig()
	if secs := getEnvAsInt("WHEEL_BETTING_SECONDS", 0); secs > 0 {
		cfg.BettingDuration = time.Duration(secs) * time.Second
	}
	if secs := getEnvAsInt("WHEEL_SPIN_SECONDS", 0); secs > 0 {
		cfg.SpinDuration = time.Duration(secs) * time.Second
	}
	if n := getEnvAsInt("WHEEL_TOP_WINNERS", 0); n > 0 {
		cfg.TopWinners = n
	}
	if n := getEnvAsInt("WHEEL_MAX_BET_CATEGORIES", 0); n > 0 {
		cfg.MaxBetCategories = n
	}
	return cfg
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
