package wheel

import (
	"context"
	"log"
	"sync"
)

// Room bundles the per-room engine pieces: each room has its own scheduler,
// desk, ledger and outcome cache, so rooms share nothing and run in
// parallel. The hub is shared; payloads carry room context where needed.
type Room struct {
	ID        string
	Scheduler *Scheduler
	Desk      *Desk
	Ledger    *Ledger
	Generator *Generator

	cancel context.CancelFunc
}

// Stores groups the external collaborators a room needs.
type Stores struct {
	Bets    BetStore
	History HistoryStore
	Users   UserDirectory
	Balance BalanceAuthority
	Settle  SettlementLog
}

// RoomManager owns every live room instance.
type RoomManager struct {
	cfg Config
	hub *Hub

	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewRoomManager(cfg Config, hub *Hub) *RoomManager {
	return &RoomManager{
		cfg:   cfg,
		hub:   hub,
		rooms: make(map[string]*Room),
	}
}

// Open creates a room and starts its round loop. Opening an existing id
// returns the running room.
func (rm *RoomManager) Open(ctx context.Context, id string, stores Stores) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if room, ok := rm.rooms[id]; ok {
		return room
	}

	clock := NewClock(rm.cfg.BettingDuration, rm.cfg.SpinDuration)
	gen := NewGenerator(rm.cfg.PityTable, nil)
	ledger := NewLedger(rm.cfg, stores.Bets, stores.History, stores.Users, stores.Balance, stores.Settle)
	sched := NewScheduler(id, rm.cfg, clock, gen, ledger, rm.hub)
	desk := NewDesk(rm.cfg, clock, stores.Bets, stores.Balance, rm.hub)

	roomCtx, cancel := context.WithCancel(ctx)
	room := &Room{
		ID:        id,
		Scheduler: sched,
		Desk:      desk,
		Ledger:    ledger,
		Generator: gen,
		cancel:    cancel,
	}
	rm.rooms[id] = room

	go func() {
		if err := sched.Run(roomCtx); err != nil && err != context.Canceled {
			log.Printf("[ROOMS] room %s loop exited: %v", id, err)
		}
	}()
	log.Printf("[ROOMS] opened room %s", id)
	return room
}

func (rm *RoomManager) Get(id string) (*Room, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	room, ok := rm.rooms[id]
	return room, ok
}

func (rm *RoomManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// CloseAll stops every room loop.
func (rm *RoomManager) CloseAll() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for id, room := range rm.rooms {
		room.cancel()
		delete(rm.rooms, id)
		log.Printf("[ROOMS] closed room %s", id)
	}
}
