package game

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/SomeCodecat/bubble-quiz-sub001/internal/config"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/hub"
)

const (
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	codeLength   = 10

	cleanupInterval = 30 * time.Second
)

// Registry is the process-wide room table. It owns room-code uniqueness and
// the global counters; everything inside a room is the room's own business.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	// Running counters so Stats stays O(1) regardless of room count.
	// online counts players with a live connection across all rooms;
	// active counts rooms not yet in GAME_OVER.
	online atomic.Int64
	active atomic.Int64

	cfg    *config.Config
	log    *slog.Logger
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Stats is the global snapshot consumed by the page-rendering layer.
type Stats struct {
	OnlineUsers int `json:"online_users"`
	ActiveRooms int `json:"active_rooms"`
}

func NewRegistry(cfg *config.Config, log *slog.Logger) *Registry {
	g := &Registry{
		rooms:  make(map[string]*Room),
		cfg:    cfg,
		log:    log,
		stopCh: make(chan struct{}),
	}

	g.wg.Add(1)
	go g.cleanupLoop()

	return g
}

// CreateRoom reserves a fresh code and registers a room in LOBBY phase.
// The host still has to attach its connection to become the first player.
func (g *Registry) CreateRoom(hostToken string) (*Room, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.rooms) >= g.cfg.MaxRooms {
		return nil, fmt.Errorf("%w: %d rooms", ErrCapacityExceeded, len(g.rooms))
	}

	code := g.generateCodeLocked()
	room := newRoom(code, hostToken, g, hub.NewRoomHub(g.log))
	g.rooms[code] = room
	g.active.Add(1)

	g.log.Info("room created", "code", code)
	return room, nil
}

// FindRoom looks a room up by code.
func (g *Registry) FindRoom(code string) (*Room, error) {
	g.mu.RLock()
	room, ok := g.rooms[code]
	g.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	return room, nil
}

// RemoveRoom deletes a room from the table and releases its resources.
// Called by the cleanup loop and by terminal room teardown.
func (g *Registry) RemoveRoom(code string) {
	g.mu.Lock()
	room, ok := g.rooms[code]
	if ok {
		delete(g.rooms, code)
	}
	g.mu.Unlock()

	if !ok {
		return
	}
	room.shutdown()
	g.log.Info("room removed", "code", code)
}

// Stats returns the global counters.
func (g *Registry) Stats() Stats {
	return Stats{
		OnlineUsers: int(g.online.Load()),
		ActiveRooms: int(g.active.Load()),
	}
}

// Close stops the cleanup loop and tears down every room.
func (g *Registry) Close() {
	close(g.stopCh)
	g.wg.Wait()

	g.mu.Lock()
	rooms := make([]*Room, 0, len(g.rooms))
	for code, room := range g.rooms {
		rooms = append(rooms, room)
		delete(g.rooms, code)
	}
	g.mu.Unlock()

	for _, room := range rooms {
		room.shutdown()
	}
}

// generateCodeLocked draws codes until one is unused. Room count is tiny
// against 62^10, so this terminates in an expected O(1) draws.
func (g *Registry) generateCodeLocked() string {
	for {
		code := randomCode()
		if _, taken := g.rooms[code]; !taken {
			return code
		}
	}
}

// randomCode draws codeLength symbols with rejection sampling: bytes at or
// above the largest multiple of len(codeAlphabet) are discarded, so every
// symbol is equally likely.
func randomCode() string {
	const limit = 256 - 256%len(codeAlphabet)

	code := make([]byte, 0, codeLength)
	buf := make([]byte, 2*codeLength)
	for {
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			code = append(code, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(code) == codeLength {
				return string(code)
			}
		}
	}
}

func (g *Registry) cleanupLoop() {
	defer g.wg.Done()

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.sweep(time.Now())
		case <-g.stopCh:
			return
		}
	}
}

// sweep evicts rooms that are terminal or idle past their timeout.
func (g *Registry) sweep(now time.Time) {
	g.mu.RLock()
	var expired []string
	for code, room := range g.rooms {
		if room.expired(now) {
			expired = append(expired, code)
		}
	}
	g.mu.RUnlock()

	for _, code := range expired {
		g.RemoveRoom(code)
	}
}
