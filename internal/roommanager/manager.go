// Package roommanager owns the table of live rooms: code-based lookup,
// creation/joining, idle reaping, and disconnect-grace sweeping.
package roommanager

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/breakpointhq/breakpoint/internal/logging"
	"github.com/breakpointhq/breakpoint/internal/metrics"
	"github.com/breakpointhq/breakpoint/internal/room"
)

const maxCodeGenerationAttempts = 20

// Stats summarizes the manager's current occupancy.
type Stats struct {
	ActiveRooms int
	TotalPlayers int
}

// Manager owns the code→Room mapping behind a reader-writer lock.
type Manager struct {
	mu        sync.RWMutex
	rooms     map[string]*room.Room
	capacity  int
}

// New constructs a Manager that allows at most capacity simultaneous rooms.
func New(capacity int) *Manager {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Manager{rooms: make(map[string]*room.Room), capacity: capacity}
}

// Create starts a new room. If code is empty, a fresh code is generated;
// an explicitly given code that already exists is an error. The creator
// becomes host with player id 1.
func (m *Manager) Create(code, hostName string, hostColor room.Color, hostSink room.Sink, cfg room.Config) (*room.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.rooms) >= m.capacity {
		return nil, fmt.Errorf("roommanager: at capacity (%d rooms)", m.capacity)
	}

	if code == "" {
		generated, err := m.generateUniqueCodeLocked()
		if err != nil {
			return nil, err
		}
		code = generated
	} else if !room.IsValidCode(code) {
		return nil, fmt.Errorf("roommanager: invalid room code %q", code)
	} else if _, exists := m.rooms[code]; exists {
		return nil, fmt.Errorf("roommanager: room code %q already in use", code)
	}

	r := room.New(code, cfg, hostName, hostColor, hostSink)
	m.rooms[code] = r
	metrics.ActiveRooms.Inc()
	return r, nil
}

func (m *Manager) generateUniqueCodeLocked() (string, error) {
	for i := 0; i < maxCodeGenerationAttempts; i++ {
		code, err := room.GenerateCode()
		if err != nil {
			return "", err
		}
		if _, exists := m.rooms[code]; !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("roommanager: exhausted %d attempts generating a unique room code", maxCodeGenerationAttempts)
}

// Get returns the room for a code, if any.
func (m *Manager) Get(code string) (*room.Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[code]
	return r, ok
}

// Join seats a new player into an existing room.
func (m *Manager) Join(code, name string, color room.Color, sink room.Sink) (*room.Room, room.PlayerID, error) {
	m.mu.RLock()
	r, ok := m.rooms[code]
	m.mu.RUnlock()
	if !ok {
		return nil, 0, fmt.Errorf("roommanager: unknown room code %q", code)
	}
	id, err := r.Join(name, color, sink)
	if err != nil {
		return nil, 0, err
	}
	return r, id, nil
}

// Leave removes a player from a room, destroying the room if it becomes empty.
func (m *Manager) Leave(code string, playerID room.PlayerID) {
	m.mu.RLock()
	r, ok := m.rooms[code]
	m.mu.RUnlock()
	if !ok {
		return
	}
	if r.Leave(playerID) {
		m.destroy(code)
	}
}

// Disconnect marks a player disconnected-but-seated, honoring the room's
// reconnect grace window instead of evicting it immediately (see Leave).
func (m *Manager) Disconnect(code string, playerID room.PlayerID) {
	m.mu.RLock()
	r, ok := m.rooms[code]
	m.mu.RUnlock()
	if !ok {
		return
	}
	r.Disconnect(playerID)
}

// Reconnect reattaches sink to a player still within its disconnect grace
// window.
func (m *Manager) Reconnect(code string, playerID room.PlayerID, sink room.Sink) (*room.Room, room.Player, error) {
	m.mu.RLock()
	r, ok := m.rooms[code]
	m.mu.RUnlock()
	if !ok {
		return nil, room.Player{}, fmt.Errorf("roommanager: unknown room code %q", code)
	}
	p, err := r.Reconnect(playerID, sink)
	if err != nil {
		return nil, room.Player{}, err
	}
	return r, p, nil
}

// SweepDisconnects evicts every player whose reconnect grace window has
// elapsed across every room, destroying rooms left empty.
func (m *Manager) SweepDisconnects() {
	m.mu.RLock()
	rooms := make([]*room.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	for _, r := range rooms {
		if _, empty := r.ExpireDisconnected(); empty {
			m.destroy(r.Code)
		}
	}
}

// RunDisconnectSweeper periodically calls SweepDisconnects until stop fires.
func (m *Manager) RunDisconnectSweeper(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.SweepDisconnects()
		case <-stop:
			return
		}
	}
}

func (m *Manager) destroy(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[code]; ok && r.IsEmpty() {
		delete(m.rooms, code)
		metrics.ActiveRooms.Dec()
		metrics.RoomPlayers.DeleteLabelValues(code)
	}
}

// BroadcastToAllRooms delivers an already-encoded frame to every
// participant of every room, used by the Alert Bridge.
func (m *Manager) BroadcastToAllRooms(frame []byte) {
	m.mu.RLock()
	rooms := make([]*room.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	for _, r := range rooms {
		for _, sink := range r.AllSinks() {
			if err := sink.Send(frame); err != nil {
				logging.Warn(nil, "alert broadcast send failed", zap.String("room_code", r.Code))
			}
		}
	}
}

// Stats reports current occupancy.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := Stats{ActiveRooms: len(m.rooms)}
	for _, r := range m.rooms {
		stats.TotalPlayers += len(r.Players())
	}
	return stats
}

// ReapIdle destroys every room whose last activity is older than maxIdle,
// whether or not it still has players.
func (m *Manager) ReapIdle(maxIdle time.Duration) int {
	m.mu.RLock()
	var stale []string
	for code, r := range m.rooms {
		if r.IdleSince() > maxIdle {
			stale = append(stale, code)
		}
	}
	m.mu.RUnlock()

	for _, code := range stale {
		m.mu.Lock()
		delete(m.rooms, code)
		metrics.ActiveRooms.Dec()
		metrics.RoomPlayers.DeleteLabelValues(code)
		m.mu.Unlock()
	}
	return len(stale)
}

// RunIdleReaper periodically reaps idle rooms until stop is closed.
func (m *Manager) RunIdleReaper(stop <-chan struct{}, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.ReapIdle(maxIdle); n > 0 {
				logging.Info(nil, "reaped idle rooms", zap.Int("count", n))
			}
		case <-stop:
			return
		}
	}
}
