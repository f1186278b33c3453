// Package relay implements the standalone, protocol-agnostic relay server:
// a thinner sibling of the main server that only forwards raw frames
// between a room's host and its clients, for deployments that run game
// simulation entirely on the host rather than authoritatively on the
// server.
package relay

import (
	"fmt"
	"sync"

	"github.com/breakpointhq/breakpoint/internal/room"
)

// Sink is anything a relayed frame can be written to.
type Sink interface {
	Send(frame []byte) error
}

type relayClient struct {
	id   uint64
	sink Sink
}

// relayRoom tracks one room's host sink and its connected clients. The
// first participant to join a room is always its host; every later
// joiner is a plain client.
type relayRoom struct {
	hostSink Sink
	clients  map[uint64]relayClient
	nextID   uint64
}

func newRelayRoom(hostSink Sink) *relayRoom {
	return &relayRoom{hostSink: hostSink, clients: make(map[uint64]relayClient), nextID: 1}
}

func (r *relayRoom) addClient(sink Sink) uint64 {
	id := r.nextID
	r.nextID++
	r.clients[id] = relayClient{id: id, sink: sink}
	return id
}

func (r *relayRoom) removeClient(id uint64) {
	delete(r.clients, id)
}

func (r *relayRoom) forwardToHost(data []byte) {
	_ = r.hostSink.Send(data)
}

func (r *relayRoom) forwardToClients(data []byte) {
	for _, c := range r.clients {
		_ = c.sink.Send(data)
	}
}

func (r *relayRoom) isEmpty() bool {
	return len(r.clients) == 0
}

// State holds every active relay room, guarded by a single mutex (the
// relay has no per-room game logic worth a finer-grained lock).
type State struct {
	mu       sync.Mutex
	rooms    map[string]*relayRoom
	maxRooms int
}

// NewState constructs an empty relay State bounded at maxRooms concurrent rooms.
func NewState(maxRooms int) *State {
	return &State{rooms: make(map[string]*relayRoom), maxRooms: maxRooms}
}

// CreateRoom registers a new room with the given code, seating hostSink as
// its host. The code itself is not validated here; the relay server passes
// one generated by NewRoomCode.
func (s *State) CreateRoom(code string, hostSink Sink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.rooms) >= s.maxRooms {
		return fmt.Errorf("relay: maximum room limit reached")
	}
	if _, exists := s.rooms[code]; exists {
		return fmt.Errorf("relay: room %q already exists", code)
	}
	s.rooms[code] = newRelayRoom(hostSink)
	return nil
}

// JoinRoom attaches sink to an existing room as a client, returning its
// per-room client ID.
func (s *State) JoinRoom(code string, sink Sink) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return 0, fmt.Errorf("relay: room %q not found", code)
	}
	return r.addClient(sink), nil
}

// LeaveRoom removes a client from a room, reporting whether the room is
// now empty of clients (the caller may choose to keep an empty-of-clients
// room alive, since the host is still connected).
func (s *State) LeaveRoom(code string, clientID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return false
	}
	r.removeClient(clientID)
	return r.isEmpty()
}

// DestroyRoom removes a room entirely, used when its host disconnects.
func (s *State) DestroyRoom(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

// RelayToHost forwards data to a room's host sink, if the room exists.
func (s *State) RelayToHost(code string, data []byte) {
	s.mu.Lock()
	r, ok := s.rooms[code]
	s.mu.Unlock()
	if ok {
		r.forwardToHost(data)
	}
}

// RelayToClients forwards data to every client sink in a room, if it exists.
func (s *State) RelayToClients(code string, data []byte) {
	s.mu.Lock()
	r, ok := s.rooms[code]
	s.mu.Unlock()
	if ok {
		r.forwardToClients(data)
	}
}

// RoomExists reports whether a room with the given code is registered.
func (s *State) RoomExists(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[code]
	return ok
}

// RoomCount returns the number of currently active relay rooms.
func (s *State) RoomCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}

// NewRoomCode generates a fresh ABCD-1234 style room code for a new relay room.
func NewRoomCode() (string, error) {
	return room.GenerateCode()
}
