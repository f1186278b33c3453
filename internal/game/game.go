// Package game defines the Game Plugin Contract and its registry.
package game

import (
	"time"

	"github.com/breakpointhq/breakpoint/internal/room"
)

// Metadata describes a game kind independent of any particular session.
type Metadata struct {
	Name                   string
	Description            string
	MinPlayers             uint8
	MaxPlayers             uint8
	EstimatedRoundDuration time.Duration
}

// Config parameterizes a single game session.
type Config struct {
	RoundCount    uint8
	RoundDuration time.Duration
	Custom        map[string]any
}

// Game is the full plugin contract a host's tick loop drives. It is a
// superset of room.GameInstance (which the Room package depends on without
// importing this package) plus the setup-time operations only the registry
// and host need.
type Game interface {
	room.GameInstance

	Metadata() Metadata
	Init(players []room.Player, cfg Config)
	RoundCountHint() uint8
}

// Factory constructs a fresh instance of one game kind.
type Factory func() Game

// Registry maps a string game id to a factory.
type Registry struct {
	factories map[string]Factory
	metadata  map[string]Metadata
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory), metadata: make(map[string]Metadata)}
}

// Register adds a game kind under id, recording its metadata from a probe instance.
func (r *Registry) Register(id string, factory Factory) {
	probe := factory()
	r.factories[id] = factory
	r.metadata[id] = probe.Metadata()
}

// Create instantiates a fresh game of the given id.
func (r *Registry) Create(id string) (Game, bool) {
	f, ok := r.factories[id]
	if !ok {
		return nil, false
	}
	return f(), true
}

// AvailableGames lists every registered game id.
func (r *Registry) AvailableGames() []string {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	return ids
}

// MetadataFor returns the metadata recorded for a registered game id.
func (r *Registry) MetadataFor(id string) (Metadata, bool) {
	m, ok := r.metadata[id]
	return m, ok
}

// NewDefaultRegistry registers the games shipped with this server.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("minigolf", func() Game { return NewMiniGolf() })
	r.Register("lasertag", func() Game { return NewLaserTag() })
	return r
}
