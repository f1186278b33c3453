package game

import (
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/breakpointhq/breakpoint/internal/room"
)

const (
	miniGolfFriction    = 0.98
	miniGolfHoleRadius  = 0.15
	miniGolfStopSpeed   = 0.01
	miniGolfHoleX       = 10.0
	miniGolfHoleY       = 0.0
)

// miniGolfInput is the decoded apply_input payload: an aim angle, a shot
// power, and whether the player is releasing the stroke this tick.
type miniGolfInput struct {
	AimAngle float32 `msgpack:"aim_angle"`
	Power    float32 `msgpack:"power"`
	Stroke   bool    `msgpack:"stroke"`
}

type ballState struct {
	X, Y   float32
	VX, VY float32
	InHole bool
}

// miniGolfState is the authoritative, msgpack-serialized simulation state.
type miniGolfState struct {
	Balls         map[room.PlayerID]*ballState `msgpack:"balls"`
	Strokes       map[room.PlayerID]int32      `msgpack:"strokes"`
	RoundComplete bool                          `msgpack:"round_complete"`
}

// MiniGolf is a turn-based mini-golf simulation: apply_input aims and
// strikes a ball, update integrates a simple friction model, and a round
// completes once every non-spectator player's ball has reached the hole.
type MiniGolf struct {
	state   miniGolfState
	paused  bool
	players []room.Player
}

// NewMiniGolf constructs an un-initialized MiniGolf game; Init seats players.
func NewMiniGolf() *MiniGolf {
	return &MiniGolf{state: miniGolfState{Balls: map[room.PlayerID]*ballState{}, Strokes: map[room.PlayerID]int32{}}}
}

func (g *MiniGolf) Metadata() Metadata {
	return Metadata{
		Name:                   "minigolf",
		Description:            "Turn-based mini-golf: aim, strike, and sink the ball in the fewest strokes.",
		MinPlayers:             1,
		MaxPlayers:             8,
		EstimatedRoundDuration: 0,
	}
}

func (g *MiniGolf) Init(players []room.Player, _ Config) {
	g.players = players
	g.state = miniGolfState{Balls: map[room.PlayerID]*ballState{}, Strokes: map[room.PlayerID]int32{}}
	for _, p := range players {
		if p.IsSpectator {
			continue
		}
		g.state.Balls[p.ID] = &ballState{X: 0, Y: 0}
		g.state.Strokes[p.ID] = 0
	}
}

func (g *MiniGolf) RoundCountHint() uint8 { return 1 }
func (g *MiniGolf) TickRate() float32     { return 10.0 }

func (g *MiniGolf) Update(dt float32, _ map[room.PlayerID][]byte) []room.GameEvent {
	if g.paused {
		return nil
	}
	var events []room.GameEvent
	for id, b := range g.state.Balls {
		if b.InHole {
			continue
		}
		b.X += b.VX * dt
		b.Y += b.VY * dt
		b.VX *= miniGolfFriction
		b.VY *= miniGolfFriction
		if math.Hypot(float64(b.VX), float64(b.VY)) < miniGolfStopSpeed {
			b.VX, b.VY = 0, 0
		}
		if math.Hypot(float64(b.X-miniGolfHoleX), float64(b.Y-miniGolfHoleY)) < miniGolfHoleRadius {
			b.InHole = true
			events = append(events, room.GameEvent{Kind: room.GameEventScoreUpdate, PlayerID: id, Score: -g.state.Strokes[id]})
		}
	}
	if g.IsRoundComplete() {
		g.state.RoundComplete = true
		events = append(events, room.GameEvent{Kind: room.GameEventRoundComplete})
	}
	return events
}

func (g *MiniGolf) ApplyInput(playerID room.PlayerID, data []byte) {
	var in miniGolfInput
	if err := msgpack.Unmarshal(data, &in); err != nil {
		return
	}
	if !in.Stroke {
		return
	}
	b, ok := g.state.Balls[playerID]
	if !ok || b.InHole {
		return
	}
	speed := in.Power * 8.0
	b.VX = float32(math.Cos(float64(in.AimAngle))) * speed
	b.VY = float32(math.Sin(float64(in.AimAngle))) * speed
	g.state.Strokes[playerID]++
}

func (g *MiniGolf) SerializeState() ([]byte, error) { return msgpack.Marshal(g.state) }

func (g *MiniGolf) ApplyState(data []byte) error {
	var s miniGolfState
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return err
	}
	g.state = s
	return nil
}

func (g *MiniGolf) PlayerJoined(p room.Player) {
	if p.IsSpectator {
		return
	}
	g.state.Balls[p.ID] = &ballState{}
	g.state.Strokes[p.ID] = 0
}

func (g *MiniGolf) PlayerLeft(id room.PlayerID) {
	delete(g.state.Balls, id)
	delete(g.state.Strokes, id)
}

func (g *MiniGolf) Pause()              { g.paused = true }
func (g *MiniGolf) Resume()             { g.paused = false }
func (g *MiniGolf) SupportsPause() bool { return true }

func (g *MiniGolf) IsRoundComplete() bool {
	if len(g.state.Balls) == 0 {
		return false
	}
	for _, b := range g.state.Balls {
		if !b.InHole {
			return false
		}
	}
	return true
}

func (g *MiniGolf) RoundResults() map[room.PlayerID]int32 {
	results := make(map[room.PlayerID]int32, len(g.state.Strokes))
	for id, strokes := range g.state.Strokes {
		results[id] = -strokes
	}
	return results
}
