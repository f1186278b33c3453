package game

import (
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/breakpointhq/breakpoint/internal/room"
)

const (
	laserTagHitRadius = 1.0
	laserTagScoreCap  = 10
	laserTagSpeed     = 4.0
)

type laserTagInput struct {
	MoveX float32 `msgpack:"move_x"`
	MoveY float32 `msgpack:"move_y"`
	Aim   float32 `msgpack:"aim"`
	Fire  bool    `msgpack:"fire"`
}

type laserTagAvatar struct {
	X, Y  float32
	Aim   float32
	MoveX float32
	MoveY float32
}

type laserTagState struct {
	Avatars       map[room.PlayerID]*laserTagAvatar `msgpack:"avatars"`
	Frags         map[room.PlayerID]int32           `msgpack:"frags"`
	RoundComplete bool                                `msgpack:"round_complete"`
}

// LaserTag is a continuous top-down arena shooter: update integrates
// per-tick movement and applies a simple hit-scan on fire, tracking frag
// counts; the round ends on a score cap.
type LaserTag struct {
	state  laserTagState
	paused bool
}

func NewLaserTag() *LaserTag {
	return &LaserTag{state: laserTagState{Avatars: map[room.PlayerID]*laserTagAvatar{}, Frags: map[room.PlayerID]int32{}}}
}

func (g *LaserTag) Metadata() Metadata {
	return Metadata{
		Name:                   "lasertag",
		Description:            "Top-down laser-tag arena: move, aim, and tag opponents before they tag you.",
		MinPlayers:             2,
		MaxPlayers:             8,
		EstimatedRoundDuration: 0,
	}
}

func (g *LaserTag) Init(players []room.Player, _ Config) {
	g.state = laserTagState{Avatars: map[room.PlayerID]*laserTagAvatar{}, Frags: map[room.PlayerID]int32{}}
	for i, p := range players {
		if p.IsSpectator {
			continue
		}
		angle := float64(i) * (2 * math.Pi / float64(len(players)))
		g.state.Avatars[p.ID] = &laserTagAvatar{X: float32(math.Cos(angle) * 5), Y: float32(math.Sin(angle) * 5)}
		g.state.Frags[p.ID] = 0
	}
}

func (g *LaserTag) RoundCountHint() uint8 { return 1 }
func (g *LaserTag) TickRate() float32     { return 20.0 }

func (g *LaserTag) Update(dt float32, _ map[room.PlayerID][]byte) []room.GameEvent {
	if g.paused {
		return nil
	}
	for _, a := range g.state.Avatars {
		a.X += a.MoveX * laserTagSpeed * dt
		a.Y += a.MoveY * laserTagSpeed * dt
	}
	var events []room.GameEvent
	if g.IsRoundComplete() {
		g.state.RoundComplete = true
		events = append(events, room.GameEvent{Kind: room.GameEventRoundComplete})
	}
	return events
}

func (g *LaserTag) ApplyInput(playerID room.PlayerID, data []byte) {
	var in laserTagInput
	if err := msgpack.Unmarshal(data, &in); err != nil {
		return
	}
	shooter, ok := g.state.Avatars[playerID]
	if !ok {
		return
	}
	shooter.MoveX, shooter.MoveY, shooter.Aim = in.MoveX, in.MoveY, in.Aim

	if !in.Fire {
		return
	}
	dx, dy := float32(math.Cos(float64(in.Aim))), float32(math.Sin(float64(in.Aim)))
	for id, target := range g.state.Avatars {
		if id == playerID {
			continue
		}
		tx, ty := target.X-shooter.X, target.Y-shooter.Y
		dist := float32(math.Hypot(float64(tx), float64(ty)))
		if dist == 0 {
			continue
		}
		cos := (tx*dx + ty*dy) / dist
		if cos > 0.95 && dist < 30 && perpendicularDistance(shooter.X, shooter.Y, dx, dy, target.X, target.Y) < laserTagHitRadius {
			g.state.Frags[playerID]++
			break
		}
	}
}

func perpendicularDistance(ox, oy, dx, dy, px, py float32) float32 {
	vx, vy := px-ox, py-oy
	cross := vx*dy - vy*dx
	return float32(math.Abs(float64(cross)))
}

func (g *LaserTag) SerializeState() ([]byte, error) { return msgpack.Marshal(g.state) }

func (g *LaserTag) ApplyState(data []byte) error {
	var s laserTagState
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return err
	}
	g.state = s
	return nil
}

func (g *LaserTag) PlayerJoined(p room.Player) {
	if p.IsSpectator {
		return
	}
	g.state.Avatars[p.ID] = &laserTagAvatar{}
	g.state.Frags[p.ID] = 0
}

func (g *LaserTag) PlayerLeft(id room.PlayerID) {
	delete(g.state.Avatars, id)
	delete(g.state.Frags, id)
}

func (g *LaserTag) Pause()              { g.paused = true }
func (g *LaserTag) Resume()             { g.paused = false }
func (g *LaserTag) SupportsPause() bool { return true }

func (g *LaserTag) IsRoundComplete() bool {
	for _, frags := range g.state.Frags {
		if frags >= laserTagScoreCap {
			return true
		}
	}
	return false
}

func (g *LaserTag) RoundResults() map[room.PlayerID]int32 {
	results := make(map[room.PlayerID]int32, len(g.state.Frags))
	for id, frags := range g.state.Frags {
		results[id] = frags
	}
	return results
}
