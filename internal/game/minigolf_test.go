package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/breakpointhq/breakpoint/internal/room"
)

func TestMiniGolfStrokeIncrementsCount(t *testing.T) {
	g := NewMiniGolf()
	g.Init([]room.Player{{ID: 1, DisplayName: "Alice"}}, Config{})

	before, err := g.SerializeState()
	require.NoError(t, err)

	input, err := msgpack.Marshal(miniGolfInput{AimAngle: 0.5, Power: 0.6, Stroke: true})
	require.NoError(t, err)
	g.ApplyInput(1, input)
	g.Update(1.0/10.0, nil)

	after, err := g.SerializeState()
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Equal(t, int32(1), g.state.Strokes[1])
}

func TestMiniGolfRoundCompletesWhenAllBallsHoled(t *testing.T) {
	g := NewMiniGolf()
	g.Init([]room.Player{{ID: 1}}, Config{})
	g.state.Balls[1].InHole = true
	assert.True(t, g.IsRoundComplete())
}

func TestMiniGolfIgnoresInputForUnknownPlayer(t *testing.T) {
	g := NewMiniGolf()
	g.Init([]room.Player{{ID: 1}}, Config{})
	input, _ := msgpack.Marshal(miniGolfInput{Stroke: true})
	assert.NotPanics(t, func() { g.ApplyInput(99, input) })
}

func TestMiniGolfRegistryRoundTrip(t *testing.T) {
	r := NewDefaultRegistry()
	assert.Contains(t, r.AvailableGames(), "minigolf")
	assert.Contains(t, r.AvailableGames(), "lasertag")

	g, ok := r.Create("minigolf")
	require.True(t, ok)
	assert.Equal(t, "minigolf", g.Metadata().Name)
}

func TestLaserTagRoundCompletesAtScoreCap(t *testing.T) {
	g := NewLaserTag()
	g.Init([]room.Player{{ID: 1}, {ID: 2}}, Config{})
	g.state.Frags[1] = laserTagScoreCap
	assert.True(t, g.IsRoundComplete())
}

func TestLaserTagPauseStopsUpdate(t *testing.T) {
	g := NewLaserTag()
	g.Init([]room.Player{{ID: 1}, {ID: 2}}, Config{})
	g.Pause()
	events := g.Update(1.0, nil)
	assert.Nil(t, events)
}
