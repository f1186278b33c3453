package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct{ sent [][]byte }

func (f *fakeSink) Send(frame []byte) error {
	f.sent = append(f.sent, frame)
	return nil
}

func TestIsValidCode(t *testing.T) {
	valid := []string{"ABCD-1234", "ZXYW-0000", "GAME-9999"}
	for _, c := range valid {
		assert.True(t, IsValidCode(c), c)
	}
	invalid := []string{"", "ABCD1234", "abcd-1234", "ABC-1234", "ABCD-123", "ABCD-12345", "1234-ABCD"}
	for _, c := range invalid {
		assert.False(t, IsValidCode(c), c)
	}
}

func TestNewRoomSeatsHostAsPlayerOne(t *testing.T) {
	r := New("ABCD-1234", DefaultConfig(), "Alice", Palette[0], &fakeSink{})
	players := r.Players()
	require.Len(t, players, 1)
	assert.Equal(t, PlayerID(1), players[0].ID)
	assert.True(t, players[0].IsHost)
	assert.Equal(t, PlayerID(1), r.HostID())
}

func TestJoinAssignsSequentialIDs(t *testing.T) {
	r := New("ABCD-1234", DefaultConfig(), "Alice", Palette[0], &fakeSink{})
	id, err := r.Join("Bob", Palette[1], &fakeSink{})
	require.NoError(t, err)
	assert.Equal(t, PlayerID(2), id)
}

func TestJoinRejectsFullRoom(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPlayers = 1
	r := New("ABCD-1234", cfg, "Alice", Palette[0], &fakeSink{})
	_, err := r.Join("Bob", Palette[1], &fakeSink{})
	assert.Error(t, err)
}

func TestLeaveHostWithoutMigrationClearsHost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HostMigrationEnabled = false
	r := New("ABCD-1234", cfg, "Alice", Palette[0], &fakeSink{})
	_, _ = r.Join("Bob", Palette[1], &fakeSink{})

	empty := r.Leave(1)
	assert.False(t, empty)
	assert.Equal(t, PlayerID(0), r.HostID())
}

func TestLeaveHostWithMigrationElectsLongestPresent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HostMigrationEnabled = true
	r := New("ABCD-1234", cfg, "Alice", Palette[0], &fakeSink{})
	_, _ = r.Join("Bob", Palette[1], &fakeSink{})

	r.Leave(1)
	assert.Equal(t, PlayerID(2), r.HostID())

	players := r.Players()
	require.Len(t, players, 1)
	assert.True(t, players[0].IsHost)
}

func TestLeaveLastPlayerEmptiesRoom(t *testing.T) {
	r := New("ABCD-1234", DefaultConfig(), "Alice", Palette[0], &fakeSink{})
	empty := r.Leave(1)
	assert.True(t, empty)
	assert.True(t, r.IsEmpty())
}

func TestColorAtWrapsAndHandlesEmptyPalette(t *testing.T) {
	assert.Equal(t, Palette[0], ColorAt(Palette, 0))
	assert.Equal(t, Palette[1], ColorAt(Palette, 9))
	assert.Equal(t, Palette[0], ColorAt(nil, 3))
}

func TestDisconnectWithZeroGraceFallsBackToLeave(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HostDisconnectGrace = 0
	r := New("ABCD-1234", cfg, "Alice", Palette[0], &fakeSink{})

	r.Disconnect(1)
	assert.True(t, r.IsEmpty())
}

func TestDisconnectThenReconnectRestoresSeatWithinGrace(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HostDisconnectGrace = time.Minute
	r := New("ABCD-1234", cfg, "Alice", Palette[0], &fakeSink{})
	id, err := r.Join("Bob", Palette[1], &fakeSink{})
	require.NoError(t, err)

	r.Disconnect(id)
	players := r.Players()
	require.Len(t, players, 2)
	for _, p := range players {
		if p.ID == id {
			assert.False(t, p.Connected)
		}
	}

	newSink := &fakeSink{}
	p, err := r.Reconnect(id, newSink)
	require.NoError(t, err)
	assert.True(t, p.Connected)

	sink, ok := r.SinkFor(id)
	require.True(t, ok)
	assert.Same(t, newSink, sink)
}

func TestReconnectFailsAfterGraceWindowExpires(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HostDisconnectGrace = time.Millisecond
	r := New("ABCD-1234", cfg, "Alice", Palette[0], &fakeSink{})
	id, err := r.Join("Bob", Palette[1], &fakeSink{})
	require.NoError(t, err)

	r.Disconnect(id)
	time.Sleep(5 * time.Millisecond)

	_, err = r.Reconnect(id, &fakeSink{})
	assert.Error(t, err)
}

func TestReconnectFailsForNeverDisconnectedPlayer(t *testing.T) {
	r := New("ABCD-1234", DefaultConfig(), "Alice", Palette[0], &fakeSink{})
	_, err := r.Reconnect(1, &fakeSink{})
	assert.Error(t, err)
}

func TestExpireDisconnectedEvictsOnlyStalePlayersAndDefersHostMigration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HostDisconnectGrace = time.Millisecond
	cfg.HostMigrationEnabled = true
	r := New("ABCD-1234", cfg, "Alice", Palette[0], &fakeSink{})
	guestID, err := r.Join("Bob", Palette[1], &fakeSink{})
	require.NoError(t, err)

	r.Disconnect(r.HostID())
	assert.Equal(t, r.HostID(), PlayerID(1), "host migration must not happen immediately on Disconnect")

	time.Sleep(5 * time.Millisecond)
	evicted, empty := r.ExpireDisconnected()

	assert.Equal(t, []PlayerID{1}, evicted)
	assert.False(t, empty)
	assert.Equal(t, guestID, r.HostID(), "host migration happens once the grace window actually expires")
}
