package roommanager

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/breakpointhq/breakpoint/internal/room"
)

type fakeSink struct{}

func (fakeSink) Send([]byte) error { return nil }

func TestCreateGeneratesValidCode(t *testing.T) {
	m := New(10)
	r, err := m.Create("", "Alice", room.Palette[0], fakeSink{}, room.DefaultConfig())
	require.NoError(t, err)
	assert.True(t, room.IsValidCode(r.Code))
}

func TestCreateRejectsDuplicateExplicitCode(t *testing.T) {
	m := New(10)
	_, err := m.Create("ABCD-1234", "Alice", room.Palette[0], fakeSink{}, room.DefaultConfig())
	require.NoError(t, err)

	_, err = m.Create("ABCD-1234", "Bob", room.Palette[1], fakeSink{}, room.DefaultConfig())
	assert.Error(t, err)
}

func TestCreateRejectsAtCapacity(t *testing.T) {
	m := New(1)
	_, err := m.Create("", "Alice", room.Palette[0], fakeSink{}, room.DefaultConfig())
	require.NoError(t, err)

	_, err = m.Create("", "Bob", room.Palette[1], fakeSink{}, room.DefaultConfig())
	assert.Error(t, err)
}

func TestJoinUnknownCodeFails(t *testing.T) {
	m := New(10)
	_, _, err := m.Join("ZZZZ-0000", "Bob", room.Palette[1], fakeSink{})
	assert.Error(t, err)
}

func TestLeaveHostWithoutMigrationDestroysRoomOnceEmpty(t *testing.T) {
	m := New(10)
	r, err := m.Create("ABCD-1234", "Alice", room.Palette[0], fakeSink{}, room.DefaultConfig())
	require.NoError(t, err)

	m.Leave(r.Code, 1)

	_, ok := m.Get("ABCD-1234")
	assert.False(t, ok)

	_, _, err = m.Join("ABCD-1234", "Bob", room.Palette[1], fakeSink{})
	assert.Error(t, err)
}

func TestStatsCountsRoomsAndPlayers(t *testing.T) {
	m := New(10)
	r, err := m.Create("", "Alice", room.Palette[0], fakeSink{}, room.DefaultConfig())
	require.NoError(t, err)
	_, _, err = m.Join(r.Code, "Bob", room.Palette[1], fakeSink{})
	require.NoError(t, err)

	stats := m.Stats()
	assert.Equal(t, 1, stats.ActiveRooms)
	assert.Equal(t, 2, stats.TotalPlayers)
}

func TestDisconnectThenReconnectReseatsPlayerViaManager(t *testing.T) {
	m := New(10)
	cfg := room.DefaultConfig()
	cfg.HostDisconnectGrace = time.Minute
	r, err := m.Create("ABCD-1234", "Alice", room.Palette[0], fakeSink{}, cfg)
	require.NoError(t, err)

	m.Disconnect(r.Code, r.HostID())
	_, ok := r.SinkFor(r.HostID())
	assert.False(t, ok)

	reconnected, p, err := m.Reconnect(r.Code, r.HostID(), fakeSink{})
	require.NoError(t, err)
	assert.Same(t, r, reconnected)
	assert.True(t, p.Connected)
}

func TestSweepDisconnectsEvictsExpiredAndDestroysEmptyRooms(t *testing.T) {
	m := New(10)
	cfg := room.DefaultConfig()
	cfg.HostDisconnectGrace = time.Millisecond
	r, err := m.Create("ABCD-1234", "Alice", room.Palette[0], fakeSink{}, cfg)
	require.NoError(t, err)

	m.Disconnect(r.Code, r.HostID())
	time.Sleep(5 * time.Millisecond)

	m.SweepDisconnects()

	_, ok := m.Get("ABCD-1234")
	assert.False(t, ok, "the room's only player expired, so the room should be destroyed")
}

func TestReapIdleRemovesStaleRooms(t *testing.T) {
	m := New(10)
	_, err := m.Create("", "Alice", room.Palette[0], fakeSink{}, room.DefaultConfig())
	require.NoError(t, err)

	n := m.ReapIdle(-time.Second) // everything is "older" than a negative threshold
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, m.Stats().ActiveRooms)
}

func TestBackgroundSweepersExitCleanlyOnStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := New(10)
	stop := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); m.RunIdleReaper(stop, time.Millisecond, time.Hour) }()
	go func() { defer wg.Done(); m.RunDisconnectSweeper(stop, time.Millisecond) }()

	time.Sleep(5 * time.Millisecond)
	close(stop)
	wg.Wait()
}
