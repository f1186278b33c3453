package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEvent(id string) Event {
	return Event{
		ID:        id,
		EventType: TypePipelineFailed,
		Source:    "github",
		Priority:  PriorityNotice,
		Title:     "CI failed",
		Timestamp: "2026-01-01T00:00:00Z",
		Tags:      []string{},
		Metadata:  map[string]string{},
	}
}

func TestInsertAndGet(t *testing.T) {
	s := NewStore(0, 0)
	s.Insert(makeEvent("evt-1"))
	se, ok := s.Get("evt-1")
	require.True(t, ok)
	assert.Equal(t, "evt-1", se.Event.ID)
}

func TestBoundedEviction(t *testing.T) {
	s := NewStore(500, 0)
	for i := 0; i < 600; i++ {
		s.Insert(makeEvent(fmt.Sprintf("evt-%d", i)))
	}
	assert.Equal(t, 500, s.Stats().TotalStored)
	_, ok := s.Get("evt-0")
	assert.False(t, ok)
	_, ok = s.Get("evt-99")
	assert.False(t, ok)
	_, ok = s.Get("evt-100")
	assert.True(t, ok)
	_, ok = s.Get("evt-599")
	assert.True(t, ok)
}

func TestCustomCapacity(t *testing.T) {
	s := NewStore(10, 0)
	for i := 0; i < 15; i++ {
		s.Insert(makeEvent(fmt.Sprintf("evt-%d", i)))
	}
	assert.Equal(t, 10, s.Stats().TotalStored)
}

func TestClaimFirstWriterWins(t *testing.T) {
	s := NewStore(0, 0)
	s.Insert(makeEvent("evt-1"))

	assert.True(t, s.Claim("evt-1", "alice", "t1"))
	se, _ := s.Get("evt-1")
	assert.Equal(t, "alice", *se.ClaimedBy)

	assert.False(t, s.Claim("evt-1", "bob", "t2"))
	se, _ = s.Get("evt-1")
	assert.Equal(t, "alice", *se.ClaimedBy) // unchanged
}

func TestClaimNonexistentEventFails(t *testing.T) {
	s := NewStore(0, 0)
	assert.False(t, s.Claim("missing", "alice", "t1"))
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	s := NewStore(0, 0)
	s.Insert(makeEvent("evt-1"))
	s.Insert(makeEvent("evt-2"))
	s.Insert(makeEvent("evt-3"))

	recent := s.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "evt-3", recent[0].Event.ID)
	assert.Equal(t, "evt-2", recent[1].Event.ID)
}

func TestPendingActionsFiltersUnclaimedActionRequired(t *testing.T) {
	s := NewStore(0, 0)
	e1 := makeEvent("evt-1")
	e1.ActionRequired = true
	s.Insert(e1)
	s.Insert(makeEvent("evt-2"))

	pending := s.PendingActions()
	require.Len(t, pending, 1)
	assert.Equal(t, "evt-1", pending[0].Event.ID)

	s.Claim("evt-1", "alice", "t1")
	assert.Empty(t, s.PendingActions())
}

func TestStatsAreCorrect(t *testing.T) {
	s := NewStore(0, 0)
	e1 := makeEvent("evt-1")
	e1.ActionRequired = true
	s.Insert(e1)
	s.Insert(makeEvent("evt-2"))
	s.Claim("evt-1", "alice", "t1")

	stats := s.Stats()
	assert.Equal(t, 2, stats.TotalStored)
	assert.Equal(t, 1, stats.TotalClaimed)
	assert.Equal(t, 0, stats.TotalPendingActions)
}

func TestBroadcastSubscriberReceivesEventsInOrder(t *testing.T) {
	s := NewStore(0, 0)
	sub := s.Subscribe()
	defer sub.Close()

	s.Insert(makeEvent("evt-1"))
	s.Insert(makeEvent("evt-2"))

	select {
	case e := <-sub.Events():
		assert.Equal(t, "evt-1", e.ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first event")
	}
	select {
	case e := <-sub.Events():
		assert.Equal(t, "evt-2", e.ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second event")
	}
}

func TestSubscribeDoesNotReplayPastEvents(t *testing.T) {
	s := NewStore(0, 0)
	s.Insert(makeEvent("evt-1"))
	sub := s.Subscribe()
	defer sub.Close()

	select {
	case e := <-sub.Events():
		t.Fatalf("unexpected replay of %s", e.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLaggingSubscriberDropsOldestAndReportsSkip(t *testing.T) {
	s := NewStore(0, 2)
	sub := s.Subscribe()
	defer sub.Close()

	for i := 0; i < 5; i++ {
		s.Insert(makeEvent(fmt.Sprintf("evt-%d", i)))
	}

	assert.Greater(t, sub.Skipped(), uint64(0))
}
