package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breakpointhq/breakpoint/internal/events"
	"github.com/breakpointhq/breakpoint/internal/protocol"
	"github.com/breakpointhq/breakpoint/internal/room"
	"github.com/breakpointhq/breakpoint/internal/roommanager"
)

type recordingSink struct {
	sent chan []byte
}

func newRecordingSink() *recordingSink { return &recordingSink{sent: make(chan []byte, 8)} }

func (s *recordingSink) Send(frame []byte) error {
	s.sent <- frame
	return nil
}

func TestBridgeBroadcastsInsertedEventsToAllRooms(t *testing.T) {
	store := events.NewStore(0, 0)
	manager := roommanager.New(10)
	sink := newRecordingSink()
	_, err := manager.Create("", "Host", room.Palette[0], sink, room.DefaultConfig())
	require.NoError(t, err)

	b := New(store, manager)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	store.Insert(events.Event{ID: "evt-1", EventType: events.TypePipelineFailed, Title: "CI failed", Tags: []string{}, Metadata: map[string]string{}})

	select {
	case frame := <-sink.sent:
		msgType, payload, err := protocol.Decode(frame)
		require.NoError(t, err)
		assert.Equal(t, protocol.AlertEvent, msgType)
		var p protocol.AlertEventPayload
		require.NoError(t, protocol.DecodePayload(payload, &p))
		assert.Equal(t, "evt-1", p.Event.ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for alert broadcast")
	}
}
