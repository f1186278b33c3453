// Package bridge implements the Alert Bridge: a long-lived task that
// subscribes to the Event Store's broadcast and fans each event out to
// every active room as an AlertEvent frame.
package bridge

import (
	"context"

	"go.uber.org/zap"

	"github.com/breakpointhq/breakpoint/internal/events"
	"github.com/breakpointhq/breakpoint/internal/logging"
	"github.com/breakpointhq/breakpoint/internal/protocol"
	"github.com/breakpointhq/breakpoint/internal/roommanager"
)

// Bridge relays Event Store broadcasts into every room's sockets.
type Bridge struct {
	store   *events.Store
	manager *roommanager.Manager
}

// New constructs a Bridge over the given store and room manager.
func New(store *events.Store, manager *roommanager.Manager) *Bridge {
	return &Bridge{store: store, manager: manager}
}

// Run subscribes to the store and broadcasts until ctx is canceled.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.store.Subscribe()
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			b.broadcast(ctx, event)
		}
	}
}

func (b *Bridge) broadcast(ctx context.Context, event events.Event) {
	wire := protocol.WireEvent{
		ID:             event.ID,
		EventType:      string(event.EventType),
		Source:         event.Source,
		Priority:       string(event.Priority),
		Title:          event.Title,
		Body:           event.Body,
		Timestamp:      event.Timestamp,
		URL:            event.URL,
		Actor:          event.Actor,
		Tags:           event.Tags,
		ActionRequired: event.ActionRequired,
		GroupKey:       event.GroupKey,
		ExpiresAt:      event.ExpiresAt,
		Metadata:       event.Metadata,
	}

	frame, err := protocol.Encode(protocol.AlertEvent, protocol.AlertEventPayload{Event: wire})
	if err != nil {
		logging.Warn(ctx, "failed to encode alert event frame", zap.Error(err))
		return
	}
	b.manager.BroadcastToAllRooms(frame)
	logging.Info(ctx, "alert bridge broadcast", zap.String("event_id", event.ID), zap.String("event_type", string(event.EventType)))
}
