package events

import (
	"sync"
	"sync/atomic"

	"github.com/breakpointhq/breakpoint/internal/metrics"
)

// DefaultMaxStoredEvents and DefaultBroadcastCapacity are the bounds used
// when a deployment doesn't override them.
const (
	DefaultMaxStoredEvents   = 500
	DefaultBroadcastCapacity = 1024
)

// Subscription is a broadcast receiver returned by Store.Subscribe. A
// subscription created after an event was inserted will never observe that
// event (no replay).
type Subscription struct {
	events chan Event
	store  *Store
}

// Events returns the channel of broadcast events for this subscription.
func (s *Subscription) Events() <-chan Event { return s.events }

// Skipped returns how many events this subscription has missed because it
// fell behind the broadcast channel's capacity.
func (s *Subscription) Skipped() uint64 {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	if sub, ok := s.store.subsByChan[s.events]; ok {
		return atomic.LoadUint64(&sub.skipped)
	}
	return 0
}

// Close unregisters the subscription from the store's fan-out.
func (s *Subscription) Close() {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if sub, ok := s.store.subsByChan[s.events]; ok {
		delete(s.store.subs, sub)
		delete(s.store.subsByChan, s.events)
		close(sub.ch)
	}
}

type subscriber struct {
	ch      chan Event
	skipped uint64
}

// Store is the Event Store: a bounded, ordered FIFO of StoredEvent plus a
// single-producer/many-consumer broadcast of newly inserted Events.
type Store struct {
	mu sync.RWMutex

	events   []StoredEvent
	capacity int

	broadcastCapacity int
	subs              map[*subscriber]struct{}
	subsByChan        map[chan Event]*subscriber
}

// NewStore constructs an Event Store with the given capacity and broadcast
// queue depth. Non-positive values fall back to the package defaults.
func NewStore(capacity, broadcastCapacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultMaxStoredEvents
	}
	if broadcastCapacity <= 0 {
		broadcastCapacity = DefaultBroadcastCapacity
	}
	return &Store{
		capacity:          capacity,
		broadcastCapacity: broadcastCapacity,
		subs:              make(map[*subscriber]struct{}),
		subsByChan:        make(map[chan Event]*subscriber),
	}
}

// Insert appends event, evicting the oldest entry if the store is at
// capacity, then publishes it to every subscriber. Publishing happens
// under the same lock as the append (publish never blocks), so every
// subscriber receives events in insertion order even when Insert is called
// concurrently.
func (s *Store) Insert(event Event) {
	s.mu.Lock()
	s.events = append(s.events, StoredEvent{Event: event})
	evicted := 0
	for len(s.events) > s.capacity {
		s.events = s.events[1:]
		evicted++
	}
	for sub := range s.subs {
		publish(sub, event)
	}
	s.mu.Unlock()

	for i := 0; i < evicted; i++ {
		metrics.EventsEvicted.Inc()
	}
	metrics.EventsIngested.WithLabelValues(event.Source).Inc()
}

// publish performs a non-blocking send, dropping the oldest buffered event
// for this subscriber (and recording the skip) when its channel is full —
// never blocking the inserting goroutine.
func publish(sub *subscriber, event Event) {
	select {
	case sub.ch <- event:
		return
	default:
	}
	select {
	case <-sub.ch:
		atomic.AddUint64(&sub.skipped, 1)
		metrics.EventBroadcastSkipped.Inc()
	default:
	}
	select {
	case sub.ch <- event:
	default:
	}
}

// Claim implements first-writer-wins: if the event exists and is unclaimed,
// its claim metadata is set and true is returned; otherwise (missing or
// already claimed) this is a no-op returning false.
func (s *Store) Claim(eventID, claimedBy, at string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].Event.ID == eventID {
			if s.events[i].ClaimedBy != nil {
				return false
			}
			s.events[i].ClaimedBy = &claimedBy
			s.events[i].ClaimedAt = &at
			return true
		}
	}
	return false
}

// Get returns the stored event with the given id, if present.
func (s *Store) Get(eventID string) (StoredEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, se := range s.events {
		if se.Event.ID == eventID {
			return se, true
		}
	}
	return StoredEvent{}, false
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) []StoredEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > len(s.events) {
		n = len(s.events)
	}
	out := make([]StoredEvent, n)
	for i := 0; i < n; i++ {
		out[i] = s.events[len(s.events)-1-i]
	}
	return out
}

// PendingActions returns entries with ActionRequired=true and no claim,
// oldest first.
func (s *Store) PendingActions() []StoredEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []StoredEvent
	for _, se := range s.events {
		if se.Event.ActionRequired && se.ClaimedBy == nil {
			out = append(out, se)
		}
	}
	return out
}

// Stats computes aggregate counts over the current contents.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := Stats{TotalStored: len(s.events)}
	for _, se := range s.events {
		if se.ClaimedBy != nil {
			stats.TotalClaimed++
		}
		if se.Event.ActionRequired && se.ClaimedBy == nil {
			stats.TotalPendingActions++
		}
	}
	return stats
}

// Subscribe registers a new broadcast receiver. The returned Subscription
// must be closed by the caller when no longer needed.
func (s *Store) Subscribe() *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &subscriber{ch: make(chan Event, s.broadcastCapacity)}
	s.subs[sub] = struct{}{}
	s.subsByChan[sub.ch] = sub
	return &Subscription{events: sub.ch, store: s}
}
