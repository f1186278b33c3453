package ingestion

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/breakpointhq/breakpoint/internal/metrics"
)

// connectionGuard increments a counter on construction and decrements it
// exactly once on release, a scoped-acquisition pattern for bounded
// concurrent resources.
type connectionGuard struct {
	released atomic.Bool
	release  func()
}

func newConnectionGuard(onAcquire, onRelease func()) *connectionGuard {
	onAcquire()
	return &connectionGuard{release: onRelease}
}

func (g *connectionGuard) Release() {
	if g.released.CompareAndSwap(false, true) {
		g.release()
	}
}

// streamEvents implements GET /api/v1/events/stream: a chunked SSE
// response with a hard subscriber cap enforced before the guard is even
// acquired.
func (s *Server) streamEvents(c *gin.Context) {
	current := s.sseSubscribers.Load()
	if int(current) >= s.maxSSESubscribers {
		c.Status(http.StatusServiceUnavailable)
		return
	}

	guard := newConnectionGuard(
		func() { s.sseSubscribers.Add(1); metrics.IncSSESubscriber() },
		func() { s.sseSubscribers.Add(-1); metrics.DecSSESubscriber() },
	)
	defer guard.Release()

	sub := s.store.Subscribe()
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		return
	}
	flusher.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			body, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if _, err := c.Writer.Write([]byte("id: " + event.ID + "\nevent: alert\ndata: " + string(body) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
