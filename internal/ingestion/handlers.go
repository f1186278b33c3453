package ingestion

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/breakpointhq/breakpoint/internal/events"
)

// postEvents implements POST /api/v1/events: accepts either a single Event
// object or a JSON array of Events.
func (s *Server) postEvents(c *gin.Context) {
	body, err := readBody(c)
	if err != nil || len(body) == 0 {
		c.Status(http.StatusBadRequest)
		return
	}

	incoming, err := parseEventBatch(body)
	if err != nil || len(incoming) == 0 {
		c.Status(http.StatusBadRequest)
		return
	}

	ids := make([]string, 0, len(incoming))
	for _, e := range incoming {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Timestamp == "" {
			e.Timestamp = events.TimestampNow()
		}
		if e.Tags == nil {
			e.Tags = []string{}
		}
		if e.Metadata == nil {
			e.Metadata = map[string]string{}
		}
		s.store.Insert(e)
		ids = append(ids, e.ID)
	}

	c.JSON(http.StatusCreated, gin.H{"ids": ids})
}

func parseEventBatch(body []byte) ([]events.Event, error) {
	var batch []events.Event
	if err := json.Unmarshal(body, &batch); err == nil {
		return batch, nil
	}
	var single events.Event
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, err
	}
	return []events.Event{single}, nil
}

type claimRequest struct {
	ClaimedBy string `json:"claimed_by"`
}

// claimEvent implements POST /api/v1/events/{id}/claim. An unknown id is
// 404; claiming an already-claimed event is a 200 no-op that leaves the
// original claimant in place.
func (s *Server) claimEvent(c *gin.Context) {
	id := c.Param("id")
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if !s.store.Claim(id, req.ClaimedBy, events.TimestampNow()) {
		if _, ok := s.store.Get(id); !ok {
			c.Status(http.StatusNotFound)
			return
		}
	}
	c.Status(http.StatusOK)
}

// githubWebhook implements POST /api/v1/webhooks/github.
func (s *Server) githubWebhook(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if s.githubWebhookSecret != "" || s.requireSignature {
		if !verifyGitHubSignature(s.githubWebhookSecret, body, c.GetHeader("X-Hub-Signature-256")) {
			c.Status(http.StatusUnauthorized)
			return
		}
	}

	event := translateGitHubWebhook(body)
	s.store.Insert(event)
	c.JSON(http.StatusOK, gin.H{"id": event.ID})
}

// status implements GET /api/v1/status.
func (s *Server) status(c *gin.Context) {
	stats := s.store.Stats()
	c.JSON(http.StatusOK, gin.H{
		"stats":            stats,
		"recent_events":    s.store.Recent(20),
		"pending_actions":  s.store.PendingActions(),
	})
}

// health implements GET /health.
func (s *Server) health(c *gin.Context) {
	roomStats := s.manager.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"version":             "0.1.0",
		"uptime_seconds":      int64(time.Since(s.startedAt).Seconds()),
		"sse_subscribers":     s.sseSubscribers.Load(),
		"active_rooms":        roomStats.ActiveRooms,
		"total_players":       roomStats.TotalPlayers,
	})
}

// ready implements GET /ready: a minimal liveness check, always healthy
// once the process can serve requests at all.
func (s *Server) ready(c *gin.Context) {
	c.Status(http.StatusOK)
}
