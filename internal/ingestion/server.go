// Package ingestion implements the Ingestion Surface: REST event intake,
// claim, GitHub webhook translation, SSE streaming, and status/health
// endpoints, wired as gin routes.
package ingestion

import (
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/breakpointhq/breakpoint/internal/events"
	"github.com/breakpointhq/breakpoint/internal/hub"
	"github.com/breakpointhq/breakpoint/internal/middleware"
	"github.com/breakpointhq/breakpoint/internal/ratelimit"
	"github.com/breakpointhq/breakpoint/internal/roommanager"
)

const maxIngestBodyBytes = 1 << 20 // 1 MiB

// Server owns the ingestion HTTP surface's dependencies.
type Server struct {
	store   *events.Store
	manager *roommanager.Manager

	bearerToken         string
	githubWebhookSecret string
	requireSignature    bool

	maxSSESubscribers int
	sseSubscribers    atomic.Int64

	startedAt time.Time
}

// NewServer constructs the ingestion Server.
func NewServer(store *events.Store, manager *roommanager.Manager, bearerToken, githubWebhookSecret string, requireSignature bool, maxSSESubscribers int) *Server {
	return &Server{
		store:               store,
		manager:             manager,
		bearerToken:         bearerToken,
		githubWebhookSecret: githubWebhookSecret,
		requireSignature:    requireSignature,
		maxSSESubscribers:   maxSSESubscribers,
		startedAt:           time.Now(),
	}
}

// RegisterRoutes wires the ingestion surface and the WebSocket upgrade
// endpoint onto r, as cmd/server/main.go calls during startup. limiter may
// be nil, in which case REST ingestion is unmetered (used by tests and by
// deployments that front the server with an external rate limiter).
func RegisterRoutes(r *gin.Engine, s *Server, h *hub.Hub, limiter *ratelimit.Limiter) {
	r.Use(otelgin.Middleware("breakpoint"))
	r.Use(cors.Default())
	r.Use(middleware.CorrelationID())

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/ws", h.ServeWS)

	webhook := r.Group("/api/v1/webhooks")
	if limiter != nil {
		webhook.Use(limiter.Middleware())
	}
	// The GitHub webhook authenticates via HMAC signature, not the bearer
	// token, so it is registered outside the bearer-protected group.
	webhook.POST("/github", s.githubWebhook)

	api := r.Group("/api/v1")
	if limiter != nil {
		api.Use(limiter.Middleware())
	}
	api.Use(BearerAuth(s.bearerToken))
	{
		api.POST("/events", s.postEvents)
		api.POST("/events/:id/claim", s.claimEvent)
		api.GET("/events/stream", s.streamEvents)
		api.GET("/status", s.status)
	}
}
