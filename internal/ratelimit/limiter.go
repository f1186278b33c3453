// Package ratelimit enforces the REST/webhook ingress IP rate limit. Unlike
// the WebSocket path's in-process token buckets (internal/hub), this
// surface is backed by ulule/limiter/v3 so the limit is shared across
// replicas when a Redis store is configured.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	"github.com/breakpointhq/breakpoint/internal/logging"
	"github.com/breakpointhq/breakpoint/internal/metrics"
)

// Limiter rate-limits REST ingestion traffic by client IP.
type Limiter struct {
	ip *limiter.Limiter
}

// New builds a Limiter enforcing formattedRate (e.g. "100-M" for 100 per
// minute) per IP. When redisClient is non-nil, limit state is shared via
// Redis; otherwise it is process-local, matching a single-instance deploy.
func New(formattedRate string, redisClient *redis.Client) (*Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formattedRate)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: invalid rate %q: %w", formattedRate, err)
	}

	var store limiter.Store
	if redisClient != nil {
		store, err = sredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "breakpoint:ratelimit:"})
		if err != nil {
			return nil, fmt.Errorf("ratelimit: redis store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	return &Limiter{ip: limiter.New(store, rate)}, nil
}

// Middleware rejects requests once the calling IP exceeds its rate,
// failing open (allowing the request through, with a logged warning) if
// the backing store itself errors.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.ClientIP()

		result, err := l.ip.Get(ctx, ip)
		if err != nil {
			logging.Warn(ctx, "rate limiter store failed, allowing request", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset, 10))

		if result.Reached {
			metrics.RateLimitExceeded.WithLabelValues("ingestion").Inc()
			c.Header("Retry-After", strconv.FormatInt(result.Reset, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many requests",
				"retry_after": result.Reset,
			})
			return
		}

		c.Next()
	}
}
