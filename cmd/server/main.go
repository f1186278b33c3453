// Command server runs the Breakpoint session server: the WebSocket Hub,
// the REST Ingestion Surface, and the Alert Bridge between them, behind one
// HTTP listener with graceful shutdown.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/breakpointhq/breakpoint/internal/adapters/github"
	"github.com/breakpointhq/breakpoint/internal/auth"
	"github.com/breakpointhq/breakpoint/internal/bridge"
	"github.com/breakpointhq/breakpoint/internal/config"
	"github.com/breakpointhq/breakpoint/internal/events"
	"github.com/breakpointhq/breakpoint/internal/game"
	"github.com/breakpointhq/breakpoint/internal/hub"
	"github.com/breakpointhq/breakpoint/internal/ingestion"
	"github.com/breakpointhq/breakpoint/internal/logging"
	"github.com/breakpointhq/breakpoint/internal/ratelimit"
	"github.com/breakpointhq/breakpoint/internal/room"
	"github.com/breakpointhq/breakpoint/internal/roommanager"
	"github.com/breakpointhq/breakpoint/internal/tracing"
)

const disconnectSweepInterval = 5 * time.Second

// sessionTokenTTL outlives DefaultConfig's HostDisconnectGrace by a margin
// so a token minted at join time is never the reason a reconnect fails
// before the room itself has given up the seat.
var sessionTokenTTL = room.DefaultConfig().HostDisconnectGrace + 30*time.Second

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to breakpoint.yaml")
	listenAddr := flag.String("listen-addr", "", "override the configured listen address")
	port := flag.Int("port", 0, "override the port of the listen address")
	maxRooms := flag.Int("max-rooms", 0, "override the configured maximum number of rooms")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *port > 0 {
		host, _, err := net.SplitHostPort(cfg.ListenAddr)
		if err != nil {
			host = ""
		}
		cfg.ListenAddr = net.JoinHostPort(host, strconv.Itoa(*port))
	}
	if *maxRooms > 0 {
		cfg.Limits.MaxRooms = *maxRooms
	}

	if err := logging.Initialize(cfg.GoEnv != "production"); err != nil {
		panic(err)
	}
	ctx := context.Background()

	if cfg.OTLPCollectorAddr != "" {
		shutdown, err := tracing.InitTracer(ctx, "breakpoint", cfg.OTLPCollectorAddr)
		if err != nil {
			logging.Fatal(ctx, "failed to init tracing", zap.Error(err))
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logging.Fatal(ctx, "failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	limiter, err := ratelimit.New(cfg.Limits.IngestRate, redisClient)
	if err != nil {
		logging.Fatal(ctx, "failed to build ingestion rate limiter", zap.Error(err))
	}

	store := events.NewStore(cfg.Limits.MaxStoredEvents, cfg.Limits.BroadcastCapacity)
	manager := roommanager.New(cfg.Limits.MaxRooms)

	issuer, err := sessionIssuer(cfg)
	if err != nil {
		logging.Fatal(ctx, "failed to build session issuer", zap.Error(err))
	}

	h := hub.NewHub(manager, store, issuer, game.NewDefaultRegistry())
	ingestionServer := ingestion.NewServer(store, manager, cfg.Auth.BearerToken, cfg.Auth.GitHubWebhookSecret, cfg.Auth.RequireSignature, cfg.Limits.MaxSSESubscribers)

	b := bridge.New(store, manager)
	go b.Run(ctx)

	stop := make(chan struct{})
	go manager.RunIdleReaper(stop, time.Minute, cfg.IdleRoomTimeout)
	go manager.RunDisconnectSweeper(stop, disconnectSweepInterval)

	if cfg.GitHub.Enabled {
		poller := github.New(cfg.GitHub, store)
		pollerCtx, cancelPoller := context.WithCancel(ctx)
		defer cancelPoller()
		go poller.Run(pollerCtx)
	}

	gin.SetMode(ginModeFor(cfg.GoEnv))
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	ingestion.RegisterRoutes(router, ingestionServer, h, limiter)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}

	go func() {
		logging.Info(ctx, "breakpoint server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal(ctx, "server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	close(stop)
	logging.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "server forced to shutdown", zap.Error(err))
	}
}

// sessionIssuer builds the reconnect-token issuer from the configured
// secret, generating an ephemeral one when none is set so a single-process
// deployment still gets reconnection without operator setup — at the cost
// of every outstanding token becoming invalid across a restart.
func sessionIssuer(cfg *config.Config) (*auth.Issuer, error) {
	secret := []byte(cfg.Auth.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		logging.Warn(context.Background(), "no auth.session_secret configured, generated an ephemeral one for this process")
	}
	return auth.NewIssuer(secret, sessionTokenTTL), nil
}

func ginModeFor(goEnv string) string {
	if goEnv == "production" {
		return gin.ReleaseMode
	}
	return gin.DebugMode
}
