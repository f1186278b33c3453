// Command relay runs the standalone, protocol-agnostic relay server: the
// first JoinRoom with an empty room code becomes host, every later joiner
// is a client whose frames are forwarded to that host, and host frames fan
// out to every client.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/breakpointhq/breakpoint/internal/logging"
	"github.com/breakpointhq/breakpoint/internal/relay"

	"go.uber.org/zap"
)

func main() {
	port := flag.Int("port", 8081, "listen port")
	maxRooms := flag.Int("max-rooms", 100, "maximum simultaneous relay rooms")
	devMode := flag.Bool("dev", false, "enable human-readable development logging")
	flag.Parse()

	if err := logging.Initialize(*devMode); err != nil {
		panic(err)
	}
	ctx := context.Background()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	server := relay.NewServer(*maxRooms)
	server.RegisterRoutes(router)

	addr := ":" + strconv.Itoa(*port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		logging.Info(ctx, "breakpoint relay listening", zap.String("addr", addr), zap.Int("max_rooms", *maxRooms))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal(ctx, "relay server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Info(ctx, "shutting down relay")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error(ctx, "relay server forced to shutdown", zap.Error(err))
	}
}
