// Package hub implements the per-socket Connection Hub: frame decoding,
// rate limiting, and direction-enforced forwarding.
package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/breakpointhq/breakpoint/internal/logging"
	"github.com/breakpointhq/breakpoint/internal/metrics"
	"github.com/breakpointhq/breakpoint/internal/protocol"
	"github.com/breakpointhq/breakpoint/internal/room"
)

var errChannelFull = errors.New("hub: client outbound channel full")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	outboundBuffer = 64
)

// wsConnection is the subset of *websocket.Conn the Client depends on,
// narrowed so tests can substitute a fake.
type wsConnection interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	SetWriteDeadline(time.Time) error
	SetReadDeadline(time.Time) error
	SetPongHandler(func(string) error)
	Close() error
}

// Dispatcher is implemented by Hub and invoked by a Client's readPump for
// every decoded frame.
type Dispatcher interface {
	Route(c *Client, msgType protocol.MessageType, payload []byte)
	HandleDisconnect(c *Client)
}

// Client owns one socket's read/write pumps and rate limiting.
type Client struct {
	conn     wsConnection
	send     chan []byte
	dispatch Dispatcher

	RoomCode string
	PlayerID room.PlayerID
	IsHost   bool

	limiter *rate.Limiter

	closeOnce sync.Once
}

// NewClient constructs a Client with a token-bucket limiter sized by role
// (host: 100 tokens @ 100/s, client: 50 @ 50/s).
func NewClient(conn wsConnection, dispatch Dispatcher, isHost bool) *Client {
	var limiter *rate.Limiter
	if isHost {
		limiter = rate.NewLimiter(rate.Limit(100), 100)
	} else {
		limiter = rate.NewLimiter(rate.Limit(50), 50)
	}
	return &Client{
		conn:     conn,
		send:     make(chan []byte, outboundBuffer),
		dispatch: dispatch,
		IsHost:   isHost,
		limiter:  limiter,
	}
}

// PromoteToHost widens the rate limit once the hub learns, after JoinRoom
// is processed, that this connection owns the room.
func (c *Client) PromoteToHost() {
	c.IsHost = true
	c.limiter = rate.NewLimiter(rate.Limit(100), 100)
}

// Send implements room.Sink: a non-blocking enqueue onto the outbound
// channel. A full channel means the writer has fallen behind; the
// connection is considered failed and torn down.
func (c *Client) Send(frame []byte) error {
	select {
	case c.send <- frame:
		return nil
	default:
		c.Close()
		return errChannelFull
	}
}

// Close tears down the connection exactly once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// ReadPump decodes frames off the socket, applies the per-connection rate
// limit and size cap, and hands well-formed frames to the dispatcher. A
// single bad frame is dropped, never closing the connection.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.dispatch.HandleDisconnect(c)
		metrics.DecWebSocketConnection()
		c.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if len(data) > protocol.MaxMessageSize {
			logging.Warn(ctx, "dropping oversized frame", zap.Int("size", len(data)))
			continue
		}
		if !c.limiter.Allow() {
			metrics.RateLimitExceeded.WithLabelValues("websocket").Inc()
			continue
		}
		msgType, payload, err := protocol.Decode(data)
		if err != nil {
			logging.Warn(ctx, "dropping undecodable frame", zap.Error(err))
			continue
		}
		metrics.WebsocketFrames.WithLabelValues(msgType.String(), "received").Inc()
		c.dispatch.Route(c, msgType, payload)
	}
}

// WritePump drains the outbound channel to the socket with a write
// deadline, and pings periodically to detect dead peers.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
