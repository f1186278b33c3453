package relay

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/breakpointhq/breakpoint/internal/logging"
	"github.com/breakpointhq/breakpoint/internal/protocol"
)

var errChannelFull = errors.New("relay: client outbound channel full")

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Server upgrades /relay connections and routes their first frame to
// decide whether the connection is a room's host or a joining client.
type Server struct {
	state    *State
	upgrader websocket.Upgrader
}

// NewServer constructs a relay Server bounded at maxRooms concurrent rooms.
func NewServer(maxRooms int) *Server {
	return &Server{
		state: NewState(maxRooms),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes mounts the relay's single websocket endpoint.
func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/relay", s.serveWS)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "active_rooms": s.state.RoomCount()})
	})
}

// connSink adapts a raw *websocket.Conn, serialized through an outbound
// channel and writer goroutine, into a Sink.
type connSink struct {
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func newConnSink(conn *websocket.Conn) *connSink {
	return &connSink{conn: conn, send: make(chan []byte, 256)}
}

func (s *connSink) Send(frame []byte) error {
	select {
	case s.send <- frame:
		return nil
	default:
		s.close()
		return errChannelFull
	}
}

func (s *connSink) close() {
	s.closeOnce.Do(func() {
		close(s.send)
		_ = s.conn.Close()
	})
}

func (s *connSink) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer s.close()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) serveWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	_, firstMsg, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return
	}

	msgType, payload, err := protocol.Decode(firstMsg)
	if err != nil || msgType != protocol.JoinRoom {
		_ = conn.Close()
		return
	}

	var join protocol.JoinRoomPayload
	if err := protocol.DecodePayload(payload, &join); err != nil {
		_ = conn.Close()
		return
	}

	sink := newConnSink(conn)
	go sink.writePump()

	if join.RoomCode == "" {
		s.runHost(c, conn, sink)
	} else {
		s.runClient(c, conn, sink, join.RoomCode, firstMsg)
	}
}

func (s *Server) runHost(c *gin.Context, conn *websocket.Conn, sink *connSink) {
	code, err := NewRoomCode()
	if err != nil {
		sink.close()
		return
	}
	if err := s.state.CreateRoom(code, sink); err != nil {
		logging.Warn(c.Request.Context(), "failed to create relay room", zap.Error(err))
		sink.close()
		return
	}
	logging.Info(c.Request.Context(), "relay room created", zap.String("room_code", code))

	limiter := rate.NewLimiter(100, 100)
	s.readLoop(conn, limiter, func(data []byte) {
		s.state.RelayToClients(code, data)
	})

	s.state.DestroyRoom(code)
	sink.close()
	logging.Info(c.Request.Context(), "relay room destroyed (host disconnected)", zap.String("room_code", code))
}

func (s *Server) runClient(c *gin.Context, conn *websocket.Conn, sink *connSink, code string, firstMsg []byte) {
	clientID, err := s.state.JoinRoom(code, sink)
	if err != nil {
		logging.Warn(c.Request.Context(), "failed to join relay room", zap.String("room_code", code), zap.Error(err))
		sink.close()
		return
	}
	s.state.RelayToHost(code, firstMsg)
	logging.Info(c.Request.Context(), "client joined relay room", zap.String("room_code", code), zap.Uint64("client_id", clientID))

	limiter := rate.NewLimiter(50, 50)
	s.readLoop(conn, limiter, func(data []byte) {
		s.state.RelayToHost(code, data)
	})

	s.state.LeaveRoom(code, clientID)
	sink.close()
	logging.Info(c.Request.Context(), "client left relay room", zap.String("room_code", code), zap.Uint64("client_id", clientID))
}

// readLoop forwards every subsequent binary frame on conn to forward,
// dropping oversized or rate-limited frames without closing the
// connection, mirroring the main hub's per-socket ReadPump.
func (s *Server) readLoop(conn *websocket.Conn, limiter *rate.Limiter, forward func(data []byte)) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}
		if len(data) > protocol.MaxMessageSize {
			continue
		}
		if !limiter.Allow() {
			continue
		}
		forward(data)
	}
}
