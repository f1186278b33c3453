package hub

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/breakpointhq/breakpoint/internal/auth"
	"github.com/breakpointhq/breakpoint/internal/events"
	"github.com/breakpointhq/breakpoint/internal/game"
	"github.com/breakpointhq/breakpoint/internal/logging"
	"github.com/breakpointhq/breakpoint/internal/metrics"
	"github.com/breakpointhq/breakpoint/internal/protocol"
	"github.com/breakpointhq/breakpoint/internal/room"
	"github.com/breakpointhq/breakpoint/internal/roommanager"
)

// Hub wires socket-level Clients to the Room Manager and Event Store,
// implementing Dispatcher's direction-enforced routing.
type Hub struct {
	manager  *roommanager.Manager
	store    *events.Store
	issuer   *auth.Issuer
	games    *game.Registry
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub wires a Hub. issuer may be nil, in which case JoinRoom never
// mints or honors a reconnect session token — a fresh Join/Create happens
// on every connection, matching a deployment with no configured session
// secret. games is the registry a host's RequestGameStart is resolved
// against; a nil registry makes every start request a no-op.
func NewHub(manager *roommanager.Manager, store *events.Store, issuer *auth.Issuer, games *game.Registry) *Hub {
	return &Hub{
		manager: manager,
		store:   store,
		issuer:  issuer,
		games:   games,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*Client]struct{}),
	}
}

// ServeWS upgrades an HTTP request to a WebSocket and starts the
// connection's pumps. The socket starts in the PreJoin state: the only
// accepted frame is JoinRoom, everything else is dropped until a room is
// joined.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, h, false)
	h.track(client)
	metrics.IncWebSocketConnection()

	go client.WritePump()
	client.ReadPump(context.Background())
}

func (h *Hub) track(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) untrack(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// Route implements Dispatcher. Frames are enforced per direction: JoinRoom
// and LeaveRoom are server operations the hub handles itself; PlayerInput
// is applied directly to the room's authoritative Game; ChatMessage and
// ClaimAlert are forwarded to (or actioned on behalf of) the room.
func (h *Hub) Route(c *Client, msgType protocol.MessageType, payload []byte) {
	ctx := context.Background()

	switch msgType {
	case protocol.JoinRoom:
		h.handleJoinRoom(ctx, c, payload)
	case protocol.LeaveRoom:
		h.handleLeaveRoom(ctx, c)
	case protocol.RequestGameStart:
		h.handleRequestGameStart(ctx, c, payload)
	case protocol.PlayerInput:
		h.handlePlayerInput(c, payload)
	case protocol.ClaimAlert:
		h.handleClaimAlert(ctx, c, payload)
	case protocol.ChatMessage:
		h.forwardToHost(c, msgType, payload)
	default:
		logging.Warn(ctx, "dropping frame with no server-side route", zap.String("message_type", msgType.String()))
	}
}

func (h *Hub) handleJoinRoom(ctx context.Context, c *Client, payload []byte) {
	var req protocol.JoinRoomPayload
	if err := protocol.DecodePayload(payload, &req); err != nil {
		h.sendJoinFailure(c, "malformed join request")
		return
	}

	if r, playerID, ok := h.tryReconnect(c, req); ok {
		h.finishJoin(ctx, c, r, playerID)
		return
	}

	color := h.defaultColorFor(req)
	if req.Color != (protocol.PlayerColor{}) {
		color = room.Color{R: req.Color.R, G: req.Color.G, B: req.Color.B}
	}

	var r *room.Room
	var playerID room.PlayerID
	var err error

	if req.RoomCode == "" {
		r, err = h.manager.Create("", req.PlayerName, color, c, room.DefaultConfig())
		if err == nil {
			playerID = r.HostID()
			c.PromoteToHost()
		}
	} else {
		r, playerID, err = h.manager.Join(req.RoomCode, req.PlayerName, color, c)
		if err == nil && playerID == r.HostID() {
			c.PromoteToHost()
		}
	}

	if err != nil {
		h.sendJoinFailure(c, err.Error())
		return
	}

	h.finishJoin(ctx, c, r, playerID)
}

// defaultColorFor picks the next unclaimed palette color for a join that
// specifies no explicit color: the host of a new room always gets
// Palette[0], and a guest joining an existing room gets the palette color at
// the current player count, cycling via room.ColorAt once the room has more
// players than the palette has colors.
func (h *Hub) defaultColorFor(req protocol.JoinRoomPayload) room.Color {
	if req.RoomCode == "" {
		return room.Palette[0]
	}
	r, ok := h.manager.Get(req.RoomCode)
	if !ok {
		return room.Palette[0]
	}
	return room.ColorAt(room.Palette, len(r.Players()))
}

// tryReconnect honors a JoinRoom frame's session_token, if present and
// verifiable, by reattaching c's sink to the player seat it names instead
// of seating a fresh player. A missing issuer, missing token, or any
// verification/reconnect failure falls through to a normal join — an
// unrecognized token is treated as a new player, not an error.
func (h *Hub) tryReconnect(c *Client, req protocol.JoinRoomPayload) (*room.Room, room.PlayerID, bool) {
	if h.issuer == nil || req.SessionToken == nil {
		return nil, 0, false
	}
	claims, err := h.issuer.Verify(*req.SessionToken)
	if err != nil {
		return nil, 0, false
	}
	r, p, err := h.manager.Reconnect(claims.RoomCode, room.PlayerID(claims.PlayerID), c)
	if err != nil {
		return nil, 0, false
	}
	if p.IsHost {
		c.PromoteToHost()
	}
	return r, p.ID, true
}

func (h *Hub) finishJoin(ctx context.Context, c *Client, r *room.Room, playerID room.PlayerID) {
	c.RoomCode = r.Code
	c.PlayerID = playerID

	code := r.Code
	pid := uint32(playerID)
	resp := protocol.JoinRoomResponsePayload{Success: true, PlayerID: &pid, RoomCode: &code}

	if h.issuer != nil {
		if token, err := h.issuer.Issue(r.Code, pid); err == nil {
			resp.SessionToken = &token
		} else {
			logging.Warn(ctx, "failed to mint session token", zap.Error(err))
		}
	}

	frame, err := protocol.Encode(protocol.JoinRoomResponse, resp)
	if err != nil {
		logging.Warn(ctx, "failed to encode join response", zap.Error(err))
		return
	}
	_ = c.Send(frame)

	h.broadcastPlayerList(r)
}

func (h *Hub) sendJoinFailure(c *Client, reason string) {
	resp := protocol.JoinRoomResponsePayload{Success: false, Error: &reason}
	frame, err := protocol.Encode(protocol.JoinRoomResponse, resp)
	if err != nil {
		return
	}
	_ = c.Send(frame)
}

func (h *Hub) handleLeaveRoom(ctx context.Context, c *Client) {
	if c.RoomCode == "" {
		return
	}
	r, ok := h.manager.Get(c.RoomCode)
	if !ok {
		return
	}
	h.manager.Leave(c.RoomCode, c.PlayerID)
	if !r.IsEmpty() {
		h.broadcastPlayerList(r)
	}
}

// handleRequestGameStart lets the room's current host pick a registered
// game and begin it. Requests from a non-host, for an unknown game id, or
// while the room isn't in Lobby are silently ignored — the client's own UI
// is expected to only offer the action to the host of a lobby room.
func (h *Hub) handleRequestGameStart(ctx context.Context, c *Client, payload []byte) {
	if h.games == nil {
		return
	}
	r, ok := h.manager.Get(c.RoomCode)
	if !ok || c.PlayerID != r.HostID() || r.GetState() != room.StateLobby {
		return
	}

	var req protocol.RequestGameStartPayload
	if err := protocol.DecodePayload(payload, &req); err != nil {
		return
	}
	g, ok := h.games.Create(req.GameName)
	if !ok {
		logging.Warn(ctx, "request to start unknown game", zap.String("game_name", req.GameName))
		return
	}

	players := r.Players()
	g.Init(players, game.Config{RoundCount: r.Config.RoundCount, RoundDuration: r.Config.RoundDuration})
	tracker := room.NewRoundTracker(int(r.Config.RoundCount), r.PlayerIDs())
	r.StartGame(g, tracker)

	h.broadcastGameStart(ctx, r, req.GameName, players)
	go h.runGameLoop(r)
}

func (h *Hub) broadcastGameStart(ctx context.Context, r *room.Room, gameName string, players []room.Player) {
	frame, err := protocol.Encode(protocol.GameStart, protocol.GameStartPayload{
		GameName: gameName,
		Players:  wirePlayers(players),
		HostID:   uint32(r.HostID()),
	})
	if err != nil {
		logging.Warn(ctx, "failed to encode game start frame", zap.Error(err))
		return
	}
	h.broadcastToRoom(r, frame)
}

func (h *Hub) handlePlayerInput(c *Client, payload []byte) {
	r, ok := h.manager.Get(c.RoomCode)
	if !ok {
		return
	}
	r.ApplyPlayerInput(c.PlayerID, payload)
}

func (h *Hub) handleClaimAlert(ctx context.Context, c *Client, payload []byte) {
	var req protocol.ClaimAlertPayload
	if err := protocol.DecodePayload(payload, &req); err != nil {
		return
	}
	r, ok := h.manager.Get(c.RoomCode)
	if !ok {
		return
	}

	claimedBy := req.PlayerID
	if !h.store.Claim(req.EventID, strconv.FormatUint(uint64(claimedBy), 10), events.TimestampNow()) {
		return
	}

	frame, err := protocol.Encode(protocol.AlertClaimed, protocol.AlertClaimedPayload{EventID: req.EventID, ClaimedBy: claimedBy})
	if err != nil {
		logging.Warn(ctx, "failed to encode alert claimed frame", zap.Error(err))
		return
	}
	h.broadcastToRoom(r, frame)
}

// broadcastToRoom delivers an already-encoded frame to every participant
// of r, used by every host-output frame (PlayerList, GameStart, GameState,
// RoundEnd, GameEnd, AlertClaimed).
func (h *Hub) broadcastToRoom(r *room.Room, frame []byte) {
	for _, sink := range r.AllSinks() {
		_ = sink.Send(frame)
	}
}

func wirePlayers(players []room.Player) []protocol.WirePlayer {
	out := make([]protocol.WirePlayer, 0, len(players))
	for _, p := range players {
		out = append(out, protocol.WirePlayer{
			PlayerID:    uint32(p.ID),
			DisplayName: p.DisplayName,
			Color:       protocol.PlayerColor{R: p.Color.R, G: p.Color.G, B: p.Color.B},
			IsHost:      p.IsHost,
			IsSpectator: p.IsSpectator,
		})
	}
	return out
}

// forwardToHost relays a raw client→host frame to the room's host
// connection only, per the §6.1 direction table. The payload is already
// the msgpack-encoded body produced by protocol.Decode, so it is
// re-wrapped with its discriminator byte rather than re-marshaled.
func (h *Hub) forwardToHost(c *Client, msgType protocol.MessageType, payload []byte) {
	r, ok := h.manager.Get(c.RoomCode)
	if !ok {
		return
	}
	sink, ok := r.SinkFor(r.HostID())
	if !ok {
		return
	}
	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, byte(msgType))
	frame = append(frame, payload...)
	_ = sink.Send(frame)
}

func (h *Hub) broadcastPlayerList(r *room.Room) {
	players := r.Players()
	frame, err := protocol.Encode(protocol.PlayerList, protocol.PlayerListPayload{Players: wirePlayers(players), HostID: uint32(r.HostID())})
	if err != nil {
		return
	}
	h.broadcastToRoom(r, frame)
}

// HandleDisconnect implements Dispatcher: a closed socket either enters its
// room's reconnect grace window (when a session issuer is configured, so a
// reconnect is actually possible) or leaves immediately.
func (h *Hub) HandleDisconnect(c *Client) {
	h.untrack(c)
	if c.RoomCode == "" {
		return
	}
	r, ok := h.manager.Get(c.RoomCode)
	if !ok {
		return
	}
	if h.issuer != nil {
		h.manager.Disconnect(c.RoomCode, c.PlayerID)
		return
	}
	h.manager.Leave(c.RoomCode, c.PlayerID)
	if !r.IsEmpty() {
		h.broadcastPlayerList(r)
	}
}
