// Package protocol implements Breakpoint's binary wire format: a one-byte
// MessageType discriminator followed by a msgpack-encoded payload, shared by
// both the main server and the auxiliary relay.
package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MessageType is the first byte of every frame. Values are taken verbatim
// from the original protocol definition.
type MessageType byte

const (
	PlayerInput   MessageType = 0x01
	JoinRoom      MessageType = 0x02
	LeaveRoom     MessageType = 0x03
	ClaimAlert    MessageType = 0x04
	ChatMessage   MessageType = 0x05

	JoinRoomResponse MessageType = 0x06

	// RequestGameStart is a host-only request to start a named game in the
	// room's current lobby. The server decides whether to honor it (room
	// state, requester identity, known game id) rather than trusting the
	// client's own state machine.
	RequestGameStart MessageType = 0x07

	GameState  MessageType = 0x10
	PlayerList MessageType = 0x11
	RoomConfig MessageType = 0x12
	GameStart  MessageType = 0x13
	RoundEnd   MessageType = 0x14
	GameEnd    MessageType = 0x15

	// OverlayConfig is a supplemental host→client frame carrying room-level
	// alert-overlay policy, separate from the game's RoomConfig frame.
	OverlayConfig MessageType = 0x16

	AlertEvent     MessageType = 0x20
	AlertClaimed   MessageType = 0x21
	AlertDismissed MessageType = 0x22
)

func (m MessageType) String() string {
	switch m {
	case PlayerInput:
		return "PlayerInput"
	case JoinRoom:
		return "JoinRoom"
	case LeaveRoom:
		return "LeaveRoom"
	case ClaimAlert:
		return "ClaimAlert"
	case ChatMessage:
		return "ChatMessage"
	case JoinRoomResponse:
		return "JoinRoomResponse"
	case RequestGameStart:
		return "RequestGameStart"
	case GameState:
		return "GameState"
	case PlayerList:
		return "PlayerList"
	case RoomConfig:
		return "RoomConfig"
	case GameStart:
		return "GameStart"
	case RoundEnd:
		return "RoundEnd"
	case GameEnd:
		return "GameEnd"
	case OverlayConfig:
		return "OverlayConfig"
	case AlertEvent:
		return "AlertEvent"
	case AlertClaimed:
		return "AlertClaimed"
	case AlertDismissed:
		return "AlertDismissed"
	default:
		return fmt.Sprintf("Unknown(0x%02x)", byte(m))
	}
}

// FromByte converts a raw byte into a known MessageType. Unknown
// discriminators are dropped by the caller, not rejected with an error.
func FromByte(b byte) (MessageType, bool) {
	switch MessageType(b) {
	case PlayerInput, JoinRoom, LeaveRoom, ClaimAlert, ChatMessage, JoinRoomResponse,
		RequestGameStart, GameState, PlayerList, RoomConfig, GameStart, RoundEnd, GameEnd,
		OverlayConfig, AlertEvent, AlertClaimed, AlertDismissed:
		return MessageType(b), true
	default:
		return 0, false
	}
}

// IsClientToHost reports whether frames of this type must only travel from a
// non-host client to the room's host.
func (m MessageType) IsClientToHost() bool {
	switch m {
	case PlayerInput, ClaimAlert, ChatMessage:
		return true
	default:
		return false
	}
}

// IsClientToServer reports whether the frame is handled by the server/hub
// itself rather than forwarded by direction (JoinRoom, LeaveRoom,
// RequestGameStart).
func (m MessageType) IsClientToServer() bool {
	switch m {
	case JoinRoom, LeaveRoom, RequestGameStart:
		return true
	default:
		return false
	}
}

// IsHostToClients reports whether frames of this type may only be forwarded
// from the room's host to every non-host participant.
func (m MessageType) IsHostToClients() bool {
	switch m {
	case JoinRoomResponse, GameState, PlayerList, RoomConfig, GameStart, RoundEnd,
		GameEnd, OverlayConfig, AlertEvent, AlertClaimed, AlertDismissed:
		return true
	default:
		return false
	}
}

// PlayerColor is an RGB avatar color.
type PlayerColor struct {
	R uint8 `msgpack:"r"`
	G uint8 `msgpack:"g"`
	B uint8 `msgpack:"b"`
}

// WirePlayer is the over-the-wire representation of a room participant.
type WirePlayer struct {
	PlayerID    uint32      `msgpack:"player_id"`
	DisplayName string      `msgpack:"display_name"`
	Color       PlayerColor `msgpack:"color"`
	IsHost      bool        `msgpack:"is_host"`
	IsSpectator bool        `msgpack:"is_spectator"`
}

type PlayerInputPayload struct {
	PlayerID  uint32 `msgpack:"player_id"`
	Tick      uint32 `msgpack:"tick"`
	InputData []byte `msgpack:"input_data"`
}

type JoinRoomPayload struct {
	RoomCode        string      `msgpack:"room_code"`
	PlayerName      string      `msgpack:"player_name"`
	Color           PlayerColor `msgpack:"color"`
	ProtocolVersion uint8       `msgpack:"protocol_version"`
	SessionToken    *string     `msgpack:"session_token,omitempty"`
}

type LeaveRoomPayload struct {
	PlayerID uint32 `msgpack:"player_id"`
}

type RequestGameStartPayload struct {
	GameName string `msgpack:"game_name"`
}

type ClaimAlertPayload struct {
	PlayerID uint32 `msgpack:"player_id"`
	EventID  string `msgpack:"event_id"`
}

type ChatMessagePayload struct {
	PlayerID uint32 `msgpack:"player_id"`
	Content  string `msgpack:"content"`
}

type JoinRoomResponsePayload struct {
	Success      bool    `msgpack:"success"`
	PlayerID     *uint32 `msgpack:"player_id,omitempty"`
	RoomCode     *string `msgpack:"room_code,omitempty"`
	RoomState    *string `msgpack:"room_state,omitempty"`
	SessionToken *string `msgpack:"session_token,omitempty"`
	Error        *string `msgpack:"error,omitempty"`
}

type GameStatePayload struct {
	Tick      uint32 `msgpack:"tick"`
	StateData []byte `msgpack:"state_data"`
}

type PlayerListPayload struct {
	Players []WirePlayer `msgpack:"players"`
	HostID  uint32       `msgpack:"host_id"`
}

type RoomConfigPayload struct {
	MaxPlayers               uint8  `msgpack:"max_players"`
	RoundCount               uint8  `msgpack:"round_count"`
	RoundDurationSecs        uint32 `msgpack:"round_duration_secs"`
	BetweenRoundDurationSecs uint32 `msgpack:"between_round_duration_secs"`
	HostMigrationEnabled     bool   `msgpack:"host_migration_enabled"`
	HostDisconnectGraceSecs  uint32 `msgpack:"host_disconnect_grace_secs"`
}

type GameStartPayload struct {
	GameName string       `msgpack:"game_name"`
	Players  []WirePlayer `msgpack:"players"`
	HostID   uint32       `msgpack:"host_id"`
}

type PlayerScoreEntry struct {
	PlayerID uint32 `msgpack:"player_id"`
	Score    int32  `msgpack:"score"`
}

type RoundEndPayload struct {
	Round  uint8              `msgpack:"round"`
	Scores []PlayerScoreEntry `msgpack:"scores"`
}

type GameEndPayload struct {
	FinalScores []PlayerScoreEntry `msgpack:"final_scores"`
}

// OverlayConfigPayload carries a room's alert-overlay display policy.
type OverlayConfigPayload struct {
	EnabledSources                   []string          `msgpack:"enabled_sources"`
	PriorityOverrides                map[string]string `msgpack:"priority_overrides"`
	TickerPosition                   string            `msgpack:"ticker_position"`
	DashboardAutoExpandBetweenRounds bool              `msgpack:"dashboard_auto_expand_between_rounds"`
	CriticalAlertPausesAll           bool              `msgpack:"critical_alert_pauses_all"`
}

// WireEvent is the over-the-wire representation of an alert Event.
type WireEvent struct {
	ID             string            `msgpack:"id"`
	EventType      string            `msgpack:"event_type"`
	Source         string            `msgpack:"source"`
	Priority       string            `msgpack:"priority"`
	Title          string            `msgpack:"title"`
	Body           *string           `msgpack:"body,omitempty"`
	Timestamp      string            `msgpack:"timestamp"`
	URL            *string           `msgpack:"url,omitempty"`
	Actor          *string           `msgpack:"actor,omitempty"`
	Tags           []string          `msgpack:"tags"`
	ActionRequired bool              `msgpack:"action_required"`
	GroupKey       *string           `msgpack:"group_key,omitempty"`
	ExpiresAt      *string           `msgpack:"expires_at,omitempty"`
	Metadata       map[string]string `msgpack:"metadata"`
}

type AlertEventPayload struct {
	Event WireEvent `msgpack:"event"`
}

type AlertClaimedPayload struct {
	EventID   string `msgpack:"event_id"`
	ClaimedBy uint32 `msgpack:"claimed_by"`
}

type AlertDismissedPayload struct {
	EventID string `msgpack:"event_id"`
}

// MaxMessageSize bounds a single frame, including the discriminator byte.
const MaxMessageSize = 256 * 1024

// Encode prepends the MessageType discriminator to the msgpack encoding of
// payload, producing the bytes ready to write to a socket.
func Encode(msgType MessageType, payload any) ([]byte, error) {
	body, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s payload: %w", msgType, err)
	}
	if len(body)+1 > MaxMessageSize {
		return nil, fmt.Errorf("protocol: encoded %s frame of %d bytes exceeds max message size", msgType, len(body)+1)
	}
	frame := make([]byte, 0, len(body)+1)
	frame = append(frame, byte(msgType))
	frame = append(frame, body...)
	return frame, nil
}

// Decode splits a raw frame into its MessageType and remaining payload
// bytes. The caller is responsible for msgpack-decoding the payload into
// the struct appropriate for the returned type.
func Decode(frame []byte) (MessageType, []byte, error) {
	if len(frame) == 0 {
		return 0, nil, fmt.Errorf("protocol: empty frame")
	}
	if len(frame) > MaxMessageSize {
		return 0, nil, fmt.Errorf("protocol: frame of %d bytes exceeds max message size", len(frame))
	}
	msgType, ok := FromByte(frame[0])
	if !ok {
		return 0, nil, fmt.Errorf("protocol: unknown message type discriminator 0x%02x", frame[0])
	}
	return msgType, frame[1:], nil
}

// DecodePayload unmarshals a frame's payload bytes into dst.
func DecodePayload(payload []byte, dst any) error {
	if err := msgpack.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("protocol: decode payload: %w", err)
	}
	return nil
}
