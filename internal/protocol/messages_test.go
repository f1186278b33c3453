package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := ChatMessagePayload{PlayerID: 2, Content: "hi"}
	frame, err := Encode(ChatMessage, payload)
	require.NoError(t, err)

	msgType, body, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, ChatMessage, msgType)

	var decoded ChatMessagePayload
	require.NoError(t, DecodePayload(body, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestDecodeUnknownDiscriminator(t *testing.T) {
	_, _, err := Decode([]byte{0xFF})
	assert.Error(t, err)
}

func TestDecodeEmptyFrame(t *testing.T) {
	_, _, err := Decode(nil)
	assert.Error(t, err)
}

func TestDirectionClassification(t *testing.T) {
	assert.True(t, PlayerInput.IsClientToHost())
	assert.False(t, PlayerInput.IsHostToClients())
	assert.True(t, GameState.IsHostToClients())
	assert.False(t, GameState.IsClientToHost())
	assert.True(t, JoinRoom.IsClientToServer())
}

func TestFromByteKnownAndUnknown(t *testing.T) {
	mt, ok := FromByte(0x20)
	assert.True(t, ok)
	assert.Equal(t, AlertEvent, mt)

	_, ok = FromByte(0x99)
	assert.False(t, ok)
}

func TestEncodeRejectsOversizedFrame(t *testing.T) {
	huge := make([]byte, MaxMessageSize)
	_, err := Encode(ChatMessage, ChatMessagePayload{Content: string(huge)})
	assert.Error(t, err)
}
