package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactSecret(t *testing.T) {
	assert.Equal(t, "****", RedactSecret(""))
	assert.Equal(t, "****", RedactSecret("ab"))
	assert.Equal(t, "wh****12", RedactSecret("whsecret12"))
}

func TestGetLoggerFallsBackBeforeInitialize(t *testing.T) {
	assert.NotNil(t, GetLogger())
}

func TestAppendContextFieldsExtractsKnownKeys(t *testing.T) {
	ctx := context.WithValue(context.Background(), CorrelationIDKey, "corr-1")
	ctx = context.WithValue(ctx, RoomCodeKey, "ABCD-1234")
	fields := appendContextFields(ctx, nil)
	assert.Len(t, fields, 3) // correlation_id, room_code, service
}
