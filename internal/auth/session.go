// Package auth issues and verifies short-lived reconnection session tokens.
// This is deliberately separate from internal/ingestion's BearerAuth/webhook
// HMAC verification: those authenticate REST ingress, this authenticates a
// player reattaching its socket to a seat it already held.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims identifies a seated player for a later reconnect attempt.
type SessionClaims struct {
	RoomCode string `json:"room_code"`
	PlayerID uint32 `json:"player_id"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies HMAC-signed session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer builds an Issuer. ttl should track the room's
// HostDisconnectGrace: a token that outlives the grace window it is meant
// to cover would let a client attempt a reconnect the room has already
// given up on.
func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{secret: secret, ttl: ttl}
}

// Issue mints a token binding a room code to a seated player id.
func (i *Issuer) Issue(roomCode string, playerID uint32) (string, error) {
	claims := SessionClaims{
		RoomCode: roomCode,
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning its claims.
func (i *Issuer) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("auth: unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("auth: invalid session token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("auth: session token failed validation")
	}
	return claims, nil
}
