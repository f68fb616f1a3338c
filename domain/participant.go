package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"quizrealm/apperrors"
)

// DefaultTokenTTL is how old a reconnect token may be before it is
// considered expired.
const DefaultTokenTTL = 24 * time.Hour

// Token is a durable reconnect credential, distinct from the ephemeral
// per-transport ConnectionID: a participant's connection can drop and be
// replaced many times across the lifetime of a single Token.
type Token string

// NewToken mints a cryptographically random token.
func NewToken() (Token, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", apperrors.Internal(err, "failed to generate token")
	}
	return Token(base64.URLEncoding.EncodeToString(b)), nil
}

// Participant holds the fields common to Player and Spectator.
type Participant struct {
	ID             string
	ConnectionID   string
	Nickname       Nickname
	RoomPIN        PIN
	Token          Token
	TokenCreatedAt time.Time
	JoinedAt       time.Time
	DisconnectedAt *time.Time
}

// IsConnected reports whether the participant currently has a live
// connection.
func (p *Participant) IsConnected() bool {
	return p.DisconnectedAt == nil
}

// TokenValid reports whether the participant's current token matches and
// has not exceeded ttl since issuance.
func (p *Participant) TokenValid(candidate Token, ttl time.Duration, now time.Time) bool {
	if p.Token == "" || candidate == "" || p.Token != candidate {
		return false
	}
	return now.Sub(p.TokenCreatedAt) <= ttl
}

// RotateToken replaces the participant's token, mandatory on every
// successful reconnect so a leaked or replayed token stops working.
func (p *Participant) RotateToken(newToken Token, now time.Time) {
	p.Token = newToken
	p.TokenCreatedAt = now
}
