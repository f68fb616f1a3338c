package domain

import (
	"crypto/rand"
	"fmt"

	"quizrealm/apperrors"
)

// PIN is the 6-decimal-digit public room identifier. It is process-wide
// unique across live rooms, generated randomly with collision retry left
// to the caller (see registry.GenerateUniquePIN).
type PIN string

// NewPIN generates a random zero-padded 6-digit PIN. It does not check for
// collisions — that is the registry's job, which retries generation.
func NewPIN() (PIN, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", apperrors.Internal(err, "failed to generate PIN")
	}
	n := (uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])) % 1000000
	return PIN(fmt.Sprintf("%06d", n)), nil
}

// ParsePIN validates a wire-format PIN string.
func ParsePIN(s string) (PIN, error) {
	if len(s) != 6 {
		return "", apperrors.Validation("PIN must be exactly 6 digits")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", apperrors.Validation("PIN must be decimal digits")
		}
	}
	return PIN(s), nil
}

func (p PIN) String() string { return string(p) }
