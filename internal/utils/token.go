// Package utils provides the capability-token helpers. A token is a random
// UUID handed to the creator of a workout or result exactly once; only a
// bcrypt hash of it is persisted, so a leaked database row cannot be used
// to edit someone else's entry.
package utils

import (
	"regexp"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// uuidPattern is the canonical 8-4-4-4-12 hex form, case-insensitive.
var uuidPattern = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// IsUUID reports whether s looks like a canonical UUID. Identifiers and
// tokens are checked with it before any lookup.
func IsUUID(s string) bool { return uuidPattern.MatchString(s) }

// NewID returns a fresh random identifier.
func NewID() string { return uuid.NewString() }

// NewToken mints a raw capability token.
func NewToken() string { return uuid.NewString() }

// HashToken returns the bcrypt hash of a raw token using the given cost.
func HashToken(raw string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(raw), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyToken compares a raw token with its stored hash. bcrypt compares
// in constant time.
func VerifyToken(hash, raw string) bool {
	if hash == "" || raw == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}
