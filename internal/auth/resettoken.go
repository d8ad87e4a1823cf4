package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	resetTokenBytes = 32

	// DefaultResetTokenTTL is how long a password reset link stays valid.
	DefaultResetTokenTTL = 10 * time.Minute
)

// ResetToken is a freshly generated password reset token. Raw is only ever
// sent to the user; Fingerprint is what gets stored.
type ResetToken struct {
	Raw         string
	Fingerprint string
	ExpiresAt   time.Time
}

// GenerateResetToken returns 256 random bits, hex encoded, with their
// fingerprint and an expiry of now+ttl.
func GenerateResetToken(now time.Time, ttl time.Duration) (*ResetToken, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}

	raw := hex.EncodeToString(b)
	return &ResetToken{
		Raw:         raw,
		Fingerprint: Fingerprint(raw),
		ExpiresAt:   now.Add(ttl),
	}, nil
}

// Fingerprint is the hex SHA-256 digest of a raw reset token.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
