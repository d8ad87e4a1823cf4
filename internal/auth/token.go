package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenClaims represents the claims carried by a session token
type TokenClaims struct {
	UserID    uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and verifies session tokens.
// Implementations include JWTService (HS256) and PasetoService (PASETO v4.local).
type TokenService interface {
	// CreateToken signs a token for userID issued at issuedAt and returns it
	// with its expiry.
	CreateToken(userID uuid.UUID, issuedAt time.Time) (string, time.Time, error)
	// VerifyToken returns ErrExpiredToken for well-formed tokens past their
	// expiry and ErrInvalidToken for everything else that fails.
	VerifyToken(token string) (*TokenClaims, error)
}

// Clock supplies the current time.
type Clock func() time.Time

// NewTokenService builds the issuer named by kind ("jwt" or "paseto").
func NewTokenService(kind string, jwtSecret, pasetoKey []byte, duration time.Duration, now Clock) (TokenService, error) {
	switch kind {
	case "jwt", "":
		return NewJWTService(jwtSecret, duration, now)
	case "paseto":
		return NewPasetoService(pasetoKey, duration, now)
	default:
		return nil, fmt.Errorf("unsupported token kind %q", kind)
	}
}
