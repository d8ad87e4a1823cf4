package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

// PasetoService handles PASETO token creation and validation
// Uses v4.local (symmetric encryption with XChaCha20-Poly1305)
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
	duration     time.Duration
	now          Clock
}

func NewPasetoService(symmetricKey []byte, duration time.Duration, now Clock) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}
	if duration <= 0 {
		return nil, fmt.Errorf("token duration must be positive, got %s", duration)
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}
	if now == nil {
		now = time.Now
	}

	return &PasetoService{
		symmetricKey: key,
		duration:     duration,
		now:          now,
	}, nil
}

func (s *PasetoService) CreateToken(userID uuid.UUID, issuedAt time.Time) (string, time.Time, error) {
	issuedAt = issuedAt.Truncate(time.Second)
	expiresAt := issuedAt.Add(s.duration)

	token := paseto.NewToken()
	token.SetIssuedAt(issuedAt)
	token.SetExpiration(expiresAt)
	token.SetSubject(userID.String())

	return token.V4Encrypt(s.symmetricKey, nil), expiresAt, nil
}

// VerifyToken decrypts a v4.local token. Expiry is checked against the
// service clock rather than the parser's wall clock.
func (s *PasetoService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	subject, err := token.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	issuedAt, err := token.GetIssuedAt()
	if err != nil {
		return nil, ErrInvalidToken
	}

	expiresAt, err := token.GetExpiration()
	if err != nil {
		return nil, ErrInvalidToken
	}

	if !s.now().Before(expiresAt) {
		return nil, ErrExpiredToken
	}

	return &TokenClaims{
		UserID:    userID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}
