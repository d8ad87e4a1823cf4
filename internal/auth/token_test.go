package auth

import (
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock is a settable clock shared by a service and its token issuer.
type testClock struct {
	t time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newPasetoKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func tokenServices(t *testing.T, clock *testClock) map[string]TokenService {
	t.Helper()
	jwtSvc, err := NewJWTService([]byte("test-secret-at-least-32-bytes-long!"), 90*24*time.Hour, clock.Now)
	require.NoError(t, err)
	pasetoSvc, err := NewPasetoService(newPasetoKey(t), 90*24*time.Hour, clock.Now)
	require.NoError(t, err)
	return map[string]TokenService{"jwt": jwtSvc, "paseto": pasetoSvc}
}

func TestTokenService_RoundTrip(t *testing.T) {
	clock := newTestClock()
	for name, svc := range tokenServices(t, clock) {
		t.Run(name, func(t *testing.T) {
			userID := uuid.New()

			token, expiresAt, err := svc.CreateToken(userID, clock.Now())
			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.Equal(t, clock.Now().Add(90*24*time.Hour), expiresAt)

			claims, err := svc.VerifyToken(token)
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID)
			assert.Equal(t, clock.Now().Unix(), claims.IssuedAt.Unix())
			assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
		})
	}
}

func TestTokenService_Expiry(t *testing.T) {
	for name := range tokenServices(t, newTestClock()) {
		t.Run(name, func(t *testing.T) {
			clock := newTestClock()
			svc := tokenServices(t, clock)[name]

			token, _, err := svc.CreateToken(uuid.New(), clock.Now())
			require.NoError(t, err)

			clock.Advance(90*24*time.Hour - time.Second)
			_, err = svc.VerifyToken(token)
			require.NoError(t, err)

			clock.Advance(2 * time.Second)
			_, err = svc.VerifyToken(token)
			assert.ErrorIs(t, err, ErrExpiredToken)
		})
	}
}

func TestTokenService_Tampered(t *testing.T) {
	clock := newTestClock()
	for name, svc := range tokenServices(t, clock) {
		t.Run(name, func(t *testing.T) {
			token, _, err := svc.CreateToken(uuid.New(), clock.Now())
			require.NoError(t, err)

			tampered := token[:len(token)-2] + "xx"
			if tampered == token {
				tampered = token[:len(token)-2] + "yy"
			}

			_, err = svc.VerifyToken(tampered)
			assert.ErrorIs(t, err, ErrInvalidToken)

			_, err = svc.VerifyToken("loggedout")
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenService_WrongKey(t *testing.T) {
	clock := newTestClock()

	a, err := NewJWTService([]byte("secret-a"), time.Hour, clock.Now)
	require.NoError(t, err)
	b, err := NewJWTService([]byte("secret-b"), time.Hour, clock.Now)
	require.NoError(t, err)

	token, _, err := a.CreateToken(uuid.New(), clock.Now())
	require.NoError(t, err)
	_, err = b.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	pa, err := NewPasetoService(newPasetoKey(t), time.Hour, clock.Now)
	require.NoError(t, err)
	pb, err := NewPasetoService(newPasetoKey(t), time.Hour, clock.Now)
	require.NoError(t, err)

	token, _, err = pa.CreateToken(uuid.New(), clock.Now())
	require.NoError(t, err)
	_, err = pb.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsOtherAlgorithms(t *testing.T) {
	clock := newTestClock()
	svc, err := NewJWTService([]byte("secret"), time.Hour, clock.Now)
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(clock.Now()),
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.VerifyToken(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.VerifyToken(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RequiresIssuedAtAndSubject(t *testing.T) {
	clock := newTestClock()
	svc, err := NewJWTService([]byte("secret"), time.Hour, clock.Now)
	require.NoError(t, err)

	noIat, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.VerifyToken(noIat)
	assert.ErrorIs(t, err, ErrInvalidToken)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		IssuedAt:  jwt.NewNumericDate(clock.Now()),
		ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.VerifyToken(badSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenService(t *testing.T) {
	clock := newTestClock()

	svc, err := NewTokenService("jwt", []byte("secret"), nil, time.Hour, clock.Now)
	require.NoError(t, err)
	assert.IsType(t, &JWTService{}, svc)

	svc, err = NewTokenService("paseto", nil, newPasetoKey(t), time.Hour, clock.Now)
	require.NoError(t, err)
	assert.IsType(t, &PasetoService{}, svc)

	_, err = NewTokenService("paseto", nil, []byte("short"), time.Hour, clock.Now)
	assert.Error(t, err)

	_, err = NewTokenService("jwt", nil, nil, time.Hour, clock.Now)
	assert.Error(t, err)

	_, err = NewTokenService("saml", nil, nil, time.Hour, clock.Now)
	assert.Error(t, err)
}
