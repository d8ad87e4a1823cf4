package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	digest, err := h.Hash("pass1234")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$2a$"))
	assert.NotContains(t, digest, "pass1234")

	assert.True(t, h.Verify("pass1234", digest))
	assert.False(t, h.Verify("pass12345", digest))
	assert.False(t, h.Verify("pass1234", "not-a-digest"))
}

func TestBcryptHasher_SaltsEachHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	a, err := h.Hash("pass1234")
	require.NoError(t, err)
	b, err := h.Hash("pass1234")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestNewBcryptHasher_CostOutOfRange(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(0).Cost)
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(bcrypt.MaxCost+1).Cost)
	assert.Equal(t, 10, NewBcryptHasher(10).Cost)
}

func TestArgon2Hasher(t *testing.T) {
	h := NewArgon2Hasher()

	digest, err := h.Hash("pass1234")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$argon2id$v=19$m=65536,t=3,p=4$"))

	assert.True(t, h.Verify("pass1234", digest))
	assert.False(t, h.Verify("wrong-pass", digest))
}

func TestArgon2Hasher_RejectsMalformedDigest(t *testing.T) {
	h := NewArgon2Hasher()

	for _, digest := range []string{
		"",
		"$argon2i$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=4$!!$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$",
		"$argon2id$v=19$m=65536,t=3,p=0$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=0,p=4$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=3,p=4$c2FsdA$aGFzaA",
	} {
		assert.False(t, h.Verify("pass1234", digest), digest)
	}
}

func TestNewHasher(t *testing.T) {
	h, err := NewHasher("bcrypt", 4)
	require.NoError(t, err)
	digest, err := h.Hash("pass1234")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$2a$04$"))

	h, err = NewHasher("argon2id", 0)
	require.NoError(t, err)
	digest, err = h.Hash("pass1234")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$argon2id$"))

	_, err = NewHasher("md5", 0)
	assert.Error(t, err)
}

func TestDigestHasher_VerifiesEitherFormat(t *testing.T) {
	bcryptDigest, err := NewBcryptHasher(bcrypt.MinCost).Hash("pass1234")
	require.NoError(t, err)
	argonDigest, err := NewArgon2Hasher().Hash("pass1234")
	require.NoError(t, err)

	for _, kind := range []string{"bcrypt", "argon2id"} {
		t.Run(kind, func(t *testing.T) {
			h, err := NewHasher(kind, bcrypt.MinCost)
			require.NoError(t, err)

			assert.True(t, h.Verify("pass1234", bcryptDigest))
			assert.True(t, h.Verify("pass1234", argonDigest))
			assert.False(t, h.Verify("wrong-pass", bcryptDigest))
			assert.False(t, h.Verify("wrong-pass", argonDigest))
			assert.False(t, h.Verify("pass1234", "pass1234"))
			assert.False(t, h.Verify("pass1234", "$argon2id$v=19$m=65536,t=3,p=0$c2FsdA$aGFzaA"))
		})
	}
}

func TestIsDigest(t *testing.T) {
	assert.True(t, IsDigest("$2a$12$abcdefghijklmnopqrstuv"))
	assert.True(t, IsDigest("$2b$12$abcdefghijklmnopqrstuv"))
	assert.True(t, IsDigest("$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"))
	assert.False(t, IsDigest("test1234"))
	assert.False(t, IsDigest("$argon2i$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"))
}
