package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Hasher turns plaintext passwords into self-describing digests and checks
// candidates against them.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 12

// BcryptHasher produces $2a$ digests.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// Argon2id parameters - tuned for security vs performance balance
// Time: 3, Memory: 64MB, Threads: 4, KeyLen: 32 bytes
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// Argon2Hasher produces PHC-style argon2id digests:
// $argon2id$v=19$m=65536,t=3,p=4$salt$hash
type Argon2Hasher struct{}

func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{}
}

func (h *Argon2Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(plaintext), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func (h *Argon2Hasher) Verify(plaintext, digest string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return false
	}
	// argon2.IDKey panics on zero time or parallelism.
	if memory == 0 || iterations == 0 || threads == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}

	got := argon2.IDKey([]byte(plaintext), salt, iterations, memory, threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1
}

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

const argon2Prefix = "$argon2id$"

func isBcryptDigest(digest string) bool {
	for _, prefix := range bcryptPrefixes {
		if strings.HasPrefix(digest, prefix) {
			return true
		}
	}
	return false
}

// IsDigest reports whether s is a bcrypt or argon2id digest rather than a
// plaintext password.
func IsDigest(s string) bool {
	return isBcryptDigest(s) || strings.HasPrefix(s, argon2Prefix)
}

// DigestHasher hashes new passwords with one algorithm and verifies digests
// of either supported format, picking the algorithm from the digest prefix.
type DigestHasher struct {
	primary Hasher
	bcrypt  *BcryptHasher
	argon2  *Argon2Hasher
}

func (h *DigestHasher) Hash(plaintext string) (string, error) {
	return h.primary.Hash(plaintext)
}

func (h *DigestHasher) Verify(plaintext, digest string) bool {
	switch {
	case strings.HasPrefix(digest, argon2Prefix):
		return h.argon2.Verify(plaintext, digest)
	case isBcryptDigest(digest):
		return h.bcrypt.Verify(plaintext, digest)
	default:
		return false
	}
}

// NewHasher returns a DigestHasher that hashes with the algorithm named by
// kind ("bcrypt" or "argon2id").
func NewHasher(kind string, bcryptCost int) (*DigestHasher, error) {
	h := &DigestHasher{
		bcrypt: NewBcryptHasher(bcryptCost),
		argon2: NewArgon2Hasher(),
	}
	switch kind {
	case "bcrypt", "":
		h.primary = h.bcrypt
	case "argon2id":
		h.primary = h.argon2
	default:
		return nil, fmt.Errorf("unsupported password hasher %q", kind)
	}
	return h, nil
}
