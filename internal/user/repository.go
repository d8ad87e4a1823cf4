package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Repository handles user data persistence.
//
// Lookups only ever return active users. Every method that touches the
// reset-token fields writes the fingerprint and its expiry in one operation.
type Repository interface {
	// Create inserts u, assigning ID and timestamps when they are zero.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetByResetFingerprint finds the user holding fingerprint whose reset
	// expiry is after now.
	GetByResetFingerprint(ctx context.Context, fingerprint string, now time.Time) (*User, error)

	// UpdatePassword stores a new hash, stamps changedAt and clears any
	// pending reset token.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error
	SetPasswordReset(ctx context.Context, id uuid.UUID, fingerprint string, expiresAt time.Time) error
	ClearPasswordReset(ctx context.Context, id uuid.UUID) error

	UpdateProfile(ctx context.Context, id uuid.UUID, name, email string) (*User, error)
	SetRole(ctx context.Context, id uuid.UUID, role Role) (*User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error

	// List returns active users ordered by creation time.
	List(ctx context.Context, offset, limit int) ([]*User, error)
	// DeleteAll removes every user, active or not.
	DeleteAll(ctx context.Context) (int64, error)
}

// prepareNew fills the fields a store assigns on insert.
func prepareNew(u *User, now time.Time) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Photo == "" {
		u.Photo = DefaultPhoto
	}
	u.Email = NormalizeEmail(u.Email)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Active = true
}
