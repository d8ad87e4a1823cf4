package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role controls which restricted operations a user may perform.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// DefaultPhoto is assigned when a user has not uploaded one.
const DefaultPhoto = "default.jpg"

// Roles lists every valid role.
var Roles = []Role{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Photo string    `json:"photo"`
	Role  Role      `json:"role"`

	PasswordHash      string     `json:"-"` // Never expose password hash in JSON
	PasswordChangedAt *time.Time `json:"-"`

	// Set together or not at all.
	ResetTokenFingerprint *string    `json:"-"`
	ResetTokenExpiresAt   *time.Time `json:"-"`

	Active    bool      `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChangedPasswordAfter reports whether the password was changed after a
// token issued at issuedAt. Comparison is done at second granularity because
// token timestamps carry no sub-second precision.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > issuedAt.Unix()
}

// HasPendingReset reports whether a reset token is stored and still valid at now.
func (u *User) HasPendingReset(now time.Time) bool {
	return u.ResetTokenFingerprint != nil &&
		u.ResetTokenExpiresAt != nil &&
		u.ResetTokenExpiresAt.After(now)
}

// NormalizeEmail lower-cases and trims an address before storage or lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type contextKey struct{}

// WithContext attaches the authenticated user to ctx.
func WithContext(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the authenticated user attached by the auth middleware.
func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(contextKey{}).(*User)
	return u, ok && u != nil
}
