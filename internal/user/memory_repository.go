package user

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps users in a map. It backs DB_DRIVER=memory and the
// service tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*User
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[uuid.UUID]*User),
		now:   time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, u *User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	email := NormalizeEmail(u.Email)
	for _, existing := range r.users {
		if existing.Email == email {
			return ErrDuplicateEmail
		}
	}

	prepareNew(u, r.now())
	r.users[u.ID] = clone(u)
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok || !u.Active {
		return nil, ErrNotFound
	}
	return clone(u), nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	email = NormalizeEmail(email)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Active && u.Email == email {
			return clone(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) GetByResetFingerprint(ctx context.Context, fingerprint string, now time.Time) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if !u.Active || u.ResetTokenFingerprint == nil {
			continue
		}
		if *u.ResetTokenFingerprint == fingerprint && u.HasPendingReset(now) {
			return clone(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error {
	return r.mutate(ctx, id, func(u *User) error {
		u.PasswordHash = passwordHash
		u.PasswordChangedAt = &changedAt
		u.ResetTokenFingerprint = nil
		u.ResetTokenExpiresAt = nil
		return nil
	})
}

func (r *MemoryRepository) SetPasswordReset(ctx context.Context, id uuid.UUID, fingerprint string, expiresAt time.Time) error {
	return r.mutate(ctx, id, func(u *User) error {
		u.ResetTokenFingerprint = &fingerprint
		u.ResetTokenExpiresAt = &expiresAt
		return nil
	})
}

func (r *MemoryRepository) ClearPasswordReset(ctx context.Context, id uuid.UUID) error {
	return r.mutate(ctx, id, func(u *User) error {
		u.ResetTokenFingerprint = nil
		u.ResetTokenExpiresAt = nil
		return nil
	})
}

func (r *MemoryRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, email string) (*User, error) {
	var updated *User
	err := r.mutate(ctx, id, func(u *User) error {
		email = NormalizeEmail(email)
		for otherID, other := range r.users {
			if otherID != id && other.Email == email {
				return ErrDuplicateEmail
			}
		}
		u.Name = name
		u.Email = email
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clone(updated), nil
}

func (r *MemoryRepository) SetRole(ctx context.Context, id uuid.UUID, role Role) (*User, error) {
	var updated *User
	err := r.mutate(ctx, id, func(u *User) error {
		u.Role = role
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clone(updated), nil
}

func (r *MemoryRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.mutate(ctx, id, func(u *User) error {
		u.Active = false
		return nil
	})
}

func (r *MemoryRepository) List(ctx context.Context, offset, limit int) ([]*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	active := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		if u.Active {
			active = append(active, clone(u))
		}
	}
	r.mu.RUnlock()

	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(active) {
		return []*User{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(active) || end < offset {
		end = len(active)
	}
	return active[offset:end], nil
}

func (r *MemoryRepository) DeleteAll(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.users))
	r.users = make(map[uuid.UUID]*User)
	return n, nil
}

// mutate applies fn to the stored active user under the write lock.
func (r *MemoryRepository) mutate(ctx context.Context, id uuid.UUID, fn func(u *User) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || !u.Active {
		return ErrNotFound
	}
	if err := fn(u); err != nil {
		return err
	}
	u.UpdatedAt = r.now()
	return nil
}

func clone(u *User) *User {
	c := *u
	if u.PasswordChangedAt != nil {
		t := *u.PasswordChangedAt
		c.PasswordChangedAt = &t
	}
	if u.ResetTokenFingerprint != nil {
		fp := *u.ResetTokenFingerprint
		c.ResetTokenFingerprint = &fp
	}
	if u.ResetTokenExpiresAt != nil {
		t := *u.ResetTokenExpiresAt
		c.ResetTokenExpiresAt = &t
	}
	return &c
}
