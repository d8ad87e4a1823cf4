package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/tours-api/internal/database"
)

// uniqueViolation is the PostgreSQL error code for duplicate keys.
const uniqueViolation = "23505"

// BunRepository stores users in PostgreSQL through bun.
type BunRepository struct {
	db  *bun.DB
	now func() time.Time
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db, now: time.Now}
}

func (r *BunRepository) Create(ctx context.Context, u *User) error {
	prepareNew(u, r.now().UTC())

	_, err := r.db.NewInsert().
		Model(toRow(u)).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.selectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id.String())
	})
}

func (r *BunRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.selectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("email = ?", NormalizeEmail(email))
	})
}

func (r *BunRepository) GetByResetFingerprint(ctx context.Context, fingerprint string, now time.Time) (*User, error) {
	return r.selectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("password_reset_token = ?", fingerprint).
			Where("password_reset_expires > ?", now.UTC())
	})
}

func (r *BunRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("password_hash = ?", passwordHash).
			Set("password_changed_at = ?", changedAt.UTC()).
			Set("password_reset_token = NULL").
			Set("password_reset_expires = NULL")
	})
}

func (r *BunRepository) SetPasswordReset(ctx context.Context, id uuid.UUID, fingerprint string, expiresAt time.Time) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("password_reset_token = ?", fingerprint).
			Set("password_reset_expires = ?", expiresAt.UTC())
	})
}

func (r *BunRepository) ClearPasswordReset(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("password_reset_token = NULL").
			Set("password_reset_expires = NULL")
	})
}

func (r *BunRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, email string) (*User, error) {
	err := r.update(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("name = ?", name).
			Set("email = ?", NormalizeEmail(email))
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *BunRepository) SetRole(ctx context.Context, id uuid.UUID, role Role) (*User, error) {
	err := r.update(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("role = ?", string(role))
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *BunRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("active = ?", false)
	})
}

func (r *BunRepository) List(ctx context.Context, offset, limit int) ([]*User, error) {
	offset = max(offset, 0)
	var rows []database.User
	q := r.db.NewSelect().
		Model(&rows).
		Where("active = ?", true).
		Order("created_at ASC").
		Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	out := make([]*User, 0, len(rows))
	for i := range rows {
		u, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *BunRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.User)(nil)).
		Where("TRUE").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete users: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *BunRepository) selectOne(ctx context.Context, where func(*bun.SelectQuery) *bun.SelectQuery) (*User, error) {
	row := new(database.User)
	q := r.db.NewSelect().
		Model(row).
		Where("active = ?", true)

	if err := where(q).Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return fromRow(row)
}

func (r *BunRepository) update(ctx context.Context, id uuid.UUID, set func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id.String()).
		Where("active = ?", true)

	result, err := set(q).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

func toRow(u *User) *database.User {
	return &database.User{
		ID:                   u.ID.String(),
		Name:                 u.Name,
		Email:                u.Email,
		Photo:                u.Photo,
		Role:                 string(u.Role),
		PasswordHash:         u.PasswordHash,
		PasswordChangedAt:    u.PasswordChangedAt,
		PasswordResetToken:   u.ResetTokenFingerprint,
		PasswordResetExpires: u.ResetTokenExpiresAt,
		Active:               u.Active,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
}

// fromRow converts database model to domain model
func fromRow(row *database.User) (*User, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", row.ID, err)
	}
	return &User{
		ID:                    id,
		Name:                  row.Name,
		Email:                 row.Email,
		Photo:                 row.Photo,
		Role:                  Role(row.Role),
		PasswordHash:          row.PasswordHash,
		PasswordChangedAt:     row.PasswordChangedAt,
		ResetTokenFingerprint: row.PasswordResetToken,
		ResetTokenExpiresAt:   row.PasswordResetExpires,
		Active:                row.Active,
		CreatedAt:             row.CreatedAt,
		UpdatedAt:             row.UpdatedAt,
	}, nil
}
