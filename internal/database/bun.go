package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// User is the users table row.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID                   string     `bun:"id,pk,type:uuid"`
	Name                 string     `bun:"name,notnull"`
	Email                string     `bun:"email,notnull,unique"`
	Photo                string     `bun:"photo,notnull"`
	Role                 string     `bun:"role,notnull"`
	PasswordHash         string     `bun:"password_hash,notnull"`
	PasswordChangedAt    *time.Time `bun:"password_changed_at"`
	PasswordResetToken   *string    `bun:"password_reset_token"`
	PasswordResetExpires *time.Time `bun:"password_reset_expires"`
	Active               bool       `bun:"active,notnull"`
	CreatedAt            time.Time  `bun:"created_at,notnull"`
	UpdatedAt            time.Time  `bun:"updated_at,notnull"`
}

// NewBunDB creates a new Bun DB instance from an existing sql.DB connection
func NewBunDB(sqlDB *sql.DB) *bun.DB {
	return bun.NewDB(sqlDB, pgdialect.New())
}

// OpenPostgres opens and pings a PostgreSQL pool and wraps it in bun.
func OpenPostgres(ctx context.Context, dsn string) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return NewBunDB(sqlDB), nil
}

// CreateSchema creates the users table when it does not exist yet.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	_, err = db.NewCreateIndex().
		Model((*User)(nil)).
		Index("users_password_reset_token_idx").
		Column("password_reset_token").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create reset token index: %w", err)
	}

	return nil
}
