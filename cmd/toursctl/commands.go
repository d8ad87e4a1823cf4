package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/redmonkez12/tours-api/internal/auth"
	"github.com/redmonkez12/tours-api/internal/user"
)

// app holds what every subcommand works against.
type app struct {
	users user.Repository
	auth  *auth.Service
}

func (a *app) createAdmin(ctx context.Context, name, email, password string) (*user.User, error) {
	return a.auth.CreateUser(ctx, auth.SignupInput{
		Name:            name,
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
	}, user.RoleAdmin)
}

func (a *app) setRole(ctx context.Context, email string, role user.Role) (*user.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", user.ErrInvalidRole, role)
	}

	existing, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", email, err)
	}

	return a.users.SetRole(ctx, existing.ID, role)
}

// importRecord is one entry of a users JSON file. Password is either
// plaintext or an existing bcrypt or argon2id digest.
type importRecord struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Photo    string `json:"photo"`
	Password string `json:"password"`
}

// importUsers creates every record in r and returns how many were stored.
// It stops at the first failure.
func (a *app) importUsers(ctx context.Context, r io.Reader) (int, error) {
	var records []importRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return 0, fmt.Errorf("failed to parse users file: %w", err)
	}

	for i, rec := range records {
		if err := a.importOne(ctx, rec); err != nil {
			return i, fmt.Errorf("record %d (%s): %w", i, rec.Email, err)
		}
	}
	return len(records), nil
}

func (a *app) importOne(ctx context.Context, rec importRecord) error {
	role := user.Role(rec.Role)
	if role == "" {
		role = user.RoleUser
	}
	if !role.Valid() {
		return fmt.Errorf("%w: %q", user.ErrInvalidRole, rec.Role)
	}

	if !auth.IsDigest(rec.Password) {
		_, err := a.auth.CreateUser(ctx, auth.SignupInput{
			Name:            rec.Name,
			Email:           rec.Email,
			Photo:           rec.Photo,
			Password:        rec.Password,
			PasswordConfirm: rec.Password,
		}, role)
		return err
	}

	if strings.TrimSpace(rec.Name) == "" {
		return user.ErrNameRequired
	}
	email := user.NormalizeEmail(rec.Email)
	if err := user.ValidateEmail(email); err != nil {
		return err
	}

	return a.users.Create(ctx, &user.User{
		Name:         strings.TrimSpace(rec.Name),
		Email:        email,
		Photo:        rec.Photo,
		Role:         role,
		PasswordHash: rec.Password,
	})
}

func (a *app) deleteUsers(ctx context.Context) (int64, error) {
	return a.users.DeleteAll(ctx)
}
