package user

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/redmonkez12/tours-api/internal/logging"
)

var (
	ErrNameRequired             = errors.New("please tell us your name")
	ErrEmailRequired            = errors.New("please provide your email")
	ErrInvalidEmailFormat       = errors.New("please provide a valid email")
	ErrInvalidRole              = errors.New("invalid role")
	ErrPasswordUpdateNotAllowed = errors.New("this route is not for password updates, please use /updateMyPassword")
)

const (
	DefaultPageSize = 100
	MaxPageSize     = 100
)

// ValidateEmail checks that email is present and a bare address.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > 254 {
		return ErrInvalidEmailFormat
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmailFormat
	}
	return nil
}

// UpdateInput is the self-service profile update. Only Name and Email are
// applied; any password field makes the update fail.
type UpdateInput struct {
	Name            *string
	Email           *string
	Password        string
	PasswordConfirm string
}

type ListOptions struct {
	Page  int
	Limit int
}

func (o ListOptions) normalize() (offset, limit int) {
	page := o.Page
	if page < 1 {
		page = 1
	}
	limit = o.Limit
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	// Pages past the last addressable offset all read as empty.
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return (page - 1) * limit, limit
}

// Service implements the self-service and admin user operations.
type Service struct {
	repo   Repository
	logger *logging.Logger
}

func NewService(repo Repository, logger *logging.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// UpdateMe applies a filtered profile update to the user with id.
func (s *Service) UpdateMe(ctx context.Context, id uuid.UUID, in UpdateInput) (*User, error) {
	if in.Password != "" || in.PasswordConfirm != "" {
		return nil, ErrPasswordUpdateNotAllowed
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name, email := current.Name, current.Email
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email = NormalizeEmail(*in.Email)
	}

	if name == "" {
		return nil, ErrNameRequired
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateProfile(ctx, id, name, email)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("user profile updated", "user_id", id)
	return updated, nil
}

// DeleteMe soft-deletes the user. Deactivated users can no longer log in and
// their sessions stop resolving.
func (s *Service) DeleteMe(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	s.logger.Info("user deactivated", "user_id", id)
	return nil
}

// List returns one page of active users.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*User, error) {
	offset, limit := opts.normalize()
	users, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SetRole changes the role of the user with id.
func (s *Service) SetRole(ctx context.Context, id uuid.UUID, role Role) (*User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	updated, err := s.repo.SetRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to set role: %w", err)
	}

	s.logger.Info("user role changed", "user_id", id, "role", role)
	return updated, nil
}
