package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/tours-api/internal/logging"
	"github.com/redmonkez12/tours-api/internal/user"
)

var (
	ErrMissingCredentials   = errors.New("email and password are required")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordRequired     = errors.New("password is required")
	ErrPasswordTooShort     = errors.New("password must be at least 8 characters")
	ErrPasswordMismatch     = errors.New("passwords are not the same")
	ErrMissingToken         = errors.New("no session token provided")
	ErrInvalidSession       = errors.New("invalid session")
	ErrUserGone             = errors.New("user belonging to this token no longer exists")
	ErrPasswordChanged      = errors.New("password changed after token was issued")
	ErrForbidden            = errors.New("role not permitted")
	ErrInvalidResetToken    = errors.New("reset token is invalid or has expired")
	ErrDeliveryFailed       = errors.New("failed to deliver email")
	ErrWrongCurrentPassword = errors.New("current password is wrong")
)

const (
	minPasswordLength   = 8
	welcomeEmailTimeout = 30 * time.Second
)

// Mailer delivers the account emails.
type Mailer interface {
	SendPasswordResetEmail(ctx context.Context, toEmail, name, resetURL string) error
	SendWelcomeEmail(ctx context.Context, toEmail, name, url string) error
}

// Recorder receives one event per completed auth operation.
type Recorder interface {
	RecordAuthEvent(event, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) RecordAuthEvent(string, string) {}

// Session is the result of every operation that signs the user in.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *user.User
}

// SignupInput is the self-service signup body. It carries no role; new
// accounts always start as user.
type SignupInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
	// Photo is only set by imports. Empty means the default photo.
	Photo string
	// WelcomeURL is linked from the welcome email. Empty skips the email.
	WelcomeURL string
}

type Option func(*Service)

// WithClock replaces time.Now for token issuance, reset expiry and
// passwordChangedAt stamps.
func WithClock(now Clock) Option {
	return func(s *Service) { s.now = now }
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// Service handles authentication business logic
type Service struct {
	users    user.Repository
	hasher   Hasher
	tokens   TokenService
	mailer   Mailer
	logger   *logging.Logger
	resetTTL time.Duration
	now      Clock
	recorder Recorder
}

func NewService(
	users user.Repository,
	hasher Hasher,
	tokens TokenService,
	mailer Mailer,
	logger *logging.Logger,
	resetTTL time.Duration,
	opts ...Option,
) *Service {
	if resetTTL <= 0 {
		resetTTL = DefaultResetTokenTTL
	}
	s := &Service{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		mailer:   mailer,
		logger:   logger,
		resetTTL: resetTTL,
		now:      time.Now,
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup creates a user with role user and signs them in.
func (s *Service) Signup(ctx context.Context, in SignupInput) (sess *Session, err error) {
	defer s.record("signup", &err)

	newUser, err := s.CreateUser(ctx, in, user.RoleUser)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed up", "user_id", newUser.ID)

	if in.WelcomeURL != "" && s.mailer != nil {
		go s.sendWelcome(newUser.Email, newUser.Name, in.WelcomeURL)
	}

	return s.issue(newUser)
}

// CreateUser validates in, runs the password pipeline and stores a new active
// user with role. It issues no token.
func (s *Service) CreateUser(ctx context.Context, in SignupInput, role user.Role) (*user.User, error) {
	if !role.Valid() {
		return nil, user.ErrInvalidRole
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, user.ErrNameRequired
	}
	email := user.NormalizeEmail(in.Email)
	if err := user.ValidateEmail(email); err != nil {
		return nil, err
	}

	pending := &pendingPassword{plaintext: in.Password, confirm: in.PasswordConfirm, creating: true}
	if err := s.runPasswordPipeline(pending); err != nil {
		return nil, err
	}

	newUser := &user.User{
		Name:         name,
		Email:        email,
		Photo:        in.Photo,
		Role:         role,
		PasswordHash: pending.hash,
	}
	if err := s.users.Create(ctx, newUser); err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return newUser, nil
}

// sendWelcome runs detached from the request; failures are only logged.
func (s *Service) sendWelcome(email, name, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), welcomeEmailTimeout)
	defer cancel()

	if err := s.mailer.SendWelcomeEmail(ctx, email, name, url); err != nil {
		s.logger.Warn("failed to send welcome email", "email", email, "error", err)
	}
}

// Login verifies credentials. Unknown email and wrong password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (sess *Session, err error) {
	defer s.record("login", &err)

	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(password, existing.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(existing)
}

// Authenticate resolves a session token to its active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*user.User, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	current, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserGone
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if current.ChangedPasswordAfter(claims.IssuedAt) {
		return nil, ErrPasswordChanged
	}

	return current, nil
}

// Authorize fails with ErrForbidden unless u holds one of roles.
func Authorize(u *user.User, roles ...user.Role) error {
	for _, role := range roles {
		if u.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

// ForgotPassword stores a fresh reset fingerprint for email and mails the raw
// token appended to resetURLBase. When delivery fails the stored fingerprint
// is cleared again.
func (s *Service) ForgotPassword(ctx context.Context, email, resetURLBase string) (err error) {
	defer s.record("forgot_password", &err)

	email = user.NormalizeEmail(email)
	if email == "" {
		return user.ErrEmailRequired
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	token, err := GenerateResetToken(s.now(), s.resetTTL)
	if err != nil {
		return err
	}

	if err := s.users.SetPasswordReset(ctx, existing.ID, token.Fingerprint, token.ExpiresAt); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := strings.TrimRight(resetURLBase, "/") + "/" + token.Raw
	if err := s.mailer.SendPasswordResetEmail(ctx, existing.Email, existing.Name, resetURL); err != nil {
		if clearErr := s.users.ClearPasswordReset(context.WithoutCancel(ctx), existing.ID); clearErr != nil {
			s.logger.Error("failed to roll back reset token", "user_id", existing.ID, "error", clearErr)
		}
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	s.logger.Info("password reset token sent", "user_id", existing.ID)
	return nil
}

// ResetPassword sets a new password for the holder of a valid reset token and
// signs them in.
func (s *Service) ResetPassword(ctx context.Context, rawToken, password, confirm string) (sess *Session, err error) {
	defer s.record("reset_password", &err)

	if rawToken == "" {
		return nil, ErrInvalidResetToken
	}

	existing, err := s.users.GetByResetFingerprint(ctx, Fingerprint(rawToken), s.now())
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.savePassword(ctx, existing, password, confirm); err != nil {
		return nil, err
	}

	s.logger.Info("password reset", "user_id", existing.ID)
	return s.issue(existing)
}

// UpdatePassword changes the password of a signed-in user after checking the
// current one. Tokens issued before the change stop working.
func (s *Service) UpdatePassword(ctx context.Context, userID uuid.UUID, current, password, confirm string) (sess *Session, err error) {
	defer s.record("update_password", &err)

	existing, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserGone
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if current == "" || !s.hasher.Verify(current, existing.PasswordHash) {
		return nil, ErrWrongCurrentPassword
	}

	if err := s.savePassword(ctx, existing, password, confirm); err != nil {
		return nil, err
	}

	s.logger.Info("password updated", "user_id", existing.ID)
	return s.issue(existing)
}

// savePassword runs the password pipeline and persists the result on u.
func (s *Service) savePassword(ctx context.Context, u *user.User, password, confirm string) error {
	pending := &pendingPassword{plaintext: password, confirm: confirm}
	if err := s.runPasswordPipeline(pending); err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, u.ID, pending.hash, pending.changedAt); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserGone
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	u.PasswordHash = pending.hash
	u.PasswordChangedAt = &pending.changedAt
	u.ResetTokenFingerprint = nil
	u.ResetTokenExpiresAt = nil
	return nil
}

func (s *Service) issue(u *user.User) (*Session, error) {
	token, expiresAt, err := s.tokens.CreateToken(u.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: u}, nil
}

func (s *Service) record(event string, err *error) {
	outcome := "success"
	if *err != nil {
		outcome = "failure"
	}
	s.recorder.RecordAuthEvent(event, outcome)
}
