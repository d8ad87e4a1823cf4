package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/tours-api/internal/logging"
	"github.com/redmonkez12/tours-api/internal/user"
)

type sentEmail struct {
	kind string
	to   string
	name string
	url  string
}

// fakeMailer records outgoing emails. Welcome emails are sent from a
// goroutine, so they are also pushed to welcome.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []sentEmail
	fail    error
	welcome chan sentEmail
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{welcome: make(chan sentEmail, 8)}
}

func (m *fakeMailer) SendPasswordResetEmail(_ context.Context, to, name, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, sentEmail{kind: "reset", to: to, name: name, url: url})
	return nil
}

func (m *fakeMailer) SendWelcomeEmail(_ context.Context, to, name, url string) error {
	e := sentEmail{kind: "welcome", to: to, name: name, url: url}
	m.mu.Lock()
	m.sent = append(m.sent, e)
	m.mu.Unlock()
	m.welcome <- e
	return nil
}

func (m *fakeMailer) lastReset(t *testing.T) sentEmail {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == "reset" {
			return m.sent[i]
		}
	}
	t.Fatal("no reset email sent")
	return sentEmail{}
}

type recordedEvent struct{ event, outcome string }

type fakeRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *fakeRecorder) RecordAuthEvent(event, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event, outcome})
}

type testEnv struct {
	svc      *Service
	repo     *user.MemoryRepository
	mailer   *fakeMailer
	clock    *testClock
	tokens   TokenService
	recorder *fakeRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := newTestClock()
	tokens, err := NewJWTService([]byte("test-secret"), 90*24*time.Hour, clock.Now)
	require.NoError(t, err)

	env := &testEnv{
		repo:     user.NewMemoryRepository(),
		mailer:   newFakeMailer(),
		clock:    clock,
		tokens:   tokens,
		recorder: &fakeRecorder{},
	}
	env.svc = NewService(env.repo, NewBcryptHasher(4), tokens, env.mailer, logging.Discard(),
		DefaultResetTokenTTL, WithClock(clock.Now), WithRecorder(env.recorder))
	return env
}

func (e *testEnv) signup(t *testing.T, email string) *Session {
	t.Helper()
	sess, err := e.svc.Signup(context.Background(), SignupInput{
		Name:            "Jonas",
		Email:           email,
		Password:        "pass1234",
		PasswordConfirm: "pass1234",
	})
	require.NoError(t, err)
	return sess
}

// resetToken runs forgotPassword and returns the raw token from the mailed link.
func (e *testEnv) resetToken(t *testing.T, email string) string {
	t.Helper()
	require.NoError(t, e.svc.ForgotPassword(context.Background(), email, "http://localhost/api/v1/users/resetPassword"))
	url := e.mailer.lastReset(t).url
	return url[strings.LastIndex(url, "/")+1:]
}

func TestSignup(t *testing.T) {
	env := newTestEnv(t)

	sess := env.signup(t, " Jonas@Example.com ")

	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "jonas@example.com", sess.User.Email)
	assert.Equal(t, user.RoleUser, sess.User.Role)
	assert.Equal(t, user.DefaultPhoto, sess.User.Photo)
	assert.True(t, sess.User.Active)
	assert.Nil(t, sess.User.PasswordChangedAt)

	stored, err := env.repo.GetByEmail(context.Background(), "jonas@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "pass1234", stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$2a$04$"))

	claims, err := env.tokens.VerifyToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, claims.UserID)
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   SignupInput
		want error
	}{
		{"missing name", SignupInput{Email: "a@example.com", Password: "pass1234", PasswordConfirm: "pass1234"}, user.ErrNameRequired},
		{"missing email", SignupInput{Name: "A", Password: "pass1234", PasswordConfirm: "pass1234"}, user.ErrEmailRequired},
		{"invalid email", SignupInput{Name: "A", Email: "nope", Password: "pass1234", PasswordConfirm: "pass1234"}, user.ErrInvalidEmailFormat},
		{"missing password", SignupInput{Name: "A", Email: "a@example.com"}, ErrPasswordRequired},
		{"short password", SignupInput{Name: "A", Email: "a@example.com", Password: "pass123", PasswordConfirm: "pass123"}, ErrPasswordTooShort},
		{"mismatch", SignupInput{Name: "A", Email: "a@example.com", Password: "pass1234", PasswordConfirm: "pass12345"}, ErrPasswordMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.svc.Signup(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)

			_, err = env.repo.GetByEmail(context.Background(), "a@example.com")
			assert.ErrorIs(t, err, user.ErrNotFound)
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "jonas@example.com")

	_, err := env.svc.Signup(context.Background(), SignupInput{
		Name: "Other", Email: "JONAS@example.com", Password: "pass1234", PasswordConfirm: "pass1234",
	})
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestSignup_SendsWelcomeEmail(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Signup(context.Background(), SignupInput{
		Name: "Jonas", Email: "jonas@example.com", Password: "pass1234", PasswordConfirm: "pass1234",
		WelcomeURL: "http://localhost/me",
	})
	require.NoError(t, err)

	select {
	case e := <-env.mailer.welcome:
		assert.Equal(t, "jonas@example.com", e.to)
		assert.Equal(t, "http://localhost/me", e.url)
	case <-time.After(2 * time.Second):
		t.Fatal("welcome email not sent")
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	signed := env.signup(t, "jonas@example.com")

	sess, err := env.svc.Login(context.Background(), "JONAS@example.com", "pass1234")
	require.NoError(t, err)
	assert.Equal(t, signed.User.ID, sess.User.ID)
	assert.NotEmpty(t, sess.Token)
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "jonas@example.com")
	ctx := context.Background()

	_, err := env.svc.Login(ctx, "", "pass1234")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = env.svc.Login(ctx, "jonas@example.com", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, wrongPassword := env.svc.Login(ctx, "jonas@example.com", "wrong-pass")
	_, unknownEmail := env.svc.Login(ctx, "nobody@example.com", "pass1234")
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLogin_InactiveUser(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signup(t, "jonas@example.com")
	require.NoError(t, env.repo.Deactivate(context.Background(), sess.User.ID))

	_, err := env.svc.Login(context.Background(), "jonas@example.com", "pass1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signup(t, "jonas@example.com")
	ctx := context.Background()

	got, err := env.svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, got.ID)

	_, err = env.svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = env.svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signup(t, "jonas@example.com")

	env.clock.Advance(90*24*time.Hour + time.Second)

	_, err := env.svc.Authenticate(context.Background(), sess.Token)
	assert.ErrorIs(t, err, ErrInvalidSession)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestAuthenticate_UserGone(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signup(t, "jonas@example.com")
	require.NoError(t, env.repo.Deactivate(context.Background(), sess.User.ID))

	_, err := env.svc.Authenticate(context.Background(), sess.Token)
	assert.ErrorIs(t, err, ErrUserGone)

	orphan, _, err := env.tokens.CreateToken(uuid.New(), env.clock.Now())
	require.NoError(t, err)
	_, err = env.svc.Authenticate(context.Background(), orphan)
	assert.ErrorIs(t, err, ErrUserGone)
}

func TestAuthenticate_RejectsTokensIssuedBeforePasswordChange(t *testing.T) {
	env := newTestEnv(t)
	old := env.signup(t, "jonas@example.com")
	ctx := context.Background()

	env.clock.Advance(time.Hour)
	updated, err := env.svc.UpdatePassword(ctx, old.User.ID, "pass1234", "newpass123", "newpass123")
	require.NoError(t, err)

	_, err = env.svc.Authenticate(ctx, old.Token)
	assert.ErrorIs(t, err, ErrPasswordChanged)

	// the token returned by the change itself stays valid
	got, err := env.svc.Authenticate(ctx, updated.Token)
	require.NoError(t, err)
	assert.Equal(t, old.User.ID, got.ID)
}

// passwordChangedAt is stamped one second early and compared in whole
// seconds, so a token issued less than two seconds before a change survives it.
func TestAuthenticate_PasswordChangeGraceWindow(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		wantErr error
	}{
		{"same second", 0, nil},
		{"one second later", time.Second, nil},
		{"one and a half seconds later", 1500 * time.Millisecond, nil},
		{"two seconds later", 2 * time.Second, ErrPasswordChanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			old := env.signup(t, "jonas@example.com")
			ctx := context.Background()

			env.clock.Advance(tt.elapsed)
			_, err := env.svc.UpdatePassword(ctx, old.User.ID, "pass1234", "newpass123", "newpass123")
			require.NoError(t, err)

			_, err = env.svc.Authenticate(ctx, old.Token)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	admin := &user.User{Role: user.RoleAdmin}
	guide := &user.User{Role: user.RoleGuide}

	assert.NoError(t, Authorize(admin, user.RoleAdmin, user.RoleLeadGuide))
	assert.ErrorIs(t, Authorize(guide, user.RoleAdmin, user.RoleLeadGuide), ErrForbidden)
	assert.ErrorIs(t, Authorize(admin), ErrForbidden)
}

func TestForgotPassword(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signup(t, "jonas@example.com")

	raw := env.resetToken(t, "Jonas@Example.com")

	email := env.mailer.lastReset(t)
	assert.Equal(t, "jonas@example.com", email.to)
	assert.Equal(t, "http://localhost/api/v1/users/resetPassword/"+raw, email.url)
	assert.Len(t, raw, 64)

	stored, err := env.repo.GetByID(context.Background(), sess.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetTokenFingerprint)
	assert.Equal(t, Fingerprint(raw), *stored.ResetTokenFingerprint)
	assert.NotEqual(t, raw, *stored.ResetTokenFingerprint)
	assert.Equal(t, env.clock.Now().Add(10*time.Minute), *stored.ResetTokenExpiresAt)
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	err := env.svc.ForgotPassword(context.Background(), "nobody@example.com", "http://localhost/reset")
	assert.ErrorIs(t, err, user.ErrNotFound)

	err = env.svc.ForgotPassword(context.Background(), "  ", "http://localhost/reset")
	assert.ErrorIs(t, err, user.ErrEmailRequired)
}

func TestForgotPassword_DeliveryFailureClearsToken(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signup(t, "jonas@example.com")
	env.mailer.fail = errors.New("smtp: connection refused")

	err := env.svc.ForgotPassword(context.Background(), "jonas@example.com", "http://localhost/reset")
	assert.ErrorIs(t, err, ErrDeliveryFailed)

	stored, err := env.repo.GetByID(context.Background(), sess.User.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ResetTokenFingerprint)
	assert.Nil(t, stored.ResetTokenExpiresAt)
}

func TestForgotPassword_NewTokenReplacesOld(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "jonas@example.com")

	first := env.resetToken(t, "jonas@example.com")
	second := env.resetToken(t, "jonas@example.com")
	require.NotEqual(t, first, second)

	_, err := env.svc.ResetPassword(context.Background(), first, "newpass123", "newpass123")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	_, err = env.svc.ResetPassword(context.Background(), second, "newpass123", "newpass123")
	assert.NoError(t, err)
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)
	old := env.signup(t, "jonas@example.com")
	ctx := context.Background()
	raw := env.resetToken(t, "jonas@example.com")

	env.clock.Advance(5 * time.Minute)
	sess, err := env.svc.ResetPassword(ctx, raw, "newpass123", "newpass123")
	require.NoError(t, err)
	assert.Equal(t, old.User.ID, sess.User.ID)
	assert.NotEmpty(t, sess.Token)

	stored, err := env.repo.GetByID(ctx, old.User.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ResetTokenFingerprint)
	assert.Nil(t, stored.ResetTokenExpiresAt)
	require.NotNil(t, stored.PasswordChangedAt)
	assert.Equal(t, env.clock.Now().Add(-time.Second), *stored.PasswordChangedAt)

	_, err = env.svc.Login(ctx, "jonas@example.com", "pass1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.svc.Login(ctx, "jonas@example.com", "newpass123")
	assert.NoError(t, err)

	// single use
	_, err = env.svc.ResetPassword(ctx, raw, "another123", "another123")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	// sessions from before the reset are revoked
	_, err = env.svc.Authenticate(ctx, old.Token)
	assert.ErrorIs(t, err, ErrPasswordChanged)
}

func TestResetPassword_Expired(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "jonas@example.com")
	raw := env.resetToken(t, "jonas@example.com")

	env.clock.Advance(10 * time.Minute)

	_, err := env.svc.ResetPassword(context.Background(), raw, "newpass123", "newpass123")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPassword_InvalidToken(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "jonas@example.com")
	env.resetToken(t, "jonas@example.com")

	_, err := env.svc.ResetPassword(context.Background(), "", "newpass123", "newpass123")
	assert.ErrorIs(t, err, ErrInvalidResetToken)

	_, err = env.svc.ResetPassword(context.Background(), strings.Repeat("0", 64), "newpass123", "newpass123")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPassword_ValidationKeepsToken(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "jonas@example.com")
	raw := env.resetToken(t, "jonas@example.com")

	_, err := env.svc.ResetPassword(context.Background(), raw, "newpass123", "different1")
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	_, err = env.svc.ResetPassword(context.Background(), raw, "newpass123", "newpass123")
	assert.NoError(t, err)
}

func TestUpdatePassword(t *testing.T) {
	env := newTestEnv(t)
	sess := env.signup(t, "jonas@example.com")
	ctx := context.Background()

	_, err := env.svc.UpdatePassword(ctx, sess.User.ID, "wrong-pass", "newpass123", "newpass123")
	assert.ErrorIs(t, err, ErrWrongCurrentPassword)

	_, err = env.svc.UpdatePassword(ctx, sess.User.ID, "", "newpass123", "newpass123")
	assert.ErrorIs(t, err, ErrWrongCurrentPassword)

	_, err = env.svc.UpdatePassword(ctx, sess.User.ID, "pass1234", "short", "short")
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	updated, err := env.svc.UpdatePassword(ctx, sess.User.ID, "pass1234", "newpass123", "newpass123")
	require.NoError(t, err)
	assert.NotEmpty(t, updated.Token)

	_, err = env.svc.Login(ctx, "jonas@example.com", "newpass123")
	assert.NoError(t, err)
}

func TestUpdatePassword_UserGone(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.UpdatePassword(context.Background(), uuid.New(), "pass1234", "newpass123", "newpass123")
	assert.ErrorIs(t, err, ErrUserGone)
}

func TestService_RecordsEvents(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "jonas@example.com")
	_, _ = env.svc.Login(context.Background(), "jonas@example.com", "wrong-pass")

	env.recorder.mu.Lock()
	defer env.recorder.mu.Unlock()
	assert.Equal(t, []recordedEvent{
		{"signup", "success"},
		{"login", "failure"},
	}, env.recorder.events)
}

func TestCreateUser_WithRole(t *testing.T) {
	env := newTestEnv(t)

	admin, err := env.svc.CreateUser(context.Background(), SignupInput{
		Name: "Admin", Email: "admin@example.com", Password: "pass1234", PasswordConfirm: "pass1234",
	}, user.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, admin.Role)

	sess, err := env.svc.Login(context.Background(), "admin@example.com", "pass1234")
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, sess.User.Role)

	_, err = env.svc.CreateUser(context.Background(), SignupInput{
		Name: "X", Email: "x@example.com", Password: "pass1234", PasswordConfirm: "pass1234",
	}, user.Role("root"))
	assert.ErrorIs(t, err, user.ErrInvalidRole)
}
