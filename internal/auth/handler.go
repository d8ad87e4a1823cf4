package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/tours-api/internal/apperror"
	"github.com/redmonkez12/tours-api/internal/httputil"
	"github.com/redmonkez12/tours-api/internal/logging"
	"github.com/redmonkez12/tours-api/internal/user"
)

// RateLimiter throttles the unauthenticated endpoints.
type RateLimiter interface {
	CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error)
	RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error
	CheckEmailCooldown(ctx context.Context, email string) (bool, error)
	SetEmailCooldown(ctx context.Context, email string) error
}

// HandlerConfig holds the HTTP-level settings of the auth endpoints.
type HandlerConfig struct {
	Development    bool
	CookieDuration time.Duration
	// UniformForgotResponse hides whether an account exists from forgotPassword.
	UniformForgotResponse bool
}

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	rateLimiter RateLimiter
	cfg         HandlerConfig
}

func NewHandler(service *Service, rateLimiter RateLimiter, cfg HandlerConfig) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		cfg:         cfg,
	}
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UpdatePasswordRequest represents the password change body
type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// SessionData is the data member of responses that sign the user in
type SessionData struct {
	User *user.User `json:"user"`
}

// Signup handles account creation
// @Summary      Sign up
// @Description  Create an account with role user and sign in. A welcome email is sent in the background.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Account details"
// @Success      201 {object} httputil.Envelope{data=SessionData}
// @Failure      400 {object} httputil.Envelope "Validation error"
// @Failure      409 {object} httputil.Envelope "Email already exists"
// @Failure      429 {object} httputil.Envelope "Too many requests"
// @Router       /api/v1/users/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limited(w, r, "signup") {
		return
	}

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signup request body", "error", err.Error())
		h.fail(w, r, apperror.Validation(httputil.CodeInvalidRequestBody, "invalid request body"))
		return
	}

	sess, err := h.service.Signup(r.Context(), SignupInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		WelcomeURL:      baseURL(r) + "/me",
	})
	if err != nil {
		logger.Warn("signup failed", "error", err.Error())
		h.fail(w, r, err)
		return
	}

	logger.Info("user signed up successfully", "user_id", sess.User.ID)
	h.respondSession(w, sess, http.StatusCreated)
}

// Login handles user login
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} httputil.Envelope{data=SessionData}
// @Failure      400 {object} httputil.Envelope "Missing email or password"
// @Failure      401 {object} httputil.Envelope "Incorrect email or password"
// @Failure      429 {object} httputil.Envelope "Too many requests"
// @Router       /api/v1/users/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limited(w, r, "login") {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		h.fail(w, r, apperror.Validation(httputil.CodeInvalidRequestBody, "invalid request body"))
		return
	}

	sess, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		logger.Warn("login failed", "error", err.Error())
		h.fail(w, r, err)
		return
	}

	logger.Info("user logged in successfully", "user_id", sess.User.ID)
	h.respondSession(w, sess, http.StatusOK)
}

// Logout handles user logout
// @Summary      Log out
// @Description  Overwrites the session cookie. Bearer tokens stay valid until they expire.
// @Tags         auth
// @Produce      json
// @Success      200 {object} httputil.Envelope
// @Router       /api/v1/users/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w, !h.cfg.Development)
	httputil.RespondJSON(w, httputil.Envelope{Status: httputil.StatusSuccess}, http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Mails a reset link valid for 10 minutes.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} httputil.Envelope
// @Failure      404 {object} httputil.Envelope "No user with that email"
// @Failure      429 {object} httputil.Envelope "Too many requests"
// @Failure      500 {object} httputil.Envelope "Email could not be sent"
// @Router       /api/v1/users/forgotPassword [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limited(w, r, "forgot_password") {
		return
	}

	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid forgot password request body", "error", err.Error())
		h.fail(w, r, apperror.Validation(httputil.CodeInvalidRequestBody, "invalid request body"))
		return
	}

	// Check email cooldown (2 min)
	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), req.Email)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown")
		h.fail(w, r, apperror.TooManyRequests(httputil.CodeCooldownActive, "please wait before requesting another reset"))
		return
	}

	err = h.service.ForgotPassword(r.Context(), req.Email, baseURL(r)+"/api/v1/users/resetPassword")

	// In uniform mode the cooldown applies to every address, known or not.
	if err == nil || h.hideForgotFailure(err) {
		if err := h.rateLimiter.SetEmailCooldown(r.Context(), req.Email); err != nil {
			logger.Error("failed to set email cooldown", "error", err.Error())
		}
	}

	if err != nil && !h.hideForgotFailure(err) {
		logger.Warn("forgot password failed", "error", err.Error())
		h.fail(w, r, err)
		return
	}
	if err != nil {
		logger.Warn("forgot password failed, responding uniformly", "error", err.Error())
	}

	httputil.RespondMessage(w, "Token sent to email!", http.StatusOK)
}

// hideForgotFailure reports whether err must be masked as success because
// the uniform response mode is on.
func (h *Handler) hideForgotFailure(err error) bool {
	if !h.cfg.UniformForgotResponse {
		return false
	}
	return errors.Is(err, user.ErrNotFound) || errors.Is(err, ErrDeliveryFailed)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token   path string               true "Reset token from the email"
// @Param        request body ResetPasswordRequest true "New password"
// @Success      200 {object} httputil.Envelope{data=SessionData}
// @Failure      400 {object} httputil.Envelope "Token is invalid or has expired"
// @Router       /api/v1/users/resetPassword/{token} [patch]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		h.fail(w, r, apperror.Validation(httputil.CodeInvalidRequestBody, "invalid request body"))
		return
	}

	sess, err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password, req.PasswordConfirm)
	if err != nil {
		logger.Warn("password reset failed", "error", err.Error())
		h.fail(w, r, err)
		return
	}

	logger.Info("password reset successfully", "user_id", sess.User.ID)
	h.respondSession(w, sess, http.StatusOK)
}

// UpdateMyPassword changes the password of the signed-in user
// @Summary      Change password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdatePasswordRequest true "Current and new password"
// @Success      200 {object} httputil.Envelope{data=SessionData}
// @Failure      400 {object} httputil.Envelope "Validation error"
// @Failure      401 {object} httputil.Envelope "Current password is wrong"
// @Router       /api/v1/users/updateMyPassword [patch]
func (h *Handler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := user.FromContext(r.Context())
	if !ok {
		h.fail(w, r, ErrMissingToken)
		return
	}

	var req UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid update password request body", "error", err.Error())
		h.fail(w, r, apperror.Validation(httputil.CodeInvalidRequestBody, "invalid request body"))
		return
	}

	sess, err := h.service.UpdatePassword(r.Context(), current.ID, req.PasswordCurrent, req.Password, req.PasswordConfirm)
	if err != nil {
		logger.Warn("password update failed", "error", err.Error())
		h.fail(w, r, err)
		return
	}

	logger.Info("password updated successfully")
	h.respondSession(w, sess, http.StatusOK)
}

func (h *Handler) respondSession(w http.ResponseWriter, sess *Session, status int) {
	cookieExpiry := time.Now().Add(h.cfg.CookieDuration)
	SetSessionCookie(w, sess.Token, cookieExpiry, !h.cfg.Development)

	httputil.RespondJSON(w, httputil.Envelope{
		Status: httputil.StatusSuccess,
		Token:  sess.Token,
		Data:   SessionData{User: sess.User},
	}, status)
}

// limited checks and records the per-IP counter for purpose and writes a 429
// when the window is used up. Limiter errors never block the request.
func (h *Handler) limited(w http.ResponseWriter, r *http.Request, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())
	ip := getClientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		h.fail(w, r, apperror.TooManyRequests(httputil.CodeTooManyRequests, "Too many requests from this IP, please try again later"))
		return true
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	return false
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httputil.RespondError(w, r, mapError(err), h.cfg.Development)
}

// mapError translates service errors into operational API errors. Anything
// unrecognised passes through and becomes a generic 500.
func mapError(err error) error {
	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr):
		return appErr

	case errors.Is(err, user.ErrNameRequired):
		return apperror.Validation(httputil.CodeNameRequired, "Please tell us your name!")
	case errors.Is(err, user.ErrEmailRequired):
		return apperror.Validation(httputil.CodeEmailRequired, "Please provide your email")
	case errors.Is(err, user.ErrInvalidEmailFormat):
		return apperror.Validation(httputil.CodeInvalidEmail, "Please provide a valid email")
	case errors.Is(err, ErrPasswordRequired):
		return apperror.Validation(httputil.CodePasswordRequired, "Please provide a password")
	case errors.Is(err, ErrPasswordTooShort):
		return apperror.Validation(httputil.CodePasswordTooShort, "Password must be at least 8 characters")
	case errors.Is(err, ErrPasswordMismatch):
		return apperror.Validation(httputil.CodePasswordMismatch, "Passwords are not the same!")
	case errors.Is(err, user.ErrInvalidRole):
		return apperror.Validation(httputil.CodeInvalidRole, "Role is either: user, guide, lead-guide, admin")
	case errors.Is(err, user.ErrDuplicateEmail):
		return apperror.Conflict(httputil.CodeEmailAlreadyExists, "Email already in use. Please use another email!")

	case errors.Is(err, ErrMissingCredentials):
		return apperror.Validation(httputil.CodeMissingCredentials, "Please provide email and password!")
	case errors.Is(err, ErrInvalidCredentials):
		return apperror.Unauthenticated(httputil.CodeInvalidCredentials, "Incorrect email or password")
	case errors.Is(err, ErrMissingToken):
		return apperror.Unauthenticated(httputil.CodeMissingAuth, "You are not logged in! Please log in to get access.")
	case errors.Is(err, ErrInvalidSession):
		return apperror.Unauthenticated(httputil.CodeInvalidSession, "Invalid or expired session. Please log in again!")
	case errors.Is(err, ErrUserGone):
		return apperror.Unauthenticated(httputil.CodeUserGone, "The user belonging to this token does no longer exist.")
	case errors.Is(err, ErrPasswordChanged):
		return apperror.Unauthenticated(httputil.CodePasswordChanged, "User recently changed password! Please log in again.")
	case errors.Is(err, ErrWrongCurrentPassword):
		return apperror.Unauthenticated(httputil.CodeWrongCurrentPassword, "Your current password is wrong.")
	case errors.Is(err, ErrForbidden):
		return apperror.Forbidden(httputil.CodeForbidden, "You do not have permission to perform this action")

	case errors.Is(err, user.ErrNotFound):
		return apperror.NotFound(httputil.CodeUserNotFound, "There is no user with that email address.")
	case errors.Is(err, ErrInvalidResetToken):
		return apperror.Validation(httputil.CodeInvalidResetToken, "Token is invalid or has expired")
	case errors.Is(err, ErrDeliveryFailed):
		return apperror.Dependency(httputil.CodeEmailDeliveryFailed, "There was an error sending the email. Try again later!", err)

	default:
		return err
	}
}

// baseURL is the scheme and host the request was addressed to.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// getClientIP returns the client address. middleware.RealIP has already
// rewritten RemoteAddr from the proxy headers, so they are not read again here.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
