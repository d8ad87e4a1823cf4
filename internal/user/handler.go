package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/redmonkez12/tours-api/internal/apperror"
	"github.com/redmonkez12/tours-api/internal/httputil"
	"github.com/redmonkez12/tours-api/internal/logging"
)

// Handler contains HTTP handlers for the current user and user administration.
type Handler struct {
	service     *Service
	development bool
}

func NewHandler(service *Service, development bool) *Handler {
	return &Handler{service: service, development: development}
}

// UpdateMeRequest represents the profile update body
type UpdateMeRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"passwordConfirm"`
}

// SetRoleRequest represents the role change body
type SetRoleRequest struct {
	Role Role `json:"role"`
}

// UserData is the data member of single-user responses
type UserData struct {
	User *User `json:"user"`
}

// UsersData is the data member of the user listing
type UsersData struct {
	Users []*User `json:"users"`
}

// GetMe returns the authenticated user
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} httputil.Envelope{data=UserData}
// @Failure      401 {object} httputil.Envelope
// @Router       /api/v1/users/me [get]
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	current, ok := FromContext(r.Context())
	if !ok {
		h.fail(w, r, apperror.Unauthenticated(httputil.CodeMissingAuth, "You are not logged in! Please log in to get access."))
		return
	}

	httputil.RespondSuccess(w, UserData{User: current}, http.StatusOK)
}

// UpdateMe updates name and email of the authenticated user
// @Summary      Update profile
// @Description  Updates name and email only. Password fields are rejected.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateMeRequest true "Profile fields"
// @Success      200 {object} httputil.Envelope{data=UserData}
// @Failure      400 {object} httputil.Envelope "Validation error or password fields present"
// @Failure      401 {object} httputil.Envelope
// @Failure      409 {object} httputil.Envelope "Email already exists"
// @Router       /api/v1/users/updateMe [patch]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	current, ok := FromContext(r.Context())
	if !ok {
		h.fail(w, r, apperror.Unauthenticated(httputil.CodeMissingAuth, "You are not logged in! Please log in to get access."))
		return
	}

	var req UpdateMeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid update profile request body", "error", err.Error())
		h.fail(w, r, apperror.Validation(httputil.CodeInvalidRequestBody, "invalid request body"))
		return
	}

	updated, err := h.service.UpdateMe(r.Context(), current.ID, UpdateInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		logger.Warn("update profile failed", "error", err.Error())
		h.fail(w, r, err)
		return
	}

	httputil.RespondSuccess(w, UserData{User: updated}, http.StatusOK)
}

// DeleteMe deactivates the authenticated user
// @Summary      Deactivate account
// @Tags         users
// @Security     BearerAuth
// @Success      204
// @Failure      401 {object} httputil.Envelope
// @Router       /api/v1/users/deleteMe [delete]
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	current, ok := FromContext(r.Context())
	if !ok {
		h.fail(w, r, apperror.Unauthenticated(httputil.CodeMissingAuth, "You are not logged in! Please log in to get access."))
		return
	}

	if err := h.service.DeleteMe(r.Context(), current.ID); err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.RespondNoContent(w)
}

// List returns active users, one page at a time
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page number, starting at 1"
// @Param        limit query int false "Page size, at most 100"
// @Success      200 {object} httputil.Envelope{data=UsersData}
// @Failure      401 {object} httputil.Envelope
// @Failure      403 {object} httputil.Envelope
// @Router       /api/v1/users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	opts := ListOptions{
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}

	users, err := h.service.List(r.Context(), opts)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.RespondList(w, UsersData{Users: users}, len(users))
}

// SetRole changes a user's role
// @Summary      Change role
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string         true "User ID"
// @Param        request body SetRoleRequest true "New role"
// @Success      200 {object} httputil.Envelope{data=UserData}
// @Failure      400 {object} httputil.Envelope
// @Failure      403 {object} httputil.Envelope
// @Failure      404 {object} httputil.Envelope
// @Router       /api/v1/users/{id}/role [patch]
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, apperror.Validation(httputil.CodeInvalidUserID, "invalid user id"))
		return
	}

	var req SetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, apperror.Validation(httputil.CodeInvalidRequestBody, "invalid request body"))
		return
	}

	updated, err := h.service.SetRole(r.Context(), id, req.Role)
	if err != nil {
		logger.Warn("set role failed", "user_id", id, "error", err.Error())
		h.fail(w, r, err)
		return
	}

	httputil.RespondSuccess(w, UserData{User: updated}, http.StatusOK)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httputil.RespondError(w, r, mapError(err), h.development)
}

// mapError translates service errors into operational API errors.
func mapError(err error) error {
	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, ErrPasswordUpdateNotAllowed):
		return apperror.Validation(httputil.CodePasswordNotHere, "This route is not for password updates. Please use /updateMyPassword.")
	case errors.Is(err, ErrNameRequired):
		return apperror.Validation(httputil.CodeNameRequired, "Please tell us your name!")
	case errors.Is(err, ErrEmailRequired):
		return apperror.Validation(httputil.CodeEmailRequired, "Please provide your email")
	case errors.Is(err, ErrInvalidEmailFormat):
		return apperror.Validation(httputil.CodeInvalidEmail, "Please provide a valid email")
	case errors.Is(err, ErrInvalidRole):
		return apperror.Validation(httputil.CodeInvalidRole, "role must be one of user, guide, lead-guide, admin")
	case errors.Is(err, ErrDuplicateEmail):
		return apperror.Conflict(httputil.CodeEmailAlreadyExists, "Email already in use. Please use another email!")
	case errors.Is(err, ErrNotFound):
		return apperror.NotFound(httputil.CodeUserNotFound, "No user found with that ID")
	default:
		return err
	}
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}
