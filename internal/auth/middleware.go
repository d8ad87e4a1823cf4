package auth

import (
	"net/http"
	"strings"

	"github.com/redmonkez12/tours-api/internal/httputil"
	"github.com/redmonkez12/tours-api/internal/logging"
	"github.com/redmonkez12/tours-api/internal/user"
)

// Middleware guards protected routes
type Middleware struct {
	service     *Service
	development bool
}

func NewMiddleware(service *Service, development bool) *Middleware {
	return &Middleware{service: service, development: development}
}

// Protect resolves the session token to an active user and attaches it to
// the request context.
func (m *Middleware) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current, err := m.service.Authenticate(r.Context(), extractToken(r))
		if err != nil {
			logging.GetLoggerFromContext(r.Context()).Warn("authentication failed", "error", err.Error())
			httputil.RespondError(w, r, mapError(err), m.development)
			return
		}

		ctx := user.WithContext(r.Context(), current)
		ctx = logging.WithLogger(ctx, logging.GetLoggerFromContext(ctx).With("user_id", current.ID))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RestrictTo only lets users holding one of roles through. It must run after
// Protect.
func (m *Middleware) RestrictTo(roles ...user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			current, ok := user.FromContext(r.Context())
			if !ok {
				httputil.RespondError(w, r, mapError(ErrMissingToken), m.development)
				return
			}

			if err := Authorize(current, roles...); err != nil {
				logging.GetLoggerFromContext(r.Context()).Warn("access denied", "role", current.Role)
				httputil.RespondError(w, r, mapError(err), m.development)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads the bearer token from the Authorization header, then
// falls back to the session cookie.
func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	if token, err := GetSessionTokenFromCookie(r); err == nil {
		return token
	}
	return ""
}
