package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/tours-api/internal/apperror"
	"github.com/redmonkez12/tours-api/internal/auth"
	"github.com/redmonkez12/tours-api/internal/config"
	"github.com/redmonkez12/tours-api/internal/httputil"
	"github.com/redmonkez12/tours-api/internal/logging"
	"github.com/redmonkez12/tours-api/internal/metrics"
	"github.com/redmonkez12/tours-api/internal/user"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth           *auth.Handler
	AuthMiddleware *auth.Middleware
	Users          *user.Handler
	Metrics        *metrics.Metrics
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()
	development := cfg.Server.IsDevelopment()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)               // Security headers on all responses
	r.Use(middleware.RequestID)          // Add request ID
	r.Use(middleware.RealIP)             // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger)) // Structured logging with request context
	r.Use(Recoverer(development))        // Panics become 500 envelopes
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware)
	}
	r.Use(middleware.Compress(5)) // Compress responses

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, r, apperror.NotFound(httputil.CodeRouteNotFound,
			"Can't find "+r.URL.Path+" on this server!"), development)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, r, apperror.MethodNotAllowed(httputil.CodeMethodNotAllowed,
			r.Method+" is not allowed on "+r.URL.Path), development)
	})

	// Public routes
	r.Get("/health", handleHealth)
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())
	}

	// Swagger UI - only in development
	// Production builds will not have this route at all
	if development {
		logger.Info("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/signup", h.Auth.Signup)
		r.Post("/login", h.Auth.Login)
		r.Post("/logout", h.Auth.Logout)
		r.Post("/forgotPassword", h.Auth.ForgotPassword)
		r.Patch("/resetPassword/{token}", h.Auth.ResetPassword)

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware.Protect)

			r.Patch("/updateMyPassword", h.Auth.UpdateMyPassword)
			r.Get("/me", h.Users.GetMe)
			r.Patch("/updateMe", h.Users.UpdateMe)
			r.Delete("/deleteMe", h.Users.DeleteMe)

			r.Group(func(r chi.Router) {
				r.Use(h.AuthMiddleware.RestrictTo(user.RoleAdmin))

				r.Get("/", h.Users.List)
				r.Patch("/{id}/role", h.Users.SetRole)
			})
		})
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
