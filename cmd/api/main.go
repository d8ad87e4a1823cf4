package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/redmonkez12/tours-api/docs" // Swagger docs (generated)
	"github.com/redmonkez12/tours-api/internal/auth"
	"github.com/redmonkez12/tours-api/internal/config"
	"github.com/redmonkez12/tours-api/internal/database"
	"github.com/redmonkez12/tours-api/internal/email"
	httpServer "github.com/redmonkez12/tours-api/internal/http"
	"github.com/redmonkez12/tours-api/internal/logging"
	"github.com/redmonkez12/tours-api/internal/metrics"
	"github.com/redmonkez12/tours-api/internal/ratelimit"
	"github.com/redmonkez12/tours-api/internal/store"
	"github.com/redmonkez12/tours-api/internal/user"
)

// @title           Natours API
// @version         1.0
// @description     Users, authentication and password lifecycle for the Natours tours API.

// @contact.name   API Support
// @contact.email  support@natours.io

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"db_driver", cfg.Database.Driver,
		"token", cfg.Auth.TokenKind,
	)

	ctx := context.Background()

	// Initialize user repository
	userRepo, closeStore, err := store.OpenUsers(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer closeStore(context.Background())

	// Initialize rate limiter
	rateLimiter, closeRedis, err := initRateLimiter(ctx, cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer closeRedis()

	hasher, err := auth.NewHasher(cfg.Auth.PasswordHasher, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	tokenService, err := auth.NewTokenService(
		cfg.Auth.TokenKind,
		cfg.Auth.JWTSecret,
		cfg.Auth.PasetoKey,
		cfg.Auth.TokenDuration,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	// Initialize email service
	emailService := email.NewService(newEmailSender(cfg.Email), cfg.Auth.PasswordResetTTL)

	appMetrics := metrics.New()

	// Initialize services
	authService := auth.NewService(
		userRepo,
		hasher,
		tokenService,
		emailService,
		logger,
		cfg.Auth.PasswordResetTTL,
		auth.WithRecorder(appMetrics),
	)
	userService := user.NewService(userRepo, logger)

	development := cfg.Server.IsDevelopment()

	// Initialize HTTP handlers
	handlers := httpServer.Handlers{
		Auth: auth.NewHandler(authService, rateLimiter, auth.HandlerConfig{
			Development:           development,
			CookieDuration:        cfg.Auth.CookieDuration,
			UniformForgotResponse: cfg.Auth.ForgotPasswordUniformResponse,
		}),
		AuthMiddleware: auth.NewMiddleware(authService, development),
		Users:          user.NewHandler(userService, development),
		Metrics:        appMetrics,
	}

	// Initialize router
	router := httpServer.NewRouter(cfg, handlers, logger)

	// Initialize HTTP server
	serverAddr := ":" + cfg.Server.Port
	server := httpServer.NewServer(
		serverAddr,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initRateLimiter connects to Redis when it is configured. Without Redis the
// API runs unthrottled.
func initRateLimiter(ctx context.Context, cfg config.RedisConfig, logger *logging.Logger) (auth.RateLimiter, func(), error) {
	if !cfg.Enabled() {
		logger.Warn("REDIS_HOST not set, rate limiting disabled")
		return ratelimit.Noop{}, func() {}, nil
	}

	client, err := database.NewRedisClient(ctx, cfg.Address(), cfg.Password, cfg.DB)
	if err != nil {
		return nil, nil, err
	}

	return ratelimit.NewLimiter(client), func() { client.Close() }, nil
}

func newEmailSender(cfg config.EmailConfig) email.Sender {
	if cfg.Transport == "brevo" {
		return email.NewBrevoSender(cfg.BrevoAPIKey, cfg.From, cfg.FromName)
	}
	return email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.From, cfg.FromName)
}
