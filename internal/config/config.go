package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Email    EmailConfig
}

type ServerConfig struct {
	Port            string
	Env             string // development or production
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins for cookie auth
}

type DatabaseConfig struct {
	Driver string // mongo, postgres or memory

	MongoURI      string
	MongoDatabase string

	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string // empty disables rate limiting
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	TokenKind string // jwt or paseto

	JWTSecret []byte
	// PASETO symmetric key (must be 32 bytes for v4.local)
	PasetoKey []byte

	TokenDuration  time.Duration
	CookieDuration time.Duration

	PasswordHasher string // bcrypt or argon2id
	BcryptCost     int

	PasswordResetTTL              time.Duration
	ForgotPasswordUniformResponse bool
}

type EmailConfig struct {
	Transport    string // smtp or brevo
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	From         string
	FromName     string
	BrevoAPIKey  string
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	cfg := load()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadStore reads the same environment as Load but only validates what the
// admin CLI needs: the database driver and the password hasher.
func LoadStore() (*Config, error) {
	cfg := load()

	if err := cfg.validateDatabase(); err != nil {
		return nil, err
	}
	if err := cfg.validateHasher(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "3000"),
			Env:             getEnv("APP_ENV", EnvDevelopment),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Driver:        getEnv("DB_DRIVER", "mongo"),
			MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: getEnv("MONGO_DATABASE", "natours"),
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			DBName:        getEnv("DB_NAME", "natours"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenKind:                     getEnv("AUTH_TOKEN", "jwt"),
			JWTSecret:                     []byte(getEnv("JWT_SECRET", "")),
			PasetoKey:                     []byte(getEnv("PASETO_KEY", "")),
			TokenDuration:                 getDurationEnv("JWT_EXPIRES_IN", 90*24*time.Hour),
			CookieDuration:                getDurationEnv("JWT_COOKIE_EXPIRES_IN", 90*24*time.Hour),
			PasswordHasher:                getEnv("PASSWORD_HASHER", "bcrypt"),
			BcryptCost:                    getIntEnv("BCRYPT_COST", 12),
			PasswordResetTTL:              getDurationEnv("PASSWORD_RESET_TTL", 10*time.Minute),
			ForgotPasswordUniformResponse: getBoolEnv("FORGOT_PASSWORD_UNIFORM_RESPONSE", false),
		},
		Email: EmailConfig{
			Transport:    getEnv("MAIL_TRANSPORT", "smtp"),
			SMTPHost:     getEnv("EMAIL_HOST", "localhost"),
			SMTPPort:     getEnv("EMAIL_PORT", "2525"),
			SMTPUser:     getEnv("EMAIL_USERNAME", ""),
			SMTPPassword: getEnv("EMAIL_PASSWORD", ""),
			From:         getEnv("EMAIL_FROM", "no-reply@natours.io"),
			FromName:     getEnv("EMAIL_FROM_NAME", "Natours"),
			BrevoAPIKey:  getEnv("BREVO_API_KEY", ""),
		},
	}
}

// Validate checks that the loaded values are usable.
func (c *Config) Validate() error {
	switch c.Server.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Server.Env)
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	switch c.Auth.TokenKind {
	case "jwt":
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.Auth.JWTSecret))
		}
	case "paseto":
		// Validate PASETO key length (must be 32 bytes for v4.local)
		if len(c.Auth.PasetoKey) != 32 {
			return fmt.Errorf("PASETO_KEY must be exactly 32 bytes, got %d", len(c.Auth.PasetoKey))
		}
	default:
		return fmt.Errorf("unsupported AUTH_TOKEN %q", c.Auth.TokenKind)
	}

	if err := c.validateHasher(); err != nil {
		return err
	}

	if c.Auth.TokenDuration <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive")
	}
	if c.Auth.CookieDuration <= 0 {
		return fmt.Errorf("JWT_COOKIE_EXPIRES_IN must be positive")
	}
	if c.Auth.PasswordResetTTL <= 0 {
		return fmt.Errorf("PASSWORD_RESET_TTL must be positive")
	}

	switch c.Email.Transport {
	case "smtp":
	case "brevo":
		if c.Email.BrevoAPIKey == "" {
			return fmt.Errorf("BREVO_API_KEY is required when MAIL_TRANSPORT=brevo")
		}
	default:
		return fmt.Errorf("unsupported MAIL_TRANSPORT %q", c.Email.Transport)
	}

	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "mongo", "postgres", "memory":
		return nil
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
}

func (c *Config) validateHasher() error {
	switch c.Auth.PasswordHasher {
	case "bcrypt", "argon2id":
		return nil
	default:
		return fmt.Errorf("unsupported PASSWORD_HASHER %q", c.Auth.PasswordHasher)
	}
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Enabled reports whether a Redis host was configured.
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// IsDevelopment returns true if the environment is set to development
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return b
}

// getDurationEnv accepts Go duration syntax ("15m", "2160h") or a bare
// number of seconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	if d, err := time.ParseDuration(value); err == nil {
		return d
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
