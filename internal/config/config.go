package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names a storage engine the record store can run on.
type Backend string

const (
	BackendNone     Backend = ""
	BackendMongo    Backend = "mongo"
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
)

var ErrNoBackend = errors.New("no storage backend configured: set DB_URL, DATABASE_URL_PRIMARY or REDIS_URL")

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Service Ports
	HTTPPort int `env:"HTTP_PORT" default:"8080"`

	// Document store (MongoDB)
	MongoURL      string `env:"DB_URL"`
	MongoDatabase string `env:"MONGO_DATABASE" default:"mangadb"`

	// Relational store (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL_PRIMARY"`

	// Key-value store (Redis)
	RedisURL    string `env:"REDIS_URL"`
	RedisPrefix string `env:"REDIS_PREFIX" default:"mangadb"`

	// Backend override; empty means first configured of mongo, postgres, redis
	Backend Backend `env:"STORE_BACKEND"`

	// Driver tuning
	DBTimeout  time.Duration `env:"DB_TIMEOUT" default:"10s"`
	DBMaxConns int           `env:"DB_MAX_CONNS" default:"0"`

	// Admin API
	JWTSecret    string `env:"JWT_SECRET"`
	APIRateLimit int    `env:"API_RATE_LIMIT" default:"20"`
	APIRateBurst int    `env:"API_RATE_BURST" default:"40"`

	// Development
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// LoadConfig loads configuration from environment variables, after merging a
// .env file (or the file named by ENV_FILE) when one exists.
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.HTTPPort, "HTTP_PORT", 8080); err != nil {
		return nil, err
	}

	// Storage
	if err := loadEnvString(&config.MongoURL, "DB_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.MongoDatabase, "MONGO_DATABASE", "mangadb"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.DatabaseURL, "DATABASE_URL_PRIMARY", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisURL, "REDIS_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisPrefix, "REDIS_PREFIX", "mangadb"); err != nil {
		return nil, err
	}
	var backend string
	if err := loadEnvString(&backend, "STORE_BACKEND", ""); err != nil {
		return nil, err
	}
	config.Backend = Backend(strings.ToLower(backend))

	if err := loadEnvDuration(&config.DBTimeout, "DB_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.DBMaxConns, "DB_MAX_CONNS", 0); err != nil {
		return nil, err
	}

	// Admin API
	if err := loadEnvString(&config.JWTSecret, "JWT_SECRET", ""); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.APIRateLimit, "API_RATE_LIMIT", 20); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.APIRateBurst, "API_RATE_BURST", 40); err != nil {
		return nil, err
	}

	// Development
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "info"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", "text"); err != nil {
		return nil, err
	}
	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errors = append(errors, "HTTP_PORT must be between 1 and 65535")
	}

	switch c.Backend {
	case BackendNone, BackendMongo, BackendPostgres, BackendRedis:
	default:
		errors = append(errors, "STORE_BACKEND must be one of: mongo, postgres, redis")
	}
	if c.Backend != BackendNone && c.url(c.Backend) == "" {
		errors = append(errors, fmt.Sprintf("STORE_BACKEND=%s but its connection URL is not set", c.Backend))
	}

	if c.DBTimeout <= 0 {
		errors = append(errors, "DB_TIMEOUT must be positive")
	}
	if c.DBMaxConns < 0 {
		errors = append(errors, "DB_MAX_CONNS must not be negative")
	}
	if c.APIRateLimit < 1 || c.APIRateBurst < 1 {
		errors = append(errors, "API_RATE_LIMIT and API_RATE_BURST must be at least 1")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		errors = append(errors, "JWT_SECRET should be at least 32 characters long")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// StoreBackend picks the storage engine: STORE_BACKEND when set, otherwise
// the first of DB_URL, DATABASE_URL_PRIMARY and REDIS_URL that is configured.
func (c *Config) StoreBackend() (Backend, error) {
	if c.Backend != BackendNone {
		if c.url(c.Backend) == "" {
			return BackendNone, fmt.Errorf("%w: STORE_BACKEND=%s has no connection URL", ErrNoBackend, c.Backend)
		}
		return c.Backend, nil
	}
	for _, b := range []Backend{BackendMongo, BackendPostgres, BackendRedis} {
		if c.url(b) != "" {
			return b, nil
		}
	}
	return BackendNone, ErrNoBackend
}

func (c *Config) url(b Backend) string {
	switch b {
	case BackendMongo:
		return c.MongoURL
	case BackendPostgres:
		return c.DatabaseURL
	case BackendRedis:
		return c.RedisURL
	}
	return ""
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// AuthEnabled reports whether the admin API requires a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// Helper function to check if slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
