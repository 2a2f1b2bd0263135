// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config is the resolved configuration of the server and CLI.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	Store       string
	DatabaseURL string
	AutoMigrate bool

	DBMaxConns         int32
	DBMinConns         int32
	DBStatementTimeout time.Duration
	DBLockTimeout      time.Duration

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration
}

// IsDevelopment reports whether logs should be human-friendly.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// AuthEnabled reports whether administrative routes require a token.
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// Load is LoadEnv followed by Validate.
func Load(envFiles ...string) (Config, error) {
	cfg, err := LoadEnv(envFiles...)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// LoadEnv reads envFiles (missing files are skipped) and then the environment.
// Variables already set in the environment win over file values.
func LoadEnv(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Port:               getEnv("APP_PORT", "8080"),
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Store:              getEnv("STORE", StorePostgres),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		AutoMigrate:        getEnvBool("AUTO_MIGRATE", false),
		DBMaxConns:         int32(getEnvInt("DB_MAX_CONNS", 25)),
		DBMinConns:         int32(getEnvInt("DB_MIN_CONNS", 5)),
		DBStatementTimeout: getEnvDuration("DB_STATEMENT_TIMEOUT", 30*time.Second),
		DBLockTimeout:      getEnvDuration("DB_LOCK_TIMEOUT", 5*time.Second),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		JWTIssuer:          getEnv("JWT_ISSUER", "funcid"),
		JWTTTL:             getEnvDuration("JWT_TTL", 15*time.Minute),
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE=postgres")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE %q (want %s or %s)", c.Store, StorePostgres, StoreMemory)
	}

	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
