package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreSQL    = "sql"
	StoreRedis  = "redis"
)

// Config holds application configuration
type Config struct {
	ServerPort  string
	Environment string

	StoreType      string
	DatabaseType   string
	DatabasePath   string
	DatabaseURL    string
	MigrationsPath string

	SessionStore    string
	SessionDuration time.Duration
	SessionSecret   string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	JWTSecret string
	TokenTTL  time.Duration

	AllowedOrigins     []string
	RateLimitPerMinute int
	// TrustedProxies may set X-Forwarded-For; when empty the peer address is used
	TrustedProxies []string

	SeedSampleData bool
	AdminUsername  string
	AdminPassword  string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	storeType := getEnv("STORE_TYPE", StoreMemory)
	cfg := &Config{
		ServerPort:     getEnv("PORT", "8080"),
		Environment:    getEnv("APP_ENV", "development"),
		StoreType:      storeType,
		DatabaseType:   getEnv("DB_TYPE", "sqlite"),
		DatabasePath:   getEnv("DB_PATH", "./firesafety.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrationsPath: getEnv("MIGRATIONS_PATH", ""),
		SessionStore:   getEnv("SESSION_STORE", storeType),
		SessionSecret:  getEnv("SESSION_SECRET", "dev-session-secret-change-me"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		JWTSecret:      getEnv("JWT_SECRET", "dev-jwt-secret-change-me"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
		AdminUsername:  getEnv("ADMIN_USERNAME", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
	}

	var err error
	if cfg.SessionDuration, err = getDuration("SESSION_DURATION", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 72*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 20); err != nil {
		return nil, err
	}
	if cfg.SeedSampleData, err = getBool("SEED_SAMPLE_DATA", true); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Validate rejects inconsistent settings
func (c *Config) Validate() error {
	switch c.StoreType {
	case StoreMemory, StoreSQL:
	default:
		return fmt.Errorf("unsupported STORE_TYPE %q", c.StoreType)
	}
	switch c.SessionStore {
	case StoreMemory, StoreSQL, StoreRedis:
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}
	if c.SessionStore == StoreSQL && c.StoreType != StoreSQL {
		return fmt.Errorf("SESSION_STORE=sql requires STORE_TYPE=sql")
	}
	if c.StoreType == StoreSQL {
		switch c.DatabaseType {
		case "sqlite", "sqlite3":
		case "postgres", "postgresql", "mysql":
			if c.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for DB_TYPE %q", c.DatabaseType)
			}
		default:
			return fmt.Errorf("unsupported DB_TYPE %q", c.DatabaseType)
		}
	}
	if c.SessionDuration <= 0 || c.TokenTTL <= 0 {
		return fmt.Errorf("session duration and token ttl must be positive")
	}
	if c.IsProduction() {
		if strings.HasPrefix(c.SessionSecret, "dev-") || strings.HasPrefix(c.JWTSecret, "dev-") {
			return fmt.Errorf("SESSION_SECRET and JWT_SECRET must be set in production")
		}
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
