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
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
	SessionStoreNone     = "none"
)

type Config struct {
	Addr                    string
	Environment             string
	DatabaseURL             string
	JWTSecret               string
	SessionTTL              time.Duration
	SessionStore            string
	SessionPurgeInterval    time.Duration
	RedisAddr               string
	RedisPassword           string
	RedisDB                 int
	AccessPolicyFile        string
	DataEncryptionKey       string
	LogLevel                string
	MaxBodyBytes            int64
	LoginRateLimitPerMinute int
	RunMigrations           bool
	MigrationsDir           string
	SeedDemoAccounts        bool
	SeedDemoPassword        string
	MetricsEnabled          bool
}

// Load reads a .env file when present, then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:                    getEnv("APP_ADDR", ":8080"),
		Environment:             getEnv("APP_ENV", "development"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		SessionTTL:              getEnvDuration("SESSION_TTL", 8*time.Hour),
		SessionStore:            strings.ToLower(getEnv("SESSION_STORE", SessionStorePostgres)),
		SessionPurgeInterval:    getEnvDuration("SESSION_PURGE_INTERVAL", time.Hour),
		RedisAddr:               getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:           getEnv("REDIS_PASSWORD", ""),
		RedisDB:                 getEnvInt("REDIS_DB", 0),
		AccessPolicyFile:        getEnv("ACCESS_POLICY_FILE", ""),
		DataEncryptionKey:       getEnv("DATA_ENCRYPTION_KEY", ""),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		MaxBodyBytes:            int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		LoginRateLimitPerMinute: getEnvInt("LOGIN_RATE_LIMIT_PER_MINUTE", 10),
		RunMigrations:           getEnvBool("RUN_MIGRATIONS", true),
		MigrationsDir:           getEnv("MIGRATIONS_DIR", "migrations"),
		SeedDemoAccounts:        getEnvBool("SEED_DEMO_ACCOUNTS", false),
		SeedDemoPassword:        getEnv("SEED_DEMO_PASSWORD", ""),
		MetricsEnabled:          getEnvBool("METRICS_ENABLED", true),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	switch c.SessionStore {
	case SessionStorePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when SESSION_STORE=postgres")
		}
	case SessionStoreRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return fmt.Errorf("REDIS_ADDR is required when SESSION_STORE=redis")
		}
	case SessionStoreNone:
	default:
		return fmt.Errorf("SESSION_STORE must be one of postgres, redis, none")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
	} else if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	if c.SessionTTL < time.Minute {
		return fmt.Errorf("SESSION_TTL must be at least 1m")
	}
	if c.SeedDemoAccounts {
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("SEED_DEMO_ACCOUNTS requires DATABASE_URL")
		}
		if c.SeedDemoPassword == "" {
			return fmt.Errorf("SEED_DEMO_PASSWORD must be set when SEED_DEMO_ACCOUNTS is true")
		}
		if c.IsProduction() {
			return fmt.Errorf("SEED_DEMO_ACCOUNTS must be disabled in production")
		}
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.LoginRateLimitPerMinute <= 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}
