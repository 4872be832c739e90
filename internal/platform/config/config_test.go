package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Environment:             "development",
		DatabaseURL:             "postgres://localhost/rh",
		SessionTTL:              time.Hour,
		SessionStore:            SessionStorePostgres,
		MaxBodyBytes:            4096,
		LoginRateLimitPerMinute: 10,
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_STORE", "REDIS")
	t.Setenv("SESSION_TTL", "not-a-duration")
	t.Setenv("REDIS_DB", "3")

	cfg := Load()
	assert.Equal(t, SessionStoreRedis, cfg.SessionStore)
	assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, "migrations", cfg.MigrationsDir)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cases := map[string]func(*Config){
		"postgres store without database": func(c *Config) { c.DatabaseURL = "" },
		"unknown store":                   func(c *Config) { c.SessionStore = "memcached" },
		"production without secret":       func(c *Config) { c.Environment = "production" },
		"production short secret":         func(c *Config) { c.Environment = "production"; c.JWTSecret = "short" },
		"tiny ttl":                        func(c *Config) { c.SessionTTL = time.Second },
		"seed without password":           func(c *Config) { c.SeedDemoAccounts = true },
		"small body limit":                func(c *Config) { c.MaxBodyBytes = 10 },
		"no login limit":                  func(c *Config) { c.LoginRateLimitPerMinute = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateStatelessStore(t *testing.T) {
	cfg := validConfig()
	cfg.SessionStore = SessionStoreNone
	cfg.DatabaseURL = ""
	assert.NoError(t, cfg.Validate())
}
