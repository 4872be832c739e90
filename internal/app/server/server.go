package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rhportal/internal/domain/access"
	"rhportal/internal/domain/audit"
	"rhportal/internal/domain/identity"
	"rhportal/internal/domain/session"
	"rhportal/internal/platform/config"
	cryptoutil "rhportal/internal/platform/crypto"
	"rhportal/internal/platform/db"
	"rhportal/internal/platform/jobs"
	"rhportal/internal/platform/metrics"
	authhandler "rhportal/internal/transport/http/handlers/auth"
	"rhportal/internal/transport/http/view"
)

type App struct {
	Config config.Config
	Log    *zap.Logger
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Jobs   *jobs.Service
	Router http.Handler

	stopJobs context.CancelFunc
}

// New connects the backing stores, prepares the schema and builds the router.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	app := &App{Config: cfg, Log: log}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	app.DB = pool

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	accounts := identity.NewStore(pool)
	if cfg.SeedDemoAccounts {
		if err := db.SeedDemoAccounts(ctx, accounts, cfg.SeedDemoPassword); err != nil {
			return nil, fmt.Errorf("seed demo accounts: %w", err)
		}
		log.Info("demo accounts seeded", zap.Int("count", len(db.DemoAccounts)))
	}

	policy, err := loadPolicy(cfg.AccessPolicyFile)
	if err != nil {
		return nil, err
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("data encryption key: %w", err)
	}

	sessions, err := app.sessionManager(ctx)
	if err != nil {
		return nil, err
	}

	renderer, err := view.New()
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}

	var factors authhandler.SecondFactorEnroller
	if crypto.Configured() {
		factors = identity.NewSecondFactors(accounts, crypto)
	} else {
		log.Warn("DATA_ENCRYPTION_KEY not set, TOTP enrollment disabled")
	}

	events := audit.New(pool)
	app.Router = NewRouter(Deps{
		Config:        cfg,
		Log:           log,
		Policy:        policy,
		Sessions:      sessions,
		Identity:      identity.NewService(accounts, crypto),
		SecondFactors: factors,
		Audit:         events,
		Events:        events,
		Metrics:       metrics.New(),
		View:          renderer,
		Ready:         app.ready,
	})
	ok = true
	return app, nil
}

func loadPolicy(path string) (*access.Policy, error) {
	if path == "" {
		return access.DefaultPolicy()
	}
	policy, err := access.LoadPolicy(path)
	if err != nil {
		return nil, fmt.Errorf("access policy %s: %w", path, err)
	}
	return policy, nil
}

func (a *App) sessionManager(ctx context.Context) (*session.Manager, error) {
	secret := a.Config.JWTSecret
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		secret = hex.EncodeToString(buf)
		a.Log.Warn("JWT_SECRET not set; using an ephemeral secret, sessions end on restart")
	}

	opts := []session.Option{session.WithSecureCookie(a.Config.IsProduction())}
	switch a.Config.SessionStore {
	case config.SessionStorePostgres:
		store := session.NewPostgresStore(a.DB)
		opts = append(opts, session.WithStore(store))
		jobCtx, cancel := context.WithCancel(context.Background())
		a.stopJobs = cancel
		a.Jobs = jobs.New(a.Log, store, a.Config.SessionPurgeInterval)
		a.Jobs.Start(jobCtx)
	case config.SessionStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.Config.RedisAddr,
			Password: a.Config.RedisPassword,
			DB:       a.Config.RedisDB,
		})
		a.Redis = client
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		opts = append(opts, session.WithStore(session.NewRedisStore(client)))
	}
	a.Log.Info("session store configured", zap.String("store", a.Config.SessionStore), zap.Duration("ttl", a.Config.SessionTTL))
	return session.NewManager(secret, a.Config.SessionTTL, opts...), nil
}

func (a *App) ready(ctx context.Context) error {
	if err := a.DB.Ping(ctx); err != nil {
		return err
	}
	if a.Redis != nil {
		return a.Redis.Ping(ctx).Err()
	}
	return nil
}

func (a *App) Close() {
	if a.stopJobs != nil {
		a.stopJobs()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Warn("redis close failed", zap.Error(err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("server listening", zap.String("addr", a.Config.Addr), zap.String("env", a.Config.Environment))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
