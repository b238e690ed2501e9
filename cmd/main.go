package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/ghostslot/internal/adapters/http/api"
	"github.com/okian/ghostslot/internal/adapters/http/swagger"
	"github.com/okian/ghostslot/internal/adapters/repository"
	app "github.com/okian/ghostslot/internal/app"
	"github.com/okian/ghostslot/internal/auth"
	"github.com/okian/ghostslot/internal/config"
	"github.com/okian/ghostslot/pkg/logger"
	"github.com/okian/ghostslot/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	redisPingTimeout          = 2 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "ghostslot exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if err := configureLogging(cfg); err != nil {
		return err
	}
	log := logger.Get()

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	svc, err := newService(cfg, store, log)
	if err != nil {
		_ = store.Close()
		return err
	}
	if err := svc.Start(ctx); err != nil {
		_ = store.Close()
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	limiter := api.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	if limiter != nil {
		limiter.StartJanitor(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(svc, newAuthenticator(cfg), limiter),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// configureLogging switches to JSON output when asked and applies the
// configured level, falling back to info on invalid input.
func configureLogging(cfg *config.Config) error {
	if strings.EqualFold(cfg.LogFormat, "json") {
		if err := logger.InitWithOptions(logger.Options{JSON: true}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// newStore builds the configured reservation store. Redis must answer a
// ping before the service starts.
func newStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Store {
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := repository.NewRedisStore(rdb, repository.WithPrefix(cfg.RedisPrefix))
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("redis at %s: %w", cfg.RedisAddr, err)
		}
		return store, nil
	default:
		return repository.NewMemoryStore(), nil
	}
}

func newService(cfg *config.Config, store repository.Store, log logger.Logger) (*app.Service, error) {
	cohorts, err := cfg.CohortSizes()
	if err != nil {
		return nil, err
	}
	return app.New(
		app.WithLogger(log.Named("service")),
		app.WithStore(store),
		app.WithCohorts(cohorts),
		app.WithDefaultPoolSize(cfg.DefaultPoolSize),
		app.WithCoordinatorOptions(
			app.WithTTL(cfg.ReservationTTL()),
			app.WithMaxConflictRetries(cfg.MaxConflictRetries),
			app.WithMailboxSize(cfg.MailboxSize),
			app.WithUniqueSkillsets(cfg.UniqueSkillsets),
		),
	), nil
}

func newAuthenticator(cfg *config.Config) auth.Authenticator {
	if cfg.AuthMode == config.AuthToken {
		return auth.NewTokenAuthenticator(cfg.AuthTokens)
	}
	return auth.NewHeaderAuthenticator(cfg.AuthHeader)
}

// newHandler registers the API and its documentation on one mux.
func newHandler(svc api.Dependencies, a auth.Authenticator, limiter *api.Limiter) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(mux)
	server := api.NewServer(svc, api.WithAuthenticator(a), api.WithLimiter(limiter))
	server.Register(mux)
	return server.Handler(mux)
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
