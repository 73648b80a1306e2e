package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/pokedex/internal/config"
	"github.com/JonMunkholm/pokedex/internal/core"
	"github.com/JonMunkholm/pokedex/internal/logging"
	"github.com/JonMunkholm/pokedex/internal/ratelimit"
	"github.com/JonMunkholm/pokedex/internal/store/memory"
	"github.com/JonMunkholm/pokedex/internal/store/postgres"
	"github.com/JonMunkholm/pokedex/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	if err := run(cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	limiter, importLimiter, closeLimiters, err := openRateLimiters(ctx, cfg.Rate)
	if err != nil {
		return err
	}
	defer closeLimiters()

	source := core.NewHTTPSource(cfg.Import.SourceURL, cfg.Import.FetchTimeout, cfg.Import.MaxBytes)
	imports := core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWait)
	importer := core.NewImporter(store, source, imports, cfg.Import.Timeout)
	service := core.NewService(store, importer)

	server := web.NewServer(service, web.Options{
		Addr:           cfg.Server.Addr(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		ImportTimeout:  cfg.Import.Deadline(),
		TrustedProxies: cfg.Security.TrustedProxies,
		Limiter:        limiter,
		ImportLimiter:  importLimiter,
	})

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-sigCh:
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown incomplete", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

// openStore selects the record store named by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config) (core.Store, func(), error) {
	if cfg.Store.Driver == config.DriverMemory {
		slog.Warn("using in-memory store, records are lost on restart")
		return memory.New(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := postgres.Connect(connectCtx, postgres.PoolOptions{
		URL:             cfg.Database.URL,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	if err != nil {
		return nil, nil, err
	}

	store := postgres.New(pool)
	if cfg.Database.AutoCreate {
		if err := store.EnsureSchema(connectCtx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("table ready", "table", postgres.TableName)
	}
	return store, pool.Close, nil
}

// openRateLimiters builds the global and import limiters. Both are nil
// when rate limiting is disabled.
func openRateLimiters(ctx context.Context, cfg config.RateLimitConfig) (ratelimit.Limiter, ratelimit.Limiter, func(), error) {
	if !cfg.Enabled {
		return nil, nil, func() {}, nil
	}

	if cfg.RedisURL != "" {
		client, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		slog.Info("rate limiting via redis")
		global := ratelimit.NewRedis(client, "pokedex:rate", cfg.RequestsPerMinute, time.Minute)
		imports := ratelimit.NewRedis(client, "pokedex:import", cfg.ImportLimit, time.Minute)
		return global, imports, func() { _ = client.Close() }, nil
	}

	global := ratelimit.NewMemory(cfg.RequestsPerMinute, time.Minute)
	imports := ratelimit.NewMemory(cfg.ImportLimit, time.Minute)
	return global, imports, func() {
		_ = global.Close()
		_ = imports.Close()
	}, nil
}
