package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/nexcrm/importer/internal/config"
	"github.com/nexcrm/importer/internal/importer"
	"github.com/nexcrm/importer/internal/logging"
	"github.com/nexcrm/importer/internal/sink"
	"github.com/nexcrm/importer/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"sink_mode", cfg.Sink.Mode,
		"max_concurrent_sessions", cfg.Import.MaxConcurrentSessions,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	recordSink, cleanup, err := buildSink(ctx, cfg)
	if err != nil {
		slog.Error("failed to create record sink", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	limiter := importer.NewSessionLimiter(cfg.Import.MaxConcurrentSessions, cfg.Import.SessionWaitTime)
	sessions := importer.NewManager(limiter, cfg.Import.SessionTTL)

	server := web.NewServer(cfg, sessions, recordSink)

	// Cancellable context for the idle-session reaper
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go sessions.StartReaper(jobCtx, time.Minute)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active import sessions to release their slots
		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for sessions to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("sessions did not complete in time", "error", err)
			} else {
				slog.Info("all sessions completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}

// buildSink constructs the record sink named by SINK_MODE. The returned
// cleanup closes any underlying pool and is safe to call unconditionally.
func buildSink(ctx context.Context, cfg *config.Config) (importer.Sink, func(), error) {
	switch cfg.Sink.Mode {
	case "postgres":
		poolConfig, err := pgxpool.ParseConfig(cfg.Sink.DatabaseURL)
		if err != nil {
			return nil, func() {}, err
		}
		poolConfig.MaxConns = int32(cfg.Sink.MaxConns)
		poolConfig.MinConns = int32(cfg.Sink.MinConns)

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, func() {}, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		if u, err := url.Parse(cfg.Sink.DatabaseURL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			slog.Info("connected to database")
		}
		return sink.NewPostgresSink(pool), pool.Close, nil

	default:
		s := sink.NewHTTPSink(sink.HTTPSinkConfig{
			Endpoint:   cfg.Sink.Endpoint,
			AuthToken:  cfg.Sink.AuthToken,
			Gzip:       cfg.Sink.Gzip,
			Timeout:    cfg.Sink.Timeout,
			MaxRetries: cfg.Sink.MaxRetries,
			Backoff:    cfg.Sink.Backoff,
			MaxBackoff: cfg.Sink.MaxBackoff,
		})
		slog.Info("using HTTP sink", "endpoint", cfg.Sink.Endpoint, "gzip", cfg.Sink.Gzip)
		return s, func() {}, nil
	}
}
