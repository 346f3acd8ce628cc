// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

// Command api is the entry point for the Labtrace HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Register Prometheus collectors.
//  7. Wire the token service, decision engine, gate, and HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/labtrace/labtrace/internal/api"
	"github.com/labtrace/labtrace/internal/iam/activity"
	"github.com/labtrace/labtrace/internal/iam/auth"
	"github.com/labtrace/labtrace/internal/iam/rbac"
	"github.com/labtrace/labtrace/internal/platform/config"
	"github.com/labtrace/labtrace/internal/platform/constants"
	"github.com/labtrace/labtrace/internal/platform/middleware"
	"github.com/labtrace/labtrace/internal/platform/migration"
	"github.com/labtrace/labtrace/internal/platform/obs"
	pgstore "github.com/labtrace/labtrace/internal/platform/postgres"
	redisstore "github.com/labtrace/labtrace/internal/platform/redis"
	"github.com/labtrace/labtrace/internal/platform/sec"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "labtrace"))
	slog.SetDefault(log)

	log.Info("[Labtrace] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "labtrace"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 6. Metrics ────────────────────────────────────────────────────────
	obs.Init()

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. Domain Wiring ──────────────────────────────────────────────────
	codec, err := sec.NewTokenCodec(cfg.JWTSecret, constants.AuthIssuer, constants.AuthAudience)
	must(log, err, "initialize token codec")

	userRepository := rbac.NewUserRepository(pool)
	roleRepository := rbac.NewRoleRepository(pool)
	privilegeRepository := rbac.NewPrivilegeRepository(pool)

	engine := rbac.NewEngine(roleRepository, privilegeRepository, log)
	recorder := activity.NewSlogRecorder(log)

	revocationStore := auth.NewRevocationStore(rdb)
	tokenService := auth.NewService(codec, revocationStore, userRepository, recorder, auth.ServiceConfig{
		AccessTokenTTL:    cfg.AccessTokenTTL,
		RefreshTokenTTL:   cfg.RefreshTokenTTL,
		RevocationTimeout: cfg.RevocationTimeout,
	}, log)

	gate := auth.NewGate(tokenService, userRepository, engine, recorder, log)

	// Handlers receive their guards as closures so the domain packages stay
	// decoupled from the middleware package.
	authHandler := auth.NewHandler(tokenService, middleware.RequirePrivileges(gate))
	rbacHandler := rbac.NewHandler(engine, func(privileges ...string) func(http.Handler) http.Handler {
		return middleware.RequirePrivileges(gate, privileges...)
	})

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		RBAC:      rbacHandler,
	}

	// Server root context controls background middleware goroutines.
	serverCtx, serverCancel := context.WithCancel(context.Background())
	defer serverCancel()

	server := api.NewServer(serverCtx, cfg, log, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
