package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PratikDhanave/intake-edge/internal/config"
	"github.com/PratikDhanave/intake-edge/internal/httpserver"
	"github.com/PratikDhanave/intake-edge/internal/logging"
	"github.com/PratikDhanave/intake-edge/internal/notify"
	"github.com/PratikDhanave/intake-edge/internal/store"
)

// main boots the service: config → DB → schema → HTTP server.
func main() {
	// Load runtime config from environment (and .env when present).
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New(os.Stderr, "info", "console")
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to durable storage (Postgres) using a connection pool.
	db, err := store.NewPostgresStore(ctx, cfg.DBURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	// Ensure required tables/indexes exist so `docker compose up --build` is enough.
	if err := db.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("apply schema")
	}

	router, err := httpserver.NewRouter(cfg, httpserver.Deps{
		Store:   db,
		Secrets: config.EnvSecrets{},
		Logger:  logger,
		Inbox:   notify.NewHub(logger),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build router")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
