package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"csvcatalog/internal/backup"
	"csvcatalog/internal/config"
	"csvcatalog/internal/database"
	"csvcatalog/internal/database/migrate"
	"csvcatalog/internal/logger"
	"csvcatalog/internal/server"
	"csvcatalog/internal/storage"
	"csvcatalog/internal/uploader"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("csvcatalog %s\n", formatVersionInfo())
		return
	}

	// Initialize logger first so configuration errors are readable
	logger.Init(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading configuration")
	}

	// Update logger with the validated environment
	logger.Init(cfg.Env, cfg.LogLevel)

	log.Info().
		Str("environment", cfg.Env).
		Str("log_level", zerolog.GlobalLevel().String()).
		Str("version", version).
		Str("commit", commit).
		Str("built", date).
		Msg("Starting csvcatalog")
	cfg.Log()

	db, err := database.NewFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}()

	if health := db.Health(ctx); health["status"] != "up" {
		log.Fatal().
			Str("error", health["error"]).
			Msg("Database health check failed")
	}

	// Schema setup is idempotent and must finish before the first request
	if err := migrate.RunMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	blobs, err := storage.NewLocalStorage(cfg.StorageDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.StorageDir).Msg("Failed to initialize local storage")
	}

	backups := backup.NewFromConfig(ctx, cfg.Backup.Remote, cfg.Backup.Timeout)
	defer func() {
		if err := backups.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing backup provider")
		}
	}()

	repo := uploader.NewCachedRepository(uploader.NewRepository(db), cfg.Cache.Size, cfg.Cache.TTL)
	svc := uploader.NewService(repo, blobs, backups)

	reconciler := uploader.NewReconcileWorker(svc, cfg.Reconcile.Interval, uploader.ReconcileOptions{
		GracePeriod:   cfg.Reconcile.GracePeriod,
		DeleteOrphans: cfg.Reconcile.DeleteOrphans,
	})
	reconciler.Start(ctx)
	defer reconciler.Stop()

	httpServer := server.NewServer(cfg, db, svc, backups.Enabled()).Start()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-shutdown
		log.Info().Msg("Shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		httpServer.SetKeepAlivesEnabled(false)

		// In-flight ingests finish before Shutdown returns
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}

		cancel()
	}()

	log.Info().
		Str("addr", httpServer.Addr).
		Msg("Server is ready to handle requests")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("HTTP server error")
		cancel()
	}

	<-ctx.Done()
	log.Info().Msg("Server shutdown completed")
}

func formatVersionInfo() string {
	return fmt.Sprintf(`Version: %s
Commit: %s
Built: %s`, version, commit, date)
}
