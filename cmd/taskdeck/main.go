// TaskDeck Core - Task Tracking Service
//
// This is the main entry point for the TaskDeck Core application, a
// multi-tenant task tracking API with role-based access control and
// brute-force login protection.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/taskdeck/taskdeck-core/migrations"

	"github.com/taskdeck/taskdeck-core/internal/account"
	"github.com/taskdeck/taskdeck-core/internal/api"
	"github.com/taskdeck/taskdeck-core/internal/audit"
	"github.com/taskdeck/taskdeck-core/internal/auth"
	"github.com/taskdeck/taskdeck-core/internal/infrastructure/config"
	"github.com/taskdeck/taskdeck-core/internal/infrastructure/database"
	"github.com/taskdeck/taskdeck-core/internal/infrastructure/logging"
	"github.com/taskdeck/taskdeck-core/internal/task"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting TaskDeck Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories
	accountRepo := account.NewRepository(db.DB)
	tokenRepo := auth.NewTokenRepository(db.DB)
	auditRepo := audit.NewRepository(db.DB)
	taskRepo := task.NewSQLiteRepository(db)

	// Seed an administrator on first boot so the API is usable
	if _, seedErr := account.SeedAdmin(ctx, accountRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// Authentication service
	authService := auth.NewService(accountRepo, tokenRepo, auditRepo, auth.SystemClock(), log.Logger, auth.Config{
		JWTSecret:        cfg.Security.JWT.Secret,
		AccessTokenTTL:   time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute,
		RefreshTokenTTL:  time.Duration(cfg.Security.JWT.RefreshTokenTTL) * time.Minute,
		LockoutThreshold: cfg.Security.Lockout.Threshold,
		LockoutWindow:    cfg.Security.LockoutWindow(),
	})

	// Task service
	taskService := task.NewService(taskRepo, accountRepo, log.Logger)

	// API server
	server, err := api.New(api.Deps{
		Config:   cfg.Server,
		Security: cfg.Security,
		Logger:   log,
		Auth:     authService,
		Accounts: accountRepo,
		Tasks:    taskService,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("TaskDeck Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses TASKDECK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TASKDECK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheckTimeout bounds the startup health verification.
const healthCheckTimeout = 5 * time.Second

// healthCheck verifies infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, server *api.Server) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}
