// Package cli holds the start-up steps shared by cmd/ledger and cmd/ledger-init.
package cli

import (
	"context"
	"os"

	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/storage"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads .env for local development. A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from a LOG_LEVEL value and installs it
// as the slog default. Unknown levels fall back to info.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	if lvl, err := log.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and exits the process when it is invalid.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the SQLite store, first running the schema bootstrap when
// AUTO_MIGRATE is set. A failed bootstrap is logged and serving continues.
func OpenStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (*storage.SQLiteRepository, error) {
	if cfg.AutoMigrate {
		RunBootstrap(ctx, logger, cfg.SQLiteDBPath, cfg.SeedDemo)
	}

	repo, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}
	logger.Info("SQLite store opened", "path", cfg.SQLiteDBPath)
	return repo, nil
}

// RunBootstrap ensures the schema and optional demo data. It never fails the
// caller; problems are logged and later queries surface them.
func RunBootstrap(ctx context.Context, logger *log.Logger, dbPath string, seed bool) bool {
	bl := logger.WithComponent(log.ComponentBootstrap)

	seeded, err := storage.Bootstrap(ctx, dbPath, seed)
	if err != nil {
		bl.ErrorContext(ctx, "Schema bootstrap failed",
			log.FieldOperation, log.OpMigrate,
			log.FieldError, err,
			"path", dbPath)
		return false
	}
	if seeded {
		bl.InfoContext(ctx, "Demo data seeded", log.FieldOperation, log.OpSeed, "path", dbPath)
	} else {
		bl.InfoContext(ctx, "Schema bootstrap complete", log.FieldOperation, log.OpMigrate, "path", dbPath)
	}
	return true
}
