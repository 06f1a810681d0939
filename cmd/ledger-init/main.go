// Command ledger-init creates the ledger schema and, unless disabled, seeds the demo data.
// It always exits 0; failures are logged.
package main

import (
	"context"
	"flag"

	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	seed := flag.Bool("seed", cfg.SeedDemo, "insert demo categories and transactions into an empty database")
	dbPath := flag.String("db", cfg.SQLiteDBPath, "path to the SQLite database file")
	flag.Parse()

	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentBootstrap)
	if cli.RunBootstrap(context.Background(), logger, *dbPath, *seed) {
		logger.Info("Database initialized", "path", *dbPath, "seed", *seed)
	}
}
