// Command migrate applies the embedded PostgreSQL migrations.
//
//	migrate [up|down|status|version|redo|reset] [args...]
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"

	"trustgate/internal/platform/config"
	"trustgate/internal/platform/logger"
	"trustgate/internal/platform/postgres"
)

func main() {
	flag.Parse()
	command := "up"
	args := flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	if err := run(context.Background(), cfg, command, args); err != nil {
		log.Error("migration failed", "command", command, "error", err)
		os.Exit(1)
	}
	log.Info("migration complete", "command", command)
}

func run(ctx context.Context, cfg config.Config, command string, args []string) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	return postgres.RunMigrations(ctx, db, command, args...)
}
