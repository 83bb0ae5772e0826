package main

import (
	"context"
	"fmt"
	"os"

	"weekplan/backend/internal/config"
	"weekplan/backend/internal/db"
	"weekplan/backend/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Error(ctx, "open database failed", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer database.Close()

	applied, err := db.RunMigrations(database, cfg.MigrationsDir)
	if err != nil {
		log.Error(ctx, "run migrations failed", "dir", cfg.MigrationsDir, "err", err)
		database.Close()
		os.Exit(1)
	}

	if len(applied) == 0 {
		log.Info(ctx, "database is up to date")
		return
	}
	log.Info(ctx, "migrations applied", "files", applied)
}
