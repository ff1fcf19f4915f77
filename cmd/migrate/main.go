package main

// Provision the database schema and object store:
//   go run ./cmd/migrate

import (
	"context"
	"os"

	"templatefill-backend/internal/bootstrap"
	"templatefill-backend/internal/extract"
	"templatefill-backend/internal/shared/config"
	"templatefill-backend/internal/shared/storage/db"
	"templatefill-backend/internal/shared/telemetry"
	"templatefill-backend/internal/templates"
)

const sweepLimit = 500

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel, cfg.LogFormat)
	defer telemetry.Sync()
	ctx := context.Background()

	store, err := bootstrap.BuildStore(ctx, cfg)
	if err != nil {
		fail("migrate.store_failed", err)
	}
	if err := store.Provision(ctx); err != nil {
		fail("migrate.provision_failed", err)
	}
	telemetry.Info("migrate.store_ready", map[string]any{"type": cfg.ObjectStoreType})

	if cfg.DatabaseURL == "" {
		telemetry.Warn("migrate.database_skipped", map[string]any{"reason": "DATABASE_URL empty"})
		return
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		fail("migrate.connect_failed", err)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		fail("migrate.migrations_failed", err)
	}

	// Finish deletes that left bytes or records behind.
	svc := templates.NewService(store, &templates.PGRepo{DB: sqlDB}, extract.New())
	cleaned, err := svc.Sweep(ctx, sweepLimit)
	if err != nil {
		telemetry.Warn("migrate.sweep_incomplete", map[string]any{"cleaned": cleaned, "error": err.Error()})
		return
	}
	telemetry.Info("migrate.done", map[string]any{"orphans_cleaned": cleaned})
}

func fail(msg string, err error) {
	telemetry.Error(msg, map[string]any{"error": err.Error()})
	telemetry.Sync()
	os.Exit(1)
}
