// Command migrate runs schema operations for the marketplace database.
//
//	migrate up              apply pending SQL migrations
//	migrate auto            run GORM AutoMigrate
//	migrate status          show schema mode, pending migrations and missing tables or indexes
//	migrate down <version>  roll back the newest applied migration
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"bazar/internal/config"
	"bazar/internal/database"
	"bazar/internal/middleware"
)

var errUsage = errors.New("usage: migrate <up|auto|status|down> [version]")

func main() {
	if err := run(); err != nil {
		middleware.Logger.Error("migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	log := middleware.Logger
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		migrator, err := database.NewMigrator(db)
		if err != nil {
			return err
		}
		applied, err := migrator.Up(ctx)
		if err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Info("sql migrations applied", slog.Int("count", len(applied)))
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Info("automigrations applied")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Info("schema status",
			slog.String("mode", status.Mode),
			slog.String("env", status.Environment),
			slog.Bool("run_sql", status.RunSQL),
			slog.Bool("run_auto", status.RunAuto),
			slog.Int("applied", len(status.Applied)),
			slog.Int("pending", len(status.Pending)),
		)
		for _, m := range status.Pending {
			log.Info("pending migration", slog.String("migration", m.String()))
		}
		for _, item := range status.Missing {
			log.Warn("marketplace schema is missing", slog.String("object", item))
		}
	case "down":
		if flag.NArg() < 2 {
			return errUsage
		}
		version, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
		}
		migrator, err := database.NewMigrator(db)
		if err != nil {
			return err
		}
		if err := migrator.Down(ctx, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Info("rolled back migration", slog.Int("version", version))
	default:
		return errUsage
	}
	return nil
}
