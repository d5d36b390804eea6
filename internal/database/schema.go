package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"bazar/internal/config"
	"bazar/internal/middleware"
	"bazar/internal/models"

	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan is what ApplySchema will do for a configuration.
type SchemaPlan struct {
	Mode    string
	RunSQL  bool
	RunAuto bool
}

// SchemaStatus reports the plan, migration progress and any marketplace
// tables or unique indexes the database is missing.
type SchemaStatus struct {
	SchemaPlan
	Environment string
	Applied     []int
	Pending     []Migration
	Missing     []string
}

// uniqueIndexes are the constraints the marketplace relies on for
// username/email uniqueness and one favorite per user and listing.
var uniqueIndexes = []struct {
	model interface{}
	name  string
}{
	{&models.User{}, "idx_users_username"},
	{&models.User{}, "idx_users_email"},
	{&models.Favorite{}, "idx_favorites_user_listing"},
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// PlanSchema decides which schema steps run. The SQL migrations are written
// for postgres, so sqlite databases are always built by AutoMigrate.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	plan := SchemaPlan{Mode: mode}
	if cfg.DBDriver == config.DriverSQLite {
		plan.RunAuto = true
		return plan, nil
	}

	prodLike := isProdLikeEnv(cfg.Env)
	switch mode {
	case SchemaModeSQL:
		plan.RunSQL = true
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return SchemaPlan{}, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.RunAuto = true
	case SchemaModeHybrid:
		plan.RunSQL = true
		plan.RunAuto = !prodLike
	default:
		return SchemaPlan{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
	return plan, nil
}

// ApplySchema runs the planned steps and then checks that every marketplace
// table and unique index exists.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.RunSQL {
		migrator, err := NewMigrator(db)
		if err != nil {
			return err
		}
		if _, err := migrator.Up(ctx); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if plan.RunAuto {
		if plan.Mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
			middleware.Logger.Warn("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true set for DB_SCHEMA_MODE=auto; review schema diffs before production deployment")
		}
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", plan.Mode), slog.String("env", cfg.Env))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	return VerifySchema(ctx, db)
}

// MissingSchema lists marketplace tables and unique indexes absent from db.
func MissingSchema(ctx context.Context, db *gorm.DB) []string {
	m := db.WithContext(ctx).Migrator()
	var missing []string
	for _, model := range PersistentModels() {
		if !m.HasTable(model) {
			stmt := &gorm.Statement{DB: db}
			name := fmt.Sprintf("%T", model)
			if err := stmt.Parse(model); err == nil {
				name = stmt.Schema.Table
			}
			missing = append(missing, "table "+name)
		}
	}
	for _, idx := range uniqueIndexes {
		if !m.HasIndex(idx.model, idx.name) {
			missing = append(missing, "index "+idx.name)
		}
	}
	return missing
}

// VerifySchema fails when MissingSchema reports anything.
func VerifySchema(ctx context.Context, db *gorm.DB) error {
	if missing := MissingSchema(ctx, db); len(missing) > 0 {
		return fmt.Errorf("schema incomplete: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GetSchemaStatus reports the plan for cfg alongside the database's current state.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan, Environment: cfg.Env}

	if plan.RunSQL {
		migrator, err := NewMigrator(db)
		if err != nil {
			return nil, err
		}
		if status.Applied, err = migrator.Applied(ctx); err != nil {
			return nil, err
		}
		if status.Pending, err = migrator.Pending(ctx); err != nil {
			return nil, err
		}
	}
	status.Missing = MissingSchema(ctx, db)
	return status, nil
}
