// Package bootstrap wires process-level runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bazar/internal/cache"
	"bazar/internal/config"
	"bazar/internal/database"
	"bazar/internal/middleware"
	"bazar/internal/models"
	"bazar/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedCatalog inserts the built-in categories and demo accounts when missing.
	SeedCatalog bool
}

// InitRuntime connects to the database and Redis, then runs the development bootstraps.
// The Redis client is nil when Redis is not configured or unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := EnsureDevAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	if opts.SeedCatalog {
		s, err := seed.NewSeeder(db, seed.Options{})
		if err != nil {
			return nil, nil, err
		}
		if _, err := s.Run(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
	}

	return db, r, nil
}

// EnsureDevAdmin creates or promotes the configured admin account. It only acts
// in the development environment with DEV_BOOTSTRAP_ADMIN enabled.
func EnsureDevAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapAdmin {
		return nil
	}

	username := strings.TrimSpace(cfg.DevAdminUsername)
	if username == "" {
		username = "admin"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevAdminEmail))
	if email == "" {
		email = "admin@bazar.local"
	}
	if cfg.DevAdminPassword == "" {
		return errors.New("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var admin models.User
		findErr := tx.Where("email = ?", email).First(&admin).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DevAdminPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash admin password: %w", err)
			}
			admin = models.User{
				Username: username,
				Email:    email,
				Password: string(hash),
				Role:     models.RoleAdmin,
			}
			return tx.Create(&admin).Error
		case findErr != nil:
			return findErr
		case admin.Role != models.RoleAdmin:
			return tx.Model(&admin).Update("role", models.RoleAdmin).Error
		}
		return nil
	})
	if err != nil {
		return err
	}

	middleware.Logger.InfoContext(ctx, "development admin bootstrap ensured", slog.String("email", email))
	return nil
}
