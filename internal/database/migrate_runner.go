package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bazar/internal/middleware"

	"gorm.io/gorm"
)

// SchemaMigration is one applied row of schema_migrations.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName pins the tracking table name.
func (SchemaMigration) TableName() string { return "schema_migrations" }

// Migrator applies and rolls back a fixed, ordered set of migrations.
type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

// NewMigrator returns a Migrator for the migrations embedded in the binary.
func NewMigrator(db *gorm.DB) (*Migrator, error) {
	all, err := Migrations()
	if err != nil {
		return nil, err
	}
	return NewMigratorWith(db, all), nil
}

// NewMigratorWith returns a Migrator for an explicit migration set, oldest first.
func NewMigratorWith(db *gorm.DB, migrations []Migration) *Migrator {
	return &Migrator{db: db, migrations: migrations}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

// Applied lists applied versions, oldest first. A missing tracking table means none.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	if !m.db.WithContext(ctx).Migrator().HasTable(&SchemaMigration{}) {
		return []int{}, nil
	}
	versions := []int{}
	if err := m.db.WithContext(ctx).Model(&SchemaMigration{}).
		Order("version ASC").Pluck("version", &versions).Error; err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return versions, nil
}

// Pending lists the migrations not yet applied. Applied versions this binary
// does not know about are an error: the database is ahead of the code.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}
	var unknown []string
	for _, v := range applied {
		if m.find(v) == nil {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("schema_migrations has versions this build does not ship: %s (roll them back with `migrate down` from the newer build)",
			strings.Join(unknown, ", "))
	}

	var pending []Migration
	for _, mig := range m.migrations {
		if !done[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies every pending migration, each in its own transaction together
// with its schema_migrations row, and returns what it applied.
func (m *Migrator) Up(ctx context.Context) ([]Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return nil, err
	}

	for _, mig := range pending {
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.Up).Error; err != nil {
				return fmt.Errorf("apply %s: %w", mig, err)
			}
			return tx.Create(&SchemaMigration{Version: mig.Version, Name: mig.Name}).Error
		})
		if err != nil {
			return nil, err
		}
		middleware.Logger.InfoContext(ctx, "migration applied", slog.String("migration", mig.String()))
	}
	return pending, nil
}

// Down rolls back version, which must be the newest applied migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	mig := m.find(version)
	if mig == nil {
		return fmt.Errorf("migration %06d is not part of this build", version)
	}
	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 || applied[len(applied)-1] != version {
		return fmt.Errorf("migration %s is not the newest applied migration", mig)
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.Down).Error; err != nil {
			return fmt.Errorf("roll back %s: %w", mig, err)
		}
		return tx.Where("version = ?", version).Delete(&SchemaMigration{}).Error
	})
	if err != nil {
		return err
	}
	middleware.Logger.InfoContext(ctx, "migration rolled back", slog.String("migration", mig.String()))
	return nil
}

func (m *Migrator) find(version int) *Migration {
	for i := range m.migrations {
		if m.migrations[i].Version == version {
			return &m.migrations[i]
		}
	}
	return nil
}
