package database

import (
	"context"
	"testing"
	"testing/fstest"

	"bazar/internal/config"
	"bazar/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMigrationDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(OpenSQLite(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

var marketplaceFS = fstest.MapFS{
	"m/000001_categories.up.sql":   {Data: []byte("CREATE TABLE categories (id INTEGER PRIMARY KEY, name TEXT NOT NULL);")},
	"m/000001_categories.down.sql": {Data: []byte("DROP TABLE categories;")},
	"m/000002_favorites.up.sql": {Data: []byte(`CREATE TABLE favorites (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL, listing_id INTEGER NOT NULL);
CREATE UNIQUE INDEX idx_favorites_user_listing ON favorites (user_id, listing_id);`)},
	"m/000002_favorites.down.sql": {Data: []byte("DROP TABLE favorites;")},
}

func TestMigrations_Embedded(t *testing.T) {
	all, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, all)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "000001_init", all[0].String())
	assert.Contains(t, all[0].Up, "CREATE UNIQUE INDEX IF NOT EXISTS idx_favorites_user_listing")
	assert.Contains(t, all[0].Down, "DROP TABLE IF EXISTS favorites")
}

func TestLoadMigrations_SortsByVersion(t *testing.T) {
	all, err := LoadMigrations(marketplaceFS, "m")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "000001_categories", all[0].String())
	assert.Equal(t, "000002_favorites", all[1].String())
}

func TestLoadMigrations_Rejects(t *testing.T) {
	cases := []struct {
		name    string
		fsys    fstest.MapFS
		wantErr string
	}{
		{
			name:    "missing down script",
			fsys:    fstest.MapFS{"m/000001_listings.up.sql": {Data: []byte("SELECT 1;")}},
			wantErr: "no down script",
		},
		{
			name: "no name",
			fsys: fstest.MapFS{
				"m/000001.up.sql":   {Data: []byte("SELECT 1;")},
				"m/000001.down.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: "NNNNNN_name",
		},
		{
			name: "zero version",
			fsys: fstest.MapFS{
				"m/000000_listings.up.sql":   {Data: []byte("SELECT 1;")},
				"m/000000_listings.down.sql": {Data: []byte("SELECT 1;")},
			},
			wantErr: "positive number",
		},
		{
			name: "duplicate version",
			fsys: fstest.MapFS{
				"m/000001_listings.up.sql":   {Data: []byte("SELECT 1;")},
				"m/000001_listings.down.sql": {Data: []byte("SELECT 1;")},
				"m/1_images.up.sql":          {Data: []byte("SELECT 1;")},
				"m/1_images.down.sql":        {Data: []byte("SELECT 1;")},
			},
			wantErr: "already used",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadMigrations(tc.fsys, "m")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestMigrator_UpAndDown(t *testing.T) {
	ctx := context.Background()
	db := newMigrationDB(t)
	migs, err := LoadMigrations(marketplaceFS, "m")
	require.NoError(t, err)
	m := NewMigratorWith(db, migs)

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	done, err := m.Up(ctx)
	require.NoError(t, err)
	assert.Len(t, done, 2)
	assert.True(t, db.Migrator().HasIndex(&models.Favorite{}, "idx_favorites_user_listing"))

	applied, err = m.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)

	done, err = m.Up(ctx)
	require.NoError(t, err)
	assert.Empty(t, done)

	err = m.Down(ctx, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newest")

	require.NoError(t, m.Down(ctx, 2))
	assert.False(t, db.Migrator().HasTable("favorites"))
	pending, err := m.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)

	assert.Error(t, m.Down(ctx, 99))
}

func TestMigrator_FailedUpLeavesNoRecord(t *testing.T) {
	ctx := context.Background()
	db := newMigrationDB(t)
	m := NewMigratorWith(db, []Migration{
		{Version: 1, Name: "categories", Up: "CREATE TABLE categories (id INTEGER PRIMARY KEY);", Down: "DROP TABLE categories;"},
		{Version: 2, Name: "broken", Up: "CREATE TABLE listings (;", Down: "SELECT 1;"},
	})

	_, err := m.Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000002_broken")

	applied, err := m.Applied(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)
}

func TestMigrator_UnknownAppliedVersion(t *testing.T) {
	ctx := context.Background()
	db := newMigrationDB(t)
	migs, err := LoadMigrations(marketplaceFS, "m")
	require.NoError(t, err)

	_, err = NewMigratorWith(db, migs).Up(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Create(&SchemaMigration{Version: 7, Name: "from_newer_build"}).Error)

	_, err = NewMigratorWith(db, migs).Up(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
	assert.Contains(t, err.Error(), "migrate down")
}

func TestPlanSchema(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.Config
		sql     bool
		auto    bool
		wantErr bool
	}{
		{"sqlite always auto", config.Config{DBDriver: config.DriverSQLite, DBSchemaMode: SchemaModeSQL}, false, true, false},
		{"hybrid dev", config.Config{Env: "development"}, true, true, false},
		{"hybrid prod", config.Config{Env: "production"}, true, false, false},
		{"sql", config.Config{DBSchemaMode: "sql"}, true, false, false},
		{"auto prod refused", config.Config{Env: "production", DBSchemaMode: "auto"}, false, false, true},
		{"auto prod allowed", config.Config{Env: "production", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, false, true, false},
		{"unknown", config.Config{DBSchemaMode: "magic"}, false, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := PlanSchema(&tc.cfg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.sql, plan.RunSQL)
			assert.Equal(t, tc.auto, plan.RunAuto)
		})
	}
}

func TestVerifySchema(t *testing.T) {
	ctx := context.Background()
	db := newMigrationDB(t)

	err := VerifySchema(ctx, db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table listings")

	require.NoError(t, db.AutoMigrate(PersistentModels()...))
	require.NoError(t, VerifySchema(ctx, db))

	require.NoError(t, db.Migrator().DropIndex(&models.Favorite{}, "idx_favorites_user_listing"))
	assert.Equal(t, []string{"index idx_favorites_user_listing"}, MissingSchema(ctx, db))
}

func TestGetSchemaStatus_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newMigrationDB(t)
	require.NoError(t, db.AutoMigrate(PersistentModels()...))

	status, err := GetSchemaStatus(ctx, db, &config.Config{DBDriver: config.DriverSQLite, Env: "test"})
	require.NoError(t, err)
	assert.False(t, status.RunSQL)
	assert.True(t, status.RunAuto)
	assert.Empty(t, status.Pending)
	assert.Empty(t, status.Missing)
}
