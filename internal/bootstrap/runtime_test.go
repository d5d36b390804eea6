package bootstrap

import (
	"context"
	"testing"

	"bazar/internal/config"
	"bazar/internal/models"
	"bazar/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func devConfig() *config.Config {
	return &config.Config{
		Env:               "development",
		DevBootstrapAdmin: true,
		DevAdminUsername:  "spravca",
		DevAdminEmail:     "Spravca@Bazar.local",
		DevAdminPassword:  "silneheslo",
	}
}

func TestEnsureDevAdmin_CreatesAdmin(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, EnsureDevAdmin(context.Background(), devConfig(), db))

	var u models.User
	require.NoError(t, db.Where("email = ?", "spravca@bazar.local").First(&u).Error)
	assert.Equal(t, "spravca", u.Username)
	assert.True(t, u.IsAdmin())

	// idempotent
	require.NoError(t, EnsureDevAdmin(context.Background(), devConfig(), db))
	var n int64
	db.Model(&models.User{}).Count(&n)
	assert.EqualValues(t, 1, n)
}

func TestEnsureDevAdmin_PromotesExistingUser(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	u := testutil.CreateUser(t, db, "spravca")
	cfg := devConfig()
	cfg.DevAdminEmail = u.Email

	require.NoError(t, EnsureDevAdmin(context.Background(), cfg, db))
	var got models.User
	require.NoError(t, db.First(&got, u.ID).Error)
	assert.Equal(t, models.RoleAdmin, got.Role)
}

func TestEnsureDevAdmin_Guards(t *testing.T) {
	db := testutil.NewSQLiteDB(t)

	prod := devConfig()
	prod.Env = "production"
	require.NoError(t, EnsureDevAdmin(context.Background(), prod, db))

	off := devConfig()
	off.DevBootstrapAdmin = false
	require.NoError(t, EnsureDevAdmin(context.Background(), off, db))

	var n int64
	db.Model(&models.User{}).Count(&n)
	assert.Zero(t, n)

	noPassword := devConfig()
	noPassword.DevAdminPassword = ""
	assert.Error(t, EnsureDevAdmin(context.Background(), noPassword, db))
}
