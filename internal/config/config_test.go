package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Env:                      "development",
		DBDriver:                 DriverPostgres,
		DBSSLMode:                "require",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBPassword:               "secure-password",
		Port:                     "5000",
		UploadMaxSizeMB:          5,
		DBConnMaxLifetimeMinutes: 1,
		StorageDriver:            StorageLocal,
		RedisURL:                 "redis://localhost:6379",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with empty SSL mode", "prod", "", true},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateDrivers(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"sqlite in development", func(c *Config) { c.DBDriver = DriverSQLite }, false},
		{"sqlite in production", func(c *Config) { c.Env = "production"; c.DBDriver = DriverSQLite }, true},
		{"unknown db driver", func(c *Config) { c.DBDriver = "mysql" }, true},
		{"minio without bucket", func(c *Config) {
			c.StorageDriver = StorageMinio
			c.MinioEndpoint = "localhost:9000"
		}, true},
		{"minio configured", func(c *Config) {
			c.StorageDriver = StorageMinio
			c.MinioEndpoint = "localhost:9000"
			c.MinioBucket = "uploads"
		}, false},
		{"minio in production without keys", func(c *Config) {
			c.Env = "production"
			c.StorageDriver = StorageMinio
			c.MinioEndpoint = "minio:9000"
			c.MinioBucket = "uploads"
		}, true},
		{"unknown storage driver", func(c *Config) { c.StorageDriver = "ftp" }, true},
		{"zero upload size", func(c *Config) { c.UploadMaxSizeMB = 0 }, true},
		{"default jwt secret in production", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = "your-secret-key-change-in-production"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_Normalization(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("DB_DRIVER", " SQLite ")

	c, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, DriverSQLite, c.DBDriver)
	assert.Equal(t, "static/uploads", c.UploadDir)
	assert.Equal(t, 5, c.UploadMaxSizeMB)
}
