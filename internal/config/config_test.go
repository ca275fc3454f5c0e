package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "root:@tcp(localhost:3306)/hms?charset=utf8mb4&parseTime=True&loc=UTC", cfg.Database.DSN)
	assert.Equal(t, 15, cfg.JWTExpirationMinutes)
	assert.Equal(t, 168, cfg.JWTRefreshExpirationHours)
	assert.Equal(t, "UTC", cfg.FacilityLocation.String())
	assert.False(t, cfg.StrictIdentityResolution)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USERNAME", "hms")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("FACILITY_TIMEZONE", "Europe/London")
	t.Setenv("STRICT_IDENTITY_RESOLUTION", "true")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "host=db port=5432 user=hms password=secret dbname=hms sslmode=disable TimeZone=UTC", cfg.Database.DSN)
	assert.Equal(t, "Europe/London", cfg.FacilityLocation.String())
	assert.True(t, cfg.StrictIdentityResolution)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
}

func TestLoadConfigExplicitDSNWins(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file::memory:")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non-numeric expiry", "JWT_EXPIRATION_MINUTES", "soon"},
		{"zero expiry", "JWT_EXPIRATION_MINUTES", "0"},
		{"unknown driver", "DB_DRIVER", "oracle"},
		{"unknown timezone", "FACILITY_TIMEZONE", "Mars/Olympus"},
		{"shared secrets", "JWT_REFRESH_SECRET", "default_jwt_secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestProductionRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("JWT_SECRET", "prod-access")
	t.Setenv("JWT_REFRESH_SECRET", "prod-refresh")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}
