package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("DATABASE_DRIVER", "SQLite")
	t.Setenv("DATABASE_DSN", "file::memory:")
	t.Setenv("ALLOW_NEGATIVE_STOCK", "true")
	t.Setenv("STOCK_ALERT_SCHEDULE", "")
	t.Setenv("HTTP_PORT", "9090")

	cfg := Load()
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.True(t, cfg.AllowNegativeStock)
	assert.Empty(t, cfg.StockAlertSchedule)
	assert.Equal(t, "./uploads", cfg.UploadDir)
}

func TestDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", strings.Repeat("s", 40))
	t.Setenv("ALLOW_NEGATIVE_STOCK", "belki")

	cfg := Load()
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.False(t, cfg.AllowNegativeStock)
	assert.Equal(t, "0 0 8 * * *", cfg.StockAlertSchedule)
}

func TestValidate(t *testing.T) {
	cfg := &Config{JWTSecret: "kisa", DatabaseDriver: "postgres"}
	require.Error(t, cfg.Validate())

	cfg.JWTSecret = strings.Repeat("x", 32)
	require.NoError(t, cfg.Validate())

	cfg.DatabaseDriver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "DATABASE_DRIVER")
}
