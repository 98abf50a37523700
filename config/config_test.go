package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "default", cfg.Leave.DefaultOrganization)
	assert.Equal(t, 3, cfg.Thresholds().WorkHandoverDays)
	assert.Equal(t, 7, cfg.Thresholds().EmergencyContactDays)
	assert.False(t, cfg.Leave.AllowOverdraft)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("LEAVE_WORK_HANDOVER_THRESHOLD_DAYS", "5")
	t.Setenv("LEAVE_ALLOW_OVERDRAFT", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, 5, cfg.Thresholds().WorkHandoverDays)
	assert.True(t, cfg.Leave.AllowOverdraft)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LEAVE_DEFAULT_ORG=acme\nDB_PATH=/tmp/x.db\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("LEAVE_DEFAULT_ORG")
		os.Unsetenv("DB_PATH")
	})

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.Leave.DefaultOrganization)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "chatty")

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
