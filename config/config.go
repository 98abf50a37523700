// Package config loads server settings from the environment, with an
// optional .env file layered underneath.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/leave-engine/leave"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	HTTP     HTTPConfig
	Leave    LeaveConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	Path string
}

type HTTPConfig struct {
	AllowedOrigins []string
}

// LeaveConfig holds organization-level leave settings.
type LeaveConfig struct {
	CatalogFile                   string
	DefaultOrganization           string
	WorkHandoverThresholdDays     int
	EmergencyContactThresholdDays int
	AllowOverdraft                bool
}

// Load reads envFiles (default ".env") if present, then the environment.
// A missing .env file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Port:     getEnvInt("APP_PORT", 8080),
			Env:      getEnv("APP_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/leave.db"),
		},
		HTTP: HTTPConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		},
		Leave: LeaveConfig{
			CatalogFile:                   getEnv("LEAVE_CATALOG_FILE", ""),
			DefaultOrganization:           getEnv("LEAVE_DEFAULT_ORG", "default"),
			WorkHandoverThresholdDays:     getEnvInt("LEAVE_WORK_HANDOVER_THRESHOLD_DAYS", leave.WorkHandoverThresholdDays),
			EmergencyContactThresholdDays: getEnvInt("LEAVE_EMERGENCY_CONTACT_THRESHOLD_DAYS", leave.EmergencyContactThresholdDays),
			AllowOverdraft:                getEnvBool("LEAVE_ALLOW_OVERDRAFT", false),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT must be between 1 and 65535, got %d", c.App.Port)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if _, err := zapcore.ParseLevel(c.App.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.App.LogLevel, err)
	}
	if c.Leave.WorkHandoverThresholdDays < 0 || c.Leave.EmergencyContactThresholdDays < 0 {
		return fmt.Errorf("leave thresholds must be non-negative")
	}
	return nil
}

// Thresholds returns the validator thresholds for this deployment.
func (c Config) Thresholds() leave.Thresholds {
	return leave.Thresholds{
		WorkHandoverDays:     c.Leave.WorkHandoverThresholdDays,
		EmergencyContactDays: c.Leave.EmergencyContactThresholdDays,
	}
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

// NewLogger builds a zap logger: JSON in production, console otherwise.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.App.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	if c.IsProduction() {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
