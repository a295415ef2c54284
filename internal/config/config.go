// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aristath/riimtools/internal/utils"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Backend kinds selectable through RIIM_BACKEND.
const (
	BackendSimulator = "simulator"
	BackendRemote    = "remote"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for the database and backup staging (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	// Mitigation defaults applied when a request leaves them out
	Shots         int
	Seed          uint64
	Workers       int     // Scale factors executed concurrently per run
	ErrorParam    float64 // Default two-qubit depolarizing probability
	ResampleCount int     // Default repetitions of a sampled RIIM run

	Backend       string // simulator | remote
	RemoteURL     string // websocket endpoint of the remote backend
	RemoteMsgpack bool   // send jobs as msgpack binary frames instead of JSON

	CORSOrigins []string

	RunRetentionDays int
	CleanupSchedule  string

	R2 *R2Config
}

// R2Config holds Cloudflare R2 backup settings. Backups are disabled unless all credentials are set.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	BackupSchedule  string
	RetentionDays   int
}

// Enabled reports whether every credential needed to reach the bucket is present.
func (r *R2Config) Enabled() bool {
	return r != nil && r.AccountID != "" && r.AccessKeyID != "" && r.SecretAccessKey != "" && r.BucketName != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(getEnv("RIIM_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		Port:             getEnvAsInt("GO_PORT", 8001),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		Shots:            getEnvAsInt("RIIM_SHOTS", 10000),
		Seed:             uint64(getEnvAsInt("RIIM_SEED", 1)),
		Workers:          getEnvAsInt("RIIM_WORKERS", 1),
		ErrorParam:       getEnvAsFloat("RIIM_ERROR_PARAM", 0.1),
		ResampleCount:    getEnvAsInt("RIIM_RESAMPLE_COUNT", 100),
		Backend:          strings.ToLower(getEnv("RIIM_BACKEND", BackendSimulator)),
		RemoteURL:        getEnv("RIIM_REMOTE_URL", ""),
		RemoteMsgpack:    getEnvAsBool("RIIM_REMOTE_MSGPACK", false),
		CORSOrigins:      utils.ParseCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		RunRetentionDays: getEnvAsInt("RIIM_RUN_RETENTION_DAYS", 30),
		CleanupSchedule:  getEnv("RIIM_CLEANUP_SCHEDULE", "0 0 3 * * *"), // 03:00 daily
		R2: &R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET", ""),
			BackupSchedule:  getEnv("R2_BACKUP_SCHEDULE", "0 30 3 * * *"), // 03:30 daily, after cleanup
			RetentionDays:   getEnvAsInt("R2_RETENTION_DAYS", 14),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the server cannot run with
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.Shots < 1 {
		return fmt.Errorf("RIIM_SHOTS must be >= 1, got %d", c.Shots)
	}
	if c.Workers < 1 {
		return fmt.Errorf("RIIM_WORKERS must be >= 1, got %d", c.Workers)
	}
	if math.IsNaN(c.ErrorParam) || c.ErrorParam < 0 || c.ErrorParam > 1 {
		return fmt.Errorf("RIIM_ERROR_PARAM must be within [0, 1], got %v", c.ErrorParam)
	}
	if c.ResampleCount < 1 {
		return fmt.Errorf("RIIM_RESAMPLE_COUNT must be >= 1, got %d", c.ResampleCount)
	}
	switch c.Backend {
	case BackendSimulator:
	case BackendRemote:
		if c.RemoteURL == "" {
			return fmt.Errorf("RIIM_REMOTE_URL is required when RIIM_BACKEND=remote")
		}
	default:
		return fmt.Errorf("RIIM_BACKEND must be %q or %q, got %q", BackendSimulator, BackendRemote, c.Backend)
	}
	if c.RunRetentionDays < 1 {
		return fmt.Errorf("RIIM_RUN_RETENTION_DAYS must be >= 1, got %d", c.RunRetentionDays)
	}

	// Schedules use the seconds-enabled cron dialect of the scheduler
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.CleanupSchedule); err != nil {
		return fmt.Errorf("invalid RIIM_CLEANUP_SCHEDULE %q: %w", c.CleanupSchedule, err)
	}
	if c.R2.Enabled() {
		if _, err := parser.Parse(c.R2.BackupSchedule); err != nil {
			return fmt.Errorf("invalid R2_BACKUP_SCHEDULE %q: %w", c.R2.BackupSchedule, err)
		}
	}

	return nil
}

// DatabasePath returns the location of the SQLite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "riim.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
