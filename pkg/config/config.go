// Package config loads process configuration from the environment and the
// YAML deployment profile. The environment carries secrets and deployment
// identity; the profile carries tunable operational policy.
package config

import (
	"errors"
	"os"
	"path/filepath"
)

// Environment names.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ErrSigningKeyRequired is returned when production starts without a snapshot
// signing key. There is no fallback in production; unsigned snapshots are
// worthless as evidence.
var ErrSigningKeyRequired = errors.New("SNAPSHOT_SIGNING_KEY is required in production")

// Config holds environment-derived configuration.
type Config struct {
	Environment        string
	DataDir            string
	SnapshotSigningKey string

	OpenWeatherAPIKey string
	ORSAPIKey         string
	BrevoAPIKey       string

	RegulatorTokenKey string
	PostgresDSN       string
	RedisAddr         string
	S3Bucket          string
}

// Load loads configuration from environment variables.
func Load() (Config, error) {
	cfg := Config{
		Environment:        getenv("ENVIRONMENT", EnvDevelopment),
		DataDir:            getenv("DATA_DIR", "./data"),
		SnapshotSigningKey: os.Getenv("SNAPSHOT_SIGNING_KEY"),
		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		ORSAPIKey:          os.Getenv("ORS_API_KEY"),
		BrevoAPIKey:        os.Getenv("BREVO_API_KEY"),
		RegulatorTokenKey:  os.Getenv("REGULATOR_TOKEN_KEY"),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		S3Bucket:           os.Getenv("EVIDENCE_S3_BUCKET"),
	}

	if cfg.Environment == EnvProduction && cfg.SnapshotSigningKey == "" {
		return Config{}, ErrSigningKeyRequired
	}
	return cfg, nil
}

// IsProduction reports whether the deployment is production.
func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// EventLogPath is the event log file inside the data dir.
func (c Config) EventLogPath() string {
	return filepath.Join(c.DataDir, "events.jsonl")
}

// SnapshotDir is the snapshot store directory inside the data dir.
func (c Config) SnapshotDir() string {
	return filepath.Join(c.DataDir, "snapshots")
}

// NotificationPath is the notification store file inside the data dir.
func (c Config) NotificationPath() string {
	return filepath.Join(c.DataDir, "notifications.jsonl")
}

// DenialDBPath is the audit denial database inside the data dir.
func (c Config) DenialDBPath() string {
	return filepath.Join(c.DataDir, "denials.db")
}

// CounterPath is the shipment id counter file inside the data dir.
func (c Config) CounterPath() string {
	return filepath.Join(c.DataDir, "shipment_counter")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
