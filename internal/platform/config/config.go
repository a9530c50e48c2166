// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Both the API server and the import worker load the same [Config]; each reads
only the fields it needs.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the import API and worker.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value store (Redis), also backing the import job stream
	RedisURL string `env:"REDIS_URL,required"`

	// Public key used to verify access tokens issued by the auth service
	JWTPubKeyPath string `env:"JWT_PUBLIC_KEY_PATH,required"`

	// Object Storage (MinIO / S3-compatible)
	S3Endpoint  string `env:"S3_ENDPOINT"   envDefault:"localhost:9000"`
	S3Bucket    string `env:"S3_BUCKET"     envDefault:"yomira-imports"`
	S3Region    string `env:"S3_REGION"     envDefault:"auto"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3UseSSL    bool   `env:"S3_USE_SSL"    envDefault:"false"`

	// Import job queue (Redis Streams)
	ImportStream      string `env:"IMPORT_STREAM"      envDefault:"imports:documents"`
	ImportGroup       string `env:"IMPORT_GROUP"       envDefault:"import-workers"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"2"`

	// Reconciliation of records stuck in 'processing', 'pending' or 'uploading'
	SweepSchedule        string        `env:"SWEEP_SCHEDULE"         envDefault:"@every 5m"`
	StaleProcessingAfter time.Duration `env:"STALE_PROCESSING_AFTER" envDefault:"30m"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.WorkerConcurrency <= 0 {
		return nil, fmt.Errorf("config: WORKER_CONCURRENCY must be positive, got %d", cfg.WorkerConcurrency)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// AllowsOrigin reports whether a browser origin may call the API outside development.
//
// Any yomira.app origin is allowed; EXTRA_ORIGINS adds a comma separated list of exact origins.
func (c *Config) AllowsOrigin(origin string) bool {
	if strings.HasSuffix(origin, "yomira.app") {
		return true
	}
	for _, extra := range strings.Split(c.ExtraOrigins, ",") {
		if extra = strings.TrimSpace(extra); extra != "" && extra == origin {
			return true
		}
	}
	return false
}
