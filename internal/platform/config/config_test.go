// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira-import/internal/platform/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/yomira")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_PUBLIC_KEY_PATH", "/keys/public.pem")
}

/*
TestLoad_Defaults verifies defaults are applied when only required variables are set.
*/
func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "imports:documents", cfg.ImportStream)
	assert.Equal(t, 2, cfg.WorkerConcurrency)
	assert.Equal(t, "@every 5m", cfg.SweepSchedule)
	assert.Equal(t, 30*time.Minute, cfg.StaleProcessingAfter)
	assert.True(t, cfg.IsDevelopment())
}

/*
TestLoad_MissingRequired fails fast when the database URL is absent.
*/
func TestLoad_MissingRequired(t *testing.T) {
	// Register for restore, then remove it entirely
	t.Setenv("DATABASE_URL", "unused")
	require.NoError(t, os.Unsetenv("DATABASE_URL"))
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_PUBLIC_KEY_PATH", "/keys/public.pem")

	_, err := config.Load()
	assert.Error(t, err)
}

/*
TestLoad_InvalidConcurrency rejects a non-positive worker count.
*/
func TestLoad_InvalidConcurrency(t *testing.T) {
	setRequired(t)
	t.Setenv("WORKER_CONCURRENCY", "0")

	_, err := config.Load()
	assert.Error(t, err)
}

/*
TestConfig_AllowsOrigin checks the production CORS allow-list.
*/
func TestConfig_AllowsOrigin(t *testing.T) {
	cfg := &config.Config{Environment: "production", ExtraOrigins: "https://studio.example.com, https://beta.example.com"}

	assert.True(t, cfg.AllowsOrigin("https://admin.yomira.app"))
	assert.True(t, cfg.AllowsOrigin("https://beta.example.com"))
	assert.False(t, cfg.AllowsOrigin("https://evil.example.com"))
}
