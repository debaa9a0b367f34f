package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("STORAGE_BACKEND", "MEMORY")

	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.OTLPEnabled)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadProductionEnablesTelemetry(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg := Load()
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.OTLPEnabled)
	assert.InDelta(t, 0.5, cfg.OTLPSamplingRatio, 1e-9)
	assert.True(t, cfg.Redis.Enabled())
}
