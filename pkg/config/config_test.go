package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 2*time.Second, cfg.Processing.StageInterval)
	assert.Equal(t, 10*time.Second, cfg.Processing.CompletionDelay)
	assert.Equal(t, 3*time.Second, cfg.Processing.BatchStagger)
	assert.Equal(t, PresetBackendFile, cfg.Presets.Backend)
	assert.Equal(t, "fraudlens.savedFilters", cfg.Presets.StorageKey)
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("PRESETS_BACKEND", "Redis")
	t.Setenv("PROCESSING_STAGE_INTERVAL", "500ms")
	t.Setenv("PROCESSING_COMPLETION_DELAY", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, PresetBackendRedis, cfg.Presets.Backend)
	assert.Equal(t, 500*time.Millisecond, cfg.Processing.StageInterval)
	assert.Equal(t, 10*time.Second, cfg.Processing.CompletionDelay)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
