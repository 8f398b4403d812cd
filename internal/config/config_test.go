package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("USE_MEMORY_STORE", "")
	t.Setenv("ENV", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8111", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Storage.UseMemoryStore)
	assert.Equal(t, 50, cfg.Engine.MinMatchScore)

	ec := cfg.EngineConfig()
	require.NoError(t, ec.Validate())
	assert.True(t, ec.AmountTolerancePercent.Equal(decimal.NewFromFloat(0.10)))
}

func TestLoad_File(t *testing.T) {
	path := writeConfigFile(t, `
[server]
port = "9000"
allowed_origins = ["https://app.example.com"]

[storage]
use_memory_store = true

[engine]
min_match_score = 60
merchant_weight = 40
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Storage.UseMemoryStore)
	assert.Equal(t, 60, cfg.Engine.MinMatchScore)
	assert.Equal(t, 40, cfg.Engine.MerchantWeight)
	// Untouched engine fields keep their defaults.
	assert.Equal(t, 30, cfg.Engine.AmountWeight)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
[server]
port = "9000"
`)
	t.Setenv("PORT", "7777")
	t.Setenv("USE_MEMORY_STORE", "true")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "finpulse-prod")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7777", cfg.Server.Port, "environment wins over the file")
	assert.True(t, cfg.Storage.UseMemoryStore)
	assert.Equal(t, "finpulse-prod", cfg.Storage.ProjectID)
}

func TestLoad_LocalEnvSelectsMemoryStore(t *testing.T) {
	t.Setenv("ENV", "local")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Storage.UseMemoryStore)
}

func TestLoad_InvalidEngineConfig(t *testing.T) {
	path := writeConfigFile(t, `
[engine]
min_match_score = 500
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
