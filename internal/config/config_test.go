package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadAppliesDefaultsUnderOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9090

[openai]
api_key = "test-key"
model = "gpt-4o-mini"

[policy]
max_wind_speed_ms = 8.0
allow_night_flight = true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Overridden values.
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "test-key", cfg.OpenAI.APIKey)
	assert.Equal(t, 8.0, cfg.Policy.MaxWindSpeedMS)
	assert.True(t, cfg.Policy.AllowNightFlight)

	// Untouched defaults survive.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 15.0, cfg.Policy.MaxGustSpeedMS)
	assert.Equal(t, 120.0, cfg.Policy.MaxAltitudeAGLM)
	assert.False(t, cfg.Policy.AllowBVLOS)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadAPIKeyFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 8080\n"), 0o644))

	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.OpenAI.APIKey)
}

func TestDefaultPolicyIsConservative(t *testing.T) {
	d := DefaultPolicyDefaults()

	assert.False(t, d.AllowBVLOS)
	assert.False(t, d.AllowNightFlight)
	assert.Equal(t, 10.0, d.MaxWindSpeedMS)
	assert.Equal(t, 120.0, d.MaxAltitudeAGLM)
	assert.Zero(t, d.MaxPilotInactivity)
	assert.Zero(t, d.MaxPopulationDensity)
}
