package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/watering-advisor/internal/faults"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"IMAGE_PATH", "WEATHER_NOW_PATH", "WEATHER_FORECAST_PATH", "HISTORY_PATH",
		"PLANT_PATH", "AUDIT_LOG_PATH", "LOG_PROMPT_INCLUDE_IMAGE", "MODEL",
		"OPENAI_BASE_URL", "OPENAI_API_KEY", "INFERENCE_TIMEOUT_MS", "GUARD_ENABLED",
		"TZ_NAME", "PLANT_ID", "INFLUX_URL", "INFLUX_TOKEN", "MQTT_HOST",
		"PUSHGATEWAY_URL",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./plant.jpg", cfg.ImagePath)
	assert.Equal(t, "./weather_now.json", cfg.WeatherNowPath)
	assert.Equal(t, "./watering.log", cfg.AuditLogPath)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, "Europe/Prague", cfg.Timezone)
	assert.Equal(t, 30*time.Second, cfg.InferenceTimeout)
	assert.True(t, cfg.GuardEnabled)
	assert.False(t, cfg.IncludeImageInAudit)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MODEL", "gpt-4o")
	t.Setenv("GUARD_ENABLED", "false")
	t.Setenv("INFERENCE_TIMEOUT_MS", "5000")
	t.Setenv("TZ_NAME", "Europe/Rome")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.False(t, cfg.GuardEnabled)
	assert.Equal(t, 5*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, "Europe/Rome", cfg.Timezone)
}

func TestLoad_YAMLOverlayThenEnvWins(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "advisor.yaml")
	require.NoError(t, os.WriteFile(file, []byte(
		"model: gpt-4o\nimage_path: /data/plant.png\nplant_id: monstera\n"), 0o644))
	t.Setenv("MODEL", "gpt-4.1-mini")

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "/data/plant.png", cfg.ImagePath)
	assert.Equal(t, "monstera", cfg.PlantID)
	// Environment has the last word.
	assert.Equal(t, "gpt-4.1-mini", cfg.Model)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrConfiguration))
}

func TestValidate_RequiresCredential(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, faults.ErrConfiguration))

	cfg.OpenAIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}

func TestLocation_FallsBackOnBadZone(t *testing.T) {
	cfg := Config{Timezone: "Not/AZone"}
	assert.Equal(t, time.Local, cfg.Location())

	cfg.Timezone = "Europe/Prague"
	assert.Equal(t, "Europe/Prague", cfg.Location().String())
}
