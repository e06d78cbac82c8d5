package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnvDefaults(t *testing.T) {
	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.APIURL)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 8000, cfg.LLM.MaxTokens)
	assert.Equal(t, "Spanish", cfg.Translate.TargetLanguage)
	assert.Equal(t, "B1", cfg.Translate.CEFRLevel)
	assert.Equal(t, "English", cfg.Translate.BridgeLanguage)
	assert.Equal(t, 2, cfg.Jobs.Workers)
	assert.Equal(t, 15, cfg.Jobs.WaveSize)
	assert.Equal(t, "0 3 * * *", cfg.Jobs.CleanupCron)
	assert.Equal(t, 30, cfg.Jobs.RetentionDays)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestNewFromEnvOverrides(t *testing.T) {
	t.Setenv("TARGET_LANGUAGE", "German")
	t.Setenv("CEFR_LEVEL", "c1")
	t.Setenv("JOB_WORKERS", "4")
	t.Setenv("WAVE_SIZE", "5")
	t.Setenv("LLM_TEMPERATURE", "0.2")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "German", cfg.Translate.TargetLanguage)
	assert.Equal(t, "C1", cfg.Translate.CEFRLevel)
	assert.Equal(t, 4, cfg.Jobs.Workers)
	assert.Equal(t, 5, cfg.Jobs.WaveSize)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
}

func TestNewFromEnvInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("JOB_WORKERS", "many")
	t.Setenv("LLM_TEMPERATURE", "hot")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Jobs.Workers)
	assert.Equal(t, 0.7, cfg.LLM.Temperature)
}

func TestNewFromEnvRejectsBadLevel(t *testing.T) {
	t.Setenv("CEFR_LEVEL", "Z3")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CEFR_LEVEL")
}

func TestValidCEFRLevel(t *testing.T) {
	for _, level := range []string{"A1", "a2", " B1 ", "b2", "C1", "c2"} {
		assert.True(t, ValidCEFRLevel(level), level)
	}
	for _, level := range []string{"", "D1", "A3", "beginner"} {
		assert.False(t, ValidCEFRLevel(level), level)
	}
}

func validSettings() RuntimeSettings {
	return RuntimeSettings{
		LLMAPIURL:      "https://openrouter.ai/api/v1",
		LLMAPIKey:      "sk-test",
		LLMModel:       "openai/gpt-4o-mini",
		TargetLanguage: "Spanish",
		CEFRLevel:      "B1",
		CleanupCron:    "0 3 * * *",
	}
}

func TestRuntimeSettingsValidate(t *testing.T) {
	require.NoError(t, validSettings().Validate())

	// The API key is optional: translations degrade without one.
	noKey := validSettings()
	noKey.LLMAPIKey = ""
	assert.NoError(t, noKey.Validate())

	noURL := validSettings()
	noURL.LLMAPIURL = ""
	assert.Error(t, noURL.Validate())

	badLevel := validSettings()
	badLevel.CEFRLevel = "X9"
	assert.Error(t, badLevel.Validate())

	badCron := validSettings()
	badCron.CleanupCron = "every tuesday"
	assert.Error(t, badCron.Validate())
}

func TestWithRuntimeSettingsOverlay(t *testing.T) {
	overlay := RuntimeSettings{
		LLMModel:       "anthropic/claude-sonnet",
		TargetLanguage: "Italian",
		CEFRLevel:      "a2",
	}

	cfg, err := NewFromEnv(WithRuntimeSettings(overlay))
	require.NoError(t, err)

	assert.Equal(t, "anthropic/claude-sonnet", cfg.LLM.Model)
	assert.Equal(t, "Italian", cfg.Translate.TargetLanguage)
	assert.Equal(t, "A2", cfg.Translate.CEFRLevel)
	// Blank overlay fields keep the env defaults.
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.APIURL)
	assert.Equal(t, "0 3 * * *", cfg.Jobs.CleanupCron)
}

func TestRuntimeSettingsFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	settings := validSettings()
	require.NoError(t, WriteRuntimeSettingsFile(path, settings))

	loaded, err := LoadRuntimeSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, settings, loaded)

	// No stray temp file is left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadRuntimeSettingsFileMissing(t *testing.T) {
	_, err := LoadRuntimeSettingsFile(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestRuntimeSettingsStoreUpdate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := NewRuntimeSettingsStore(path, validSettings())
	require.NoError(t, err)

	next := validSettings()
	next.TargetLanguage = "French"
	updated, err := store.UpdateRuntimeSettings(next)
	require.NoError(t, err)
	assert.Equal(t, "French", updated.TargetLanguage)

	current, err := store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.Equal(t, "French", current.TargetLanguage)

	// The update is durable.
	loaded, err := LoadRuntimeSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, "French", loaded.TargetLanguage)
}

func TestRuntimeSettingsStoreRejectsInvalid(t *testing.T) {
	store, err := NewRuntimeSettingsStore(filepath.Join(t.TempDir(), "settings.json"), validSettings())
	require.NoError(t, err)

	bad := validSettings()
	bad.CleanupCron = "nope"
	_, err = store.UpdateRuntimeSettings(bad)
	require.Error(t, err)

	// The bad update did not clobber the current settings.
	current, err := store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.Equal(t, "0 3 * * *", current.CleanupCron)
}
