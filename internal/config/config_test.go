package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"VOICECHECK_STEPS_FILE", "VOICECHECK_DICTATION_PROVIDER", "VOICECHECK_LANGUAGE",
		"VOICECHECK_AUDIO_CHUNK_SIZE", "VOICECHECK_MAX_UTTERANCE_MS",
		"DEEPGRAM_API_KEY", "DEEPGRAM_API_BASE", "DEEPGRAM_MODEL", "DEEPGRAM_LANGUAGE",
		"DEEPGRAM_SMART_FORMAT", "DEEPGRAM_ENDPOINTING_MS",
		"OPENAI_API_KEY", "OPENAI_API_BASE", "VOICECHECK_WHISPER_MODEL",
		"VOICECHECK_FFMPEG_COMMAND", "VOICECHECK_AUDIO_INPUT_FORMAT", "VOICECHECK_AUDIO_INPUT_DEVICE",
		"VOICECHECK_SAMPLE_RATE", "VOICECHECK_CHANNELS",
		"VOICECHECK_RULES_FILE", "VOICECHECK_RULE_ITERATION_LIMIT", "VOICECHECK_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.Steps.Path)
	assert.Equal(t, ProviderAuto, cfg.Dictation.Provider)
	assert.Equal(t, 8*time.Second, cfg.Dictation.MaxUtterance)
	assert.Equal(t, "en-US", cfg.Deepgram.Language)
	assert.Equal(t, "nova-2", cfg.Deepgram.Model)
	assert.Equal(t, 300*time.Millisecond, cfg.Deepgram.Endpointing)
	assert.True(t, cfg.Deepgram.SmartFormat)
	assert.Equal(t, "en", cfg.Whisper.Language)
	assert.Equal(t, "whisper-1", cfg.Whisper.Model)
	assert.Equal(t, filepath.Join(home, ".config", "voicecheck", "dictation.rules"), cfg.Rules.Path)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ProviderNone, cfg.ResolveProvider())
}

func TestLoadFindsStepsFileInConfigDir(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	stepsPath := filepath.Join(home, ".config", "voicecheck", "steps.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(stepsPath), 0o755))
	require.NoError(t, os.WriteFile(stepsPath, []byte("steps: []\n"), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, stepsPath, cfg.Steps.Path)
}

func TestLoadRespectsOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VOICECHECK_STEPS_FILE", "/tmp/steps.yaml")
	t.Setenv("VOICECHECK_DICTATION_PROVIDER", "Whisper")
	t.Setenv("VOICECHECK_LANGUAGE", "en-GB")
	t.Setenv("VOICECHECK_MAX_UTTERANCE_MS", "2500")
	t.Setenv("DEEPGRAM_API_KEY", "dg-key")
	t.Setenv("DEEPGRAM_MODEL", "nova-3")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "off")
	t.Setenv("DEEPGRAM_ENDPOINTING_MS", "500")
	t.Setenv("OPENAI_API_KEY", "oa-key")
	t.Setenv("OPENAI_API_BASE", "http://localhost:9000/v1")
	t.Setenv("VOICECHECK_FFMPEG_COMMAND", "my-ffmpeg")
	t.Setenv("VOICECHECK_AUDIO_INPUT_FORMAT", "alsa")
	t.Setenv("VOICECHECK_AUDIO_INPUT_DEVICE", "hw:1")
	t.Setenv("VOICECHECK_SAMPLE_RATE", "8000")
	t.Setenv("VOICECHECK_CHANNELS", "2")
	t.Setenv("VOICECHECK_RULES_FILE", "/tmp/dictation.rules")
	t.Setenv("VOICECHECK_RULE_ITERATION_LIMIT", "7")
	t.Setenv("VOICECHECK_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/steps.yaml", cfg.Steps.Path)
	assert.Equal(t, ProviderWhisper, cfg.ResolveProvider())
	assert.Equal(t, 2500*time.Millisecond, cfg.Dictation.MaxUtterance)
	assert.Equal(t, "en-GB", cfg.Deepgram.Language)
	assert.Equal(t, "en", cfg.Whisper.Language)
	assert.Equal(t, "nova-3", cfg.Deepgram.Model)
	assert.False(t, cfg.Deepgram.SmartFormat)
	assert.Equal(t, 500*time.Millisecond, cfg.Deepgram.Endpointing)
	assert.Equal(t, "http://localhost:9000/v1", cfg.Whisper.APIBaseURL)
	assert.Equal(t, AudioConfig{RecorderCommand: "my-ffmpeg", InputFormat: "alsa", InputDevice: "hw:1", SampleRate: 8000, Channels: 2}, cfg.Audio)
	assert.Equal(t, RulesConfig{Path: "/tmp/dictation.rules", IterationLimit: 7}, cfg.Rules)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadInvalidNumericValuesFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VOICECHECK_SAMPLE_RATE", "bad")
	t.Setenv("VOICECHECK_CHANNELS", "-1")
	t.Setenv("VOICECHECK_RULE_ITERATION_LIMIT", "0")
	t.Setenv("VOICECHECK_AUDIO_CHUNK_SIZE", "5")
	t.Setenv("VOICECHECK_MAX_UTTERANCE_MS", "-10")
	t.Setenv("DEEPGRAM_ENDPOINTING_MS", "-1")
	t.Setenv("DEEPGRAM_SMART_FORMAT", "not-bool")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 16000, cfg.Audio.SampleRate)
	assert.Equal(t, 1, cfg.Audio.Channels)
	assert.Equal(t, 30, cfg.Rules.IterationLimit)
	assert.Equal(t, 4096, cfg.Dictation.ChunkSize)
	assert.Equal(t, 8*time.Second, cfg.Dictation.MaxUtterance)
	assert.Equal(t, 300*time.Millisecond, cfg.Deepgram.Endpointing)
	assert.True(t, cfg.Deepgram.SmartFormat)
}

func TestResolveProviderAuto(t *testing.T) {
	t.Parallel()

	cfg := Config{Dictation: DictationConfig{Provider: ProviderAuto}}
	assert.Equal(t, ProviderNone, cfg.ResolveProvider())

	cfg.Whisper.APIKey = "oa"
	assert.Equal(t, ProviderWhisper, cfg.ResolveProvider())

	cfg.Deepgram.APIKey = "dg"
	assert.Equal(t, ProviderDeepgram, cfg.ResolveProvider())

	cfg.Dictation.Provider = ProviderNone
	assert.Equal(t, ProviderNone, cfg.ResolveProvider())

	cfg.Dictation.Provider = "bogus"
	assert.Equal(t, ProviderDeepgram, cfg.ResolveProvider())
}
