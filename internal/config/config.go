package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Dictation provider names.
const (
	ProviderAuto     = "auto"
	ProviderDeepgram = "deepgram"
	ProviderWhisper  = "whisper"
	ProviderNone     = "none"
)

// Config stores runtime configuration.
type Config struct {
	Steps     StepsConfig
	Dictation DictationConfig
	Deepgram  DeepgramConfig
	Whisper   WhisperConfig
	Audio     AudioConfig
	Rules     RulesConfig
	LogLevel  string
}

type StepsConfig struct {
	Path string
}

type DictationConfig struct {
	Provider     string
	ChunkSize    int
	MaxUtterance time.Duration
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
	Endpointing time.Duration
}

type WhisperConfig struct {
	APIKey     string
	APIBaseURL string
	Model      string
	Language   string
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

// Load resolves configuration from environment variables and defaults.
func Load() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}
	configDir := filepath.Join(home, ".config", "voicecheck")

	stepsPath := strings.TrimSpace(os.Getenv("VOICECHECK_STEPS_FILE"))
	if stepsPath == "" {
		stepsPath = existingOrEmpty(filepath.Join(configDir, "steps.yaml"))
	}

	language := envOrDefault("VOICECHECK_LANGUAGE", "en-US")

	cfg := Config{
		Steps: StepsConfig{Path: stepsPath},
		Dictation: DictationConfig{
			Provider:     strings.ToLower(envOrDefault("VOICECHECK_DICTATION_PROVIDER", ProviderAuto)),
			ChunkSize:    envOrDefaultInt("VOICECHECK_AUDIO_CHUNK_SIZE", 4096),
			MaxUtterance: time.Duration(envOrDefaultInt("VOICECHECK_MAX_UTTERANCE_MS", 8000)) * time.Millisecond,
		},
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			Language:    envOrDefault("DEEPGRAM_LANGUAGE", language),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
			Endpointing: time.Duration(envOrDefaultInt("DEEPGRAM_ENDPOINTING_MS", 300)) * time.Millisecond,
		},
		Whisper: WhisperConfig{
			APIKey:     strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			APIBaseURL: strings.TrimSpace(os.Getenv("OPENAI_API_BASE")),
			Model:      envOrDefault("VOICECHECK_WHISPER_MODEL", "whisper-1"),
			Language:   primaryLanguage(language),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("VOICECHECK_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("VOICECHECK_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("VOICECHECK_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("VOICECHECK_SAMPLE_RATE", 16000),
			Channels:        envOrDefaultInt("VOICECHECK_CHANNELS", 1),
		},
		Rules: RulesConfig{
			Path:           envOrDefault("VOICECHECK_RULES_FILE", filepath.Join(configDir, "dictation.rules")),
			IterationLimit: envOrDefaultInt("VOICECHECK_RULE_ITERATION_LIMIT", 30),
		},
		LogLevel: envOrDefault("VOICECHECK_LOG_LEVEL", "info"),
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Rules.IterationLimit <= 0 {
		cfg.Rules.IterationLimit = 30
	}
	if cfg.Dictation.ChunkSize < 256 {
		cfg.Dictation.ChunkSize = 4096
	}
	if cfg.Dictation.MaxUtterance <= 0 {
		cfg.Dictation.MaxUtterance = 8 * time.Second
	}
	if cfg.Deepgram.Endpointing < 0 {
		cfg.Deepgram.Endpointing = 300 * time.Millisecond
	}

	return cfg, nil
}

// ResolveProvider picks the dictation provider. "auto" prefers Deepgram,
// then Whisper, by which API key is present.
func (c Config) ResolveProvider() string {
	switch c.Dictation.Provider {
	case ProviderDeepgram, ProviderWhisper, ProviderNone:
		return c.Dictation.Provider
	}
	switch {
	case c.Deepgram.APIKey != "":
		return ProviderDeepgram
	case c.Whisper.APIKey != "":
		return ProviderWhisper
	default:
		return ProviderNone
	}
}

// primaryLanguage turns a BCP 47 tag like "en-US" into the ISO-639-1 code
// Whisper expects.
func primaryLanguage(tag string) string {
	primary, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(primary)
}

func existingOrEmpty(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
