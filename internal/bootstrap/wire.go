package bootstrap

import (
	"io"
	"time"

	"voicecheck/internal/audio"
	"voicecheck/internal/config"
	"voicecheck/internal/domain"
	"voicecheck/internal/logging"
	"voicecheck/internal/ports"
	"voicecheck/internal/providers/deepgram"
	"voicecheck/internal/providers/whisper"
	"voicecheck/internal/rules"
	"voicecheck/internal/steps"
	"voicecheck/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.Controller
	Config     config.Config
	Steps      []domain.Step
	// Provider is the dictation provider in use, or config.ProviderNone
	// when the session is manual-entry only.
	Provider string
}

type options struct {
	logOutput io.Writer
}

// Option adjusts how Build assembles the runtime.
type Option func(*options)

// WithLogOutput sends logs somewhere other than stderr. Terminal front ends
// use it to keep log lines off the screen they draw on.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, clipboard ports.Clipboard, opts ...Option) (Services, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	if o.logOutput != nil {
		logCfg.Output = o.logOutput
	}
	logging.Init(logCfg)

	stepList, err := steps.Load(cfg.Steps.Path)
	if err != nil {
		return Services{}, err
	}

	rulesEngine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, err
	}

	dictation, provider := buildDictation(cfg, eventSink)

	controller, err := usecase.NewController(stepList, dictation, rulesEngine, clipboard, eventSink)
	if err != nil {
		return Services{}, err
	}

	logging.L_info("bootstrap: ready", "steps", len(stepList), "rules", rulesEngine.Len(), "dictation", provider)
	return Services{Controller: controller, Config: cfg, Steps: stepList, Provider: provider}, nil
}

// buildDictation returns nil when no provider is configured or the audio
// recorder is missing, leaving the session in manual-entry mode.
func buildDictation(cfg config.Config, eventSink ports.EventSink) (ports.Dictation, string) {
	provider := cfg.ResolveProvider()
	if provider == config.ProviderNone {
		logging.L_info("bootstrap: no dictation provider configured, manual entry only")
		return nil, config.ProviderNone
	}

	recorder := audio.NewRecorder(cfg.Audio.RecorderCommand)
	if err := recorder.Available(); err != nil {
		logging.L_warn("bootstrap: dictation disabled", "error", err)
		return nil, config.ProviderNone
	}

	dictCfg := usecase.DictationConfig{
		Audio: ports.AudioConfig{
			SampleRate:  cfg.Audio.SampleRate,
			Channels:    cfg.Audio.Channels,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
		},
		Streaming: ports.StreamingConfig{
			SampleRate: cfg.Audio.SampleRate,
			Channels:   cfg.Audio.Channels,
			Encoding:   "linear16",
		},
		ChunkSize:    cfg.Dictation.ChunkSize,
		MaxUtterance: cfg.Dictation.MaxUtterance,
	}

	var recognizer ports.TranscriptionProvider
	switch provider {
	case config.ProviderWhisper:
		recognizer = whisper.NewProvider(whisper.Config{
			APIKey:     cfg.Whisper.APIKey,
			APIBaseURL: cfg.Whisper.APIBaseURL,
			Model:      cfg.Whisper.Model,
			Language:   cfg.Whisper.Language,
		})
		// The upload happens after capture stops.
		dictCfg.StreamTimeout = 20 * time.Second
	default:
		recognizer = deepgram.NewProvider(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			Language:    cfg.Deepgram.Language,
			SmartFormat: cfg.Deepgram.SmartFormat,
			Endpointing: cfg.Deepgram.Endpointing,
		})
	}

	return usecase.NewDictation(recorder, recognizer, eventSink, dictCfg), provider
}
