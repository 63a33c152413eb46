package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicecheck/internal/bootstrap"
	"voicecheck/internal/config"
	"voicecheck/internal/domain"
)

func TestDictationReasonMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.DictationReason]string{
		domain.DictationReasonReady:       "Tap Speak to dictate",
		domain.DictationReasonStarted:     "Listening...",
		domain.DictationReasonRestarted:   "Listening again; previous utterance discarded",
		domain.DictationReasonRecognized:  "Speech recognized",
		domain.DictationReasonDiscarded:   "Step moved on; dictation discarded",
		domain.DictationReasonNoSpeech:    "No speech heard",
		domain.DictationReasonFailed:      "Dictation failed",
		domain.DictationReasonUnavailable: "Dictation unavailable; type your answers",
	}

	for reason, want := range cases {
		reason, want := reason, want
		t.Run(string(reason), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, want, dictationReasonMessage(reason))
		})
	}

	assert.Empty(t, dictationReasonMessage("unknown"))
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	cases := map[domain.ErrorCode]string{
		domain.ErrorCodeStartup:     "Startup failed",
		domain.ErrorCodeDictation:   "Dictation error",
		domain.ErrorCodeAudioStop:   "Audio stop issue",
		domain.ErrorCodeAudioStream: "Audio streaming issue",
		domain.ErrorCodeTransition:  "Answer not accepted",
		domain.ErrorCodeClipboard:   "Clipboard write failed",
	}
	for code, want := range cases {
		code, want := code, want
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, want, errorMessage(code, "ignored"))
		})
	}

	assert.Equal(t, "detail", errorMessage("unknown", "detail"))
	assert.Equal(t, "Unknown error", errorMessage("unknown", ""))
}

func TestRequireReady(t *testing.T) {
	t.Parallel()

	app := &App{}
	require.Error(t, app.requireReady())

	bootErr := errors.New("boot")
	app.bootErr = bootErr
	require.ErrorIs(t, app.requireReady(), bootErr)
}

func TestActionsBeforeStartup(t *testing.T) {
	t.Parallel()

	app := &App{}
	_, err := app.GetView()
	assert.Error(t, err)
	_, err = app.Send()
	assert.Error(t, err)

	app.bootErr = errors.New("no config")
	_, err = app.GetView()
	assert.EqualError(t, err, "no config")
}

func TestEventSinkIgnoresMissingRuntime(t *testing.T) {
	t.Parallel()

	app := &App{}
	app.ViewChanged(domain.View{})
	app.DictationStateChanged(domain.DictationStateIdle, domain.DictationReasonReady)
	app.SessionError(domain.ErrorCodeStartup, "boom")
	app.shutdown(context.Background())
}

func TestGetRuntimeInfo(t *testing.T) {
	t.Parallel()

	app := &App{bootErr: errors.New("boot")}
	assert.Equal(t, map[string]string{"error": "boot"}, app.GetRuntimeInfo())

	cfg := config.Config{
		Deepgram: config.DeepgramConfig{Model: "nova-2", Language: "en-US", APIKey: "secret"},
		Audio:    config.AudioConfig{InputDevice: "default", InputFormat: "pulse"},
		Rules:    config.RulesConfig{Path: "/tmp/dictation.rules"},
	}
	app = &App{services: bootstrap.Services{
		Config:   cfg,
		Steps:    []domain.Step{{Label: "A"}, {Label: "B"}},
		Provider: config.ProviderDeepgram,
	}}
	info := app.GetRuntimeInfo()
	assert.Equal(t, "Deepgram", info["provider"])
	assert.Equal(t, "nova-2", info["model"])
	assert.Equal(t, "2", info["steps"])
	for _, value := range info {
		assert.NotEqual(t, "secret", value)
	}

	app.services.Provider = config.ProviderNone
	info = app.GetRuntimeInfo()
	assert.Equal(t, "Manual entry", info["provider"])
	assert.NotContains(t, info, "model")
}
