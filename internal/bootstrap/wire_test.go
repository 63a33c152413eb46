package bootstrap

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicecheck/internal/config"
	"voicecheck/internal/domain"
)

// isolate points every file lookup at a temp home and clears provider keys.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{
		"VOICECHECK_STEPS_FILE", "VOICECHECK_RULES_FILE", "VOICECHECK_DICTATION_PROVIDER",
		"VOICECHECK_FFMPEG_COMMAND", "DEEPGRAM_API_KEY", "OPENAI_API_KEY", "OPENAI_API_BASE",
		"VOICECHECK_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	return home
}

func writeFile(t *testing.T, dir, name, contents string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), mode))
	return path
}

func TestBuildManualEntryByDefault(t *testing.T) {
	isolate(t)

	var logs bytes.Buffer
	services, err := Build(noopEventSink{}, noopClipboard{}, WithLogOutput(&logs))
	require.NoError(t, err)

	require.NotNil(t, services.Controller)
	assert.Equal(t, config.ProviderNone, services.Provider)
	assert.Len(t, services.Steps, 5)
	assert.Contains(t, logs.String(), "manual entry only")
}

func TestBuildWiresDeepgramWhenRecorderIsPresent(t *testing.T) {
	home := isolate(t)
	recorder := writeFile(t, home, "ffmpeg", "#!/usr/bin/env bash\nsleep 1\n", 0o700)
	t.Setenv("VOICECHECK_FFMPEG_COMMAND", recorder)
	t.Setenv("DEEPGRAM_API_KEY", "test-key")

	services, err := Build(noopEventSink{}, noopClipboard{}, WithLogOutput(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.Equal(t, config.ProviderDeepgram, services.Provider)
}

func TestBuildWiresWhisper(t *testing.T) {
	home := isolate(t)
	recorder := writeFile(t, home, "ffmpeg", "#!/usr/bin/env bash\nsleep 1\n", 0o700)
	t.Setenv("VOICECHECK_FFMPEG_COMMAND", recorder)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	services, err := Build(noopEventSink{}, noopClipboard{}, WithLogOutput(&bytes.Buffer{}))
	require.NoError(t, err)
	assert.Equal(t, config.ProviderWhisper, services.Provider)
}

func TestBuildFallsBackToManualWithoutRecorder(t *testing.T) {
	home := isolate(t)
	t.Setenv("VOICECHECK_FFMPEG_COMMAND", filepath.Join(home, "missing-ffmpeg"))
	t.Setenv("DEEPGRAM_API_KEY", "test-key")

	var logs bytes.Buffer
	services, err := Build(noopEventSink{}, noopClipboard{}, WithLogOutput(&logs))
	require.NoError(t, err)
	assert.Equal(t, config.ProviderNone, services.Provider)
	assert.Contains(t, logs.String(), "dictation disabled")
}

func TestBuildLoadsCustomSteps(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "steps.yaml", "steps:\n  - label: Gear\n    question: Are the pins removed?\n  - label: Notes\n    kind: freeform\n", 0o600)
	t.Setenv("VOICECHECK_STEPS_FILE", path)

	services, err := Build(noopEventSink{}, noopClipboard{}, WithLogOutput(&bytes.Buffer{}))
	require.NoError(t, err)
	require.Len(t, services.Steps, 2)
	assert.Equal(t, domain.StepKindConfirmation, services.Steps[0].Kind)
	assert.Equal(t, domain.StepKindFreeform, services.Steps[1].Kind)
}

func TestBuildFailsOnInvalidSteps(t *testing.T) {
	home := isolate(t)
	t.Setenv("VOICECHECK_STEPS_FILE", writeFile(t, home, "steps.yaml", "steps: []\n", 0o600))

	_, err := Build(noopEventSink{}, noopClipboard{}, WithLogOutput(&bytes.Buffer{}))
	require.Error(t, err)
}

func TestBuildFailsOnInvalidRules(t *testing.T) {
	home := isolate(t)
	t.Setenv("VOICECHECK_RULES_FILE", writeFile(t, home, "bad.rules", "not a valid rule\n", 0o600))

	_, err := Build(noopEventSink{}, noopClipboard{}, WithLogOutput(&bytes.Buffer{}))
	require.ErrorContains(t, err, "line 1")
}

type noopEventSink struct{}

func (noopEventSink) ViewChanged(domain.View)                                             {}
func (noopEventSink) DictationStateChanged(domain.DictationState, domain.DictationReason) {}
func (noopEventSink) SessionError(domain.ErrorCode, string)                               {}

type noopClipboard struct{}

func (noopClipboard) SetText(context.Context, string) error { return nil }
