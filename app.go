package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"voicecheck/internal/bootstrap"
	"voicecheck/internal/config"
	"voicecheck/internal/domain"
	. "voicecheck/internal/logging"
	"voicecheck/internal/usecase"
)

const (
	eventView      = "voicecheck:view"
	eventDictation = "voicecheck:dictation"
	eventError     = "voicecheck:error"
)

// App is the Wails application root.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	controller *usecase.Controller
	services   bootstrap.Services
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.services = services
	a.controller = services.Controller

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go func() {
		if err := a.controller.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			L_error("questionnaire loop stopped", "error", err)
		}
	}()

	if services.Provider == config.ProviderNone {
		a.DictationStateChanged(domain.DictationStateIdle, domain.DictationReasonUnavailable)
	} else {
		a.DictationStateChanged(domain.DictationStateIdle, domain.DictationReasonReady)
	}
}

func (a *App) shutdown(_ context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
}

// GetView returns the current questionnaire view.
func (a *App) GetView() (domain.View, error) {
	if err := a.requireReady(); err != nil {
		return domain.View{}, err
	}
	return a.controller.View()
}

// Confirm answers Yes, or submits the transcript on a freeform step.
func (a *App) Confirm() (domain.View, error) {
	return a.act(a.controller.Confirm)
}

// Decline answers No on a confirmation step.
func (a *App) Decline() (domain.View, error) {
	return a.act(a.controller.Decline)
}

// SetTranscript mirrors the text field into the session.
func (a *App) SetTranscript(text string) (domain.View, error) {
	return a.act(func() error { return a.controller.SetTranscript(text) })
}

// StartDictation listens for one utterance for the current step.
func (a *App) StartDictation() (domain.View, error) {
	return a.act(a.controller.StartDictation)
}

// Send copies the completed report to the clipboard.
func (a *App) Send() (domain.SendResult, error) {
	if err := a.requireReady(); err != nil {
		return domain.SendResult{}, err
	}
	return a.controller.Send(a.ctx)
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	cfg := a.services.Config
	info := map[string]string{
		"provider":         providerName(a.services.Provider),
		"steps":            fmt.Sprintf("%d", len(a.services.Steps)),
		"stepsFile":        cfg.Steps.Path,
		"rulesFile":        cfg.Rules.Path,
		"audioInput":       cfg.Audio.InputDevice,
		"audioInputFormat": cfg.Audio.InputFormat,
	}
	switch a.services.Provider {
	case config.ProviderDeepgram:
		info["model"] = cfg.Deepgram.Model
		info["language"] = cfg.Deepgram.Language
	case config.ProviderWhisper:
		info["model"] = cfg.Whisper.Model
		info["language"] = cfg.Whisper.Language
	}
	return info
}

// act runs a controller operation. The current view is returned even when
// the operation is rejected so the UI can re-sync.
func (a *App) act(op func() error) (domain.View, error) {
	if err := a.requireReady(); err != nil {
		return domain.View{}, err
	}
	opErr := op()
	view, err := a.controller.View()
	if opErr != nil {
		return view, opErr
	}
	return view, err
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// ViewChanged pushes the recomputed view to the frontend.
func (a *App) ViewChanged(view domain.View) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventView, view)
}

// DictationStateChanged emits listening lifecycle updates.
func (a *App) DictationStateChanged(state domain.DictationState, reason domain.DictationReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventDictation, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": dictationReasonMessage(reason),
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func providerName(provider string) string {
	switch provider {
	case config.ProviderDeepgram:
		return "Deepgram"
	case config.ProviderWhisper:
		return "Whisper"
	default:
		return "Manual entry"
	}
}

func dictationReasonMessage(reason domain.DictationReason) string {
	switch reason {
	case domain.DictationReasonReady:
		return "Tap Speak to dictate"
	case domain.DictationReasonStarted:
		return "Listening..."
	case domain.DictationReasonRestarted:
		return "Listening again; previous utterance discarded"
	case domain.DictationReasonRecognized:
		return "Speech recognized"
	case domain.DictationReasonDiscarded:
		return "Step moved on; dictation discarded"
	case domain.DictationReasonNoSpeech:
		return "No speech heard"
	case domain.DictationReasonFailed:
		return "Dictation failed"
	case domain.DictationReasonUnavailable:
		return "Dictation unavailable; type your answers"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeDictation:
		return "Dictation error"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodeTransition:
		return "Answer not accepted"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
