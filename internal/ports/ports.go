package ports

import (
	"context"
	"io"

	"voicecheck/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// StreamingConfig describes provider-agnostic recognition settings.
type StreamingConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	InterimResults bool
}

// StreamingSession is an active recognition session.
type StreamingSession interface {
	SendAudio(chunk []byte) error
	CloseSend() error
	Events() <-chan domain.TranscriptEvent
	Wait() error
	Close() error
}

// TranscriptionProvider starts recognition sessions.
type TranscriptionProvider interface {
	StartStreaming(ctx context.Context, cfg StreamingConfig) (StreamingSession, error)
}

// Dictation listens for a single utterance and delivers its outcome once.
// Calling Listen again while listening supersedes the earlier activation.
type Dictation interface {
	Listen(ctx context.Context, deliver func(domain.Utterance)) error
}

// RulesEngine normalizes dictated text using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink pushes controller state to a rendering surface.
type EventSink interface {
	ViewChanged(view domain.View)
	DictationStateChanged(state domain.DictationState, reason domain.DictationReason)
	SessionError(code domain.ErrorCode, detail string)
}
