package domain

// StepKind distinguishes yes/no steps from free-text steps.
type StepKind string

const (
	StepKindConfirmation StepKind = "confirmation"
	StepKindFreeform     StepKind = "freeform"
)

// Valid reports whether k is a known step kind.
func (k StepKind) Valid() bool {
	return k == StepKindConfirmation || k == StepKindFreeform
}

// Canonical responses for confirmation steps.
const (
	ResponseYes = "Yes"
	ResponseNo  = "No"
)

// Step is one questionnaire entry. Steps never change during a session.
type Step struct {
	Label    string   `json:"label" yaml:"label"`
	Question string   `json:"question,omitempty" yaml:"question,omitempty"`
	Kind     StepKind `json:"kind" yaml:"kind"`
}

// Prompt returns the question, falling back to the label.
func (s Step) Prompt() string {
	if s.Question != "" {
		return s.Question
	}
	return s.Label
}

// DictationState models the single-utterance listening lifecycle.
type DictationState string

const (
	DictationStateIdle      DictationState = "idle"
	DictationStateListening DictationState = "listening"
)

// DictationReason provides a structured reason for dictation transitions.
type DictationReason string

const (
	DictationReasonReady       DictationReason = "ready"
	DictationReasonStarted     DictationReason = "started"
	DictationReasonRestarted   DictationReason = "restarted"
	DictationReasonRecognized  DictationReason = "recognized"
	DictationReasonDiscarded   DictationReason = "discarded"
	DictationReasonNoSpeech    DictationReason = "no_speech"
	DictationReasonFailed      DictationReason = "failed"
	DictationReasonUnavailable DictationReason = "unavailable"
)

// ErrorCode identifies recoverable errors surfaced to the display.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeDictation   ErrorCode = "dictation"
	ErrorCodeAudioStop   ErrorCode = "audio_stop"
	ErrorCodeAudioStream ErrorCode = "audio_stream"
	ErrorCodeTransition  ErrorCode = "transition"
	ErrorCodeClipboard   ErrorCode = "clipboard"
)

// TranscriptKind identifies whether a stream event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental transcription output from a provider.
type TranscriptEvent struct {
	Kind          TranscriptKind `json:"kind"`
	Text          string         `json:"text"`
	IsSpeechFinal bool           `json:"isSpeechFinal"`
}

// Utterance is the outcome of one dictation activation.
type Utterance struct {
	Text string
	Err  error
}

// StepView is the per-step slice of the derived view.
type StepView struct {
	Label    string   `json:"label"`
	Prompt   string   `json:"prompt"`
	Kind     StepKind `json:"kind"`
	Done     bool     `json:"done"`
	Current  bool     `json:"current"`
	Response string   `json:"response,omitempty"`
}

// View is recomputed from session state on every change.
type View struct {
	SessionID          string         `json:"sessionId"`
	Steps              []StepView     `json:"steps"`
	CurrentIndex       int            `json:"currentIndex"`
	Prompt             string         `json:"prompt,omitempty"`
	Kind               StepKind       `json:"kind,omitempty"`
	Transcript         string         `json:"transcript"`
	Dictation          DictationState `json:"dictation"`
	DictationAvailable bool           `json:"dictationAvailable"`
	CanConfirm         bool           `json:"canConfirm"`
	CanDecline         bool           `json:"canDecline"`
	CanSend            bool           `json:"canSend"`
	Complete           bool           `json:"complete"`
	Sent               bool           `json:"sent"`
}

// SendResult is returned once a completed questionnaire is handed off.
type SendResult struct {
	Report string `json:"report"`
	Copied bool   `json:"copied"`
}
