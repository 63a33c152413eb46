package tui

import (
	"context"
	"errors"
	"sync"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"voicecheck/internal/domain"
)

// Messages delivered from the controller goroutine.
type (
	viewMsg      domain.View
	dictationMsg struct {
		state  domain.DictationState
		reason domain.DictationReason
	}
	errorMsg struct {
		code   domain.ErrorCode
		detail string
	}
)

// Sink forwards controller events into a running bubbletea program. Events
// that arrive before Attach are dropped.
type Sink struct {
	mu      sync.RWMutex
	program *tea.Program
}

func NewSink() *Sink {
	return &Sink{}
}

// Attach routes subsequent events to p.
func (s *Sink) Attach(p *tea.Program) {
	s.mu.Lock()
	s.program = p
	s.mu.Unlock()
}

func (s *Sink) send(msg tea.Msg) {
	s.mu.RLock()
	p := s.program
	s.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *Sink) ViewChanged(view domain.View) {
	s.send(viewMsg(view))
}

func (s *Sink) DictationStateChanged(state domain.DictationState, reason domain.DictationReason) {
	s.send(dictationMsg{state: state, reason: reason})
}

func (s *Sink) SessionError(code domain.ErrorCode, detail string) {
	s.send(errorMsg{code: code, detail: detail})
}

// SystemClipboard writes to the desktop clipboard. On Linux it needs xclip,
// xsel or wl-copy on PATH.
type SystemClipboard struct{}

func (SystemClipboard) SetText(_ context.Context, text string) error {
	if clipboard.Unsupported {
		return errors.New("no clipboard utility found")
	}
	return clipboard.WriteAll(text)
}
