package usecase

import (
	"strings"
	"sync"

	"voicecheck/internal/domain"
	"voicecheck/internal/ports"
)

// utteranceCollector accumulates final segments of one spoken utterance.
// Partial events are dropped; a speech-final event marks the utterance ended.
type utteranceCollector struct {
	mu     sync.Mutex
	finals []string

	ended   chan struct{}
	endOnce sync.Once
}

func newUtteranceCollector() *utteranceCollector {
	return &utteranceCollector{ended: make(chan struct{})}
}

func (u *utteranceCollector) Add(event domain.TranscriptEvent) {
	if event.Kind != domain.TranscriptKindFinal {
		return
	}

	text := strings.TrimSpace(event.Text)
	if text != "" {
		u.mu.Lock()
		u.finals = append(u.finals, text)
		u.mu.Unlock()
	}

	if event.IsSpeechFinal {
		u.endOnce.Do(func() { close(u.ended) })
	}
}

// Ended is closed once the provider signals end of speech.
func (u *utteranceCollector) Ended() <-chan struct{} {
	return u.ended
}

func (u *utteranceCollector) Text() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return strings.TrimSpace(strings.Join(u.finals, " "))
}

func consumeUtterance(session ports.StreamingSession, collector *utteranceCollector, done chan struct{}) {
	defer close(done)

	for event := range session.Events() {
		collector.Add(event)
	}
}
