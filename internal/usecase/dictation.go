package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voicecheck/internal/domain"
	. "voicecheck/internal/logging"
	"voicecheck/internal/ports"
)

var ErrNoSpeech = errors.New("no speech recognized")

// DictationConfig controls single-utterance capture.
type DictationConfig struct {
	Audio         ports.AudioConfig
	Streaming     ports.StreamingConfig
	ChunkSize     int
	MaxUtterance  time.Duration
	StreamTimeout time.Duration
}

// Dictation captures one utterance per Listen call and hands the
// recognized text to the caller. It implements ports.Dictation.
type Dictation struct {
	audio    ports.AudioCapture
	provider ports.TranscriptionProvider
	events   ports.EventSink
	cfg      DictationConfig

	mu      sync.Mutex
	current *activeUtterance
}

type activeUtterance struct {
	cancel    context.CancelFunc
	audio     ports.AudioSession
	stream    ports.StreamingSession
	collector *utteranceCollector

	stopping chan struct{}
	stopOnce sync.Once
	stopErr  error

	eventsDone chan struct{}
	audioDone  chan struct{}
	finished   chan struct{}
}

// stopCapture silences the pump and stops the microphone. Safe to call twice.
func (a *activeUtterance) stopCapture() error {
	a.stopOnce.Do(func() {
		close(a.stopping)
		a.stopErr = a.audio.Stop()
	})
	return a.stopErr
}

func NewDictation(
	audio ports.AudioCapture,
	provider ports.TranscriptionProvider,
	events ports.EventSink,
	cfg DictationConfig,
) *Dictation {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.MaxUtterance <= 0 {
		cfg.MaxUtterance = 8 * time.Second
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = 4 * time.Second
	}
	cfg.Streaming.InterimResults = false
	return &Dictation{
		audio:    audio,
		provider: provider,
		events:   events,
		cfg:      cfg,
	}
}

// Listen starts a new utterance, discarding any utterance still in flight.
// deliver is called at most once, from another goroutine, and never for a
// superseded utterance.
func (d *Dictation) Listen(ctx context.Context, deliver func(domain.Utterance)) error {
	d.mu.Lock()
	previous := d.current
	d.current = nil
	d.mu.Unlock()

	if previous != nil {
		L_debug("dictation: restarting, previous utterance discarded")
		d.discard(previous)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	stream, err := d.provider.StartStreaming(sessionCtx, d.cfg.Streaming)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start recognition: %w", err)
	}

	audioSession, err := d.audio.Start(sessionCtx, d.cfg.Audio)
	if err != nil {
		_ = stream.Close()
		cancel()
		return fmt.Errorf("failed to start microphone: %w", err)
	}

	active := &activeUtterance{
		cancel:     cancel,
		audio:      audioSession,
		stream:     stream,
		collector:  newUtteranceCollector(),
		stopping:   make(chan struct{}),
		eventsDone: make(chan struct{}),
		audioDone:  make(chan struct{}),
		finished:   make(chan struct{}),
	}

	d.mu.Lock()
	d.current = active
	d.mu.Unlock()

	go consumeUtterance(active.stream, active.collector, active.eventsDone)
	go pumpAudioChunks(active.audio, active.stream, d.cfg.ChunkSize, d.events, active.stopping, active.audioDone)
	go d.await(sessionCtx, active, deliver)

	L_debug("dictation: listening", "maxUtterance", d.cfg.MaxUtterance)
	return nil
}

// Active reports whether an utterance is being captured.
func (d *Dictation) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current != nil
}

func (d *Dictation) await(ctx context.Context, active *activeUtterance, deliver func(domain.Utterance)) {
	defer close(active.finished)

	timer := time.NewTimer(d.cfg.MaxUtterance)
	defer timer.Stop()

	select {
	case <-active.collector.Ended():
	case <-active.eventsDone:
	case <-timer.C:
		L_debug("dictation: utterance time limit reached")
	case <-ctx.Done():
		return
	}

	if err := active.stopCapture(); err != nil {
		d.events.SessionError(domain.ErrorCodeAudioStop, "failed to stop audio capture cleanly")
	}
	_ = active.stream.CloseSend()
	streamErr := waitForStream(active.stream, d.cfg.StreamTimeout)
	<-active.eventsDone
	<-active.audioDone

	if !d.release(active) {
		return
	}
	active.cancel()

	text := active.collector.Text()
	switch {
	case text != "":
		deliver(domain.Utterance{Text: text})
	case streamErr != nil:
		deliver(domain.Utterance{Err: streamErr})
	default:
		deliver(domain.Utterance{Err: ErrNoSpeech})
	}
}

// release clears the current utterance and reports whether it was still current.
func (d *Dictation) release(active *activeUtterance) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current != active {
		return false
	}
	d.current = nil
	return true
}

func (d *Dictation) discard(active *activeUtterance) {
	active.cancel()
	_ = active.stopCapture()
	_ = active.stream.Close()
	<-active.eventsDone
	<-active.audioDone
	<-active.finished
}
