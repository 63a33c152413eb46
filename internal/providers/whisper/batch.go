// Package whisper recognizes speech with the OpenAI transcription API.
// Audio is buffered locally and uploaded once the speaker goes quiet or the
// caller closes the send side, so a session yields at most one final event.
package whisper

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"voicecheck/internal/domain"
	"voicecheck/internal/logging"
	"voicecheck/internal/ports"
)

// Config controls the transcription client and end-of-speech detection.
type Config struct {
	APIKey     string
	APIBaseURL string
	Model      string
	Language   string
	// SilenceThreshold is the RMS level below which a chunk counts as quiet.
	SilenceThreshold float64
	// SilenceHold is how long the speaker must stay quiet after speaking
	// before the utterance is uploaded.
	SilenceHold time.Duration
}

type transcriber interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// Provider implements ports.TranscriptionProvider on top of a batch
// transcription endpoint.
type Provider struct {
	cfg    Config
	client transcriber
}

func NewProvider(cfg Config) *Provider {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = 500
	}
	if cfg.SilenceHold <= 0 {
		cfg.SilenceHold = 800 * time.Millisecond
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "not-needed" // local OpenAI-compatible servers
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/"); base != "" {
		clientCfg.BaseURL = base
	}

	return &Provider{cfg: cfg, client: openai.NewClientWithConfig(clientCfg)}
}

func (p *Provider) StartStreaming(ctx context.Context, cfg ports.StreamingConfig) (ports.StreamingSession, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" && strings.TrimSpace(p.cfg.APIBaseURL) == "" {
		return nil, errors.New("OPENAI_API_KEY is not configured")
	}
	if cfg.Encoding != "" && cfg.Encoding != "linear16" {
		return nil, fmt.Errorf("unsupported audio encoding %q", cfg.Encoding)
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	s := &batchSession{
		ctx:        sessionCtx,
		cancel:     cancel,
		client:     p.client,
		model:      p.cfg.Model,
		language:   p.cfg.Language,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
		threshold:  p.cfg.SilenceThreshold,
		holdBytes:  bytesFor(p.cfg.SilenceHold, cfg.SampleRate, cfg.Channels),
		events:     make(chan domain.TranscriptEvent, 1),
		done:       make(chan struct{}),
	}

	go func() {
		select {
		case <-sessionCtx.Done():
			s.seal()
		case <-s.done:
		}
	}()

	return s, nil
}

type batchSession struct {
	ctx    context.Context
	cancel context.CancelFunc
	client transcriber

	model      string
	language   string
	sampleRate int
	channels   int
	threshold  float64
	holdBytes  int

	mu          sync.Mutex
	pcm         bytes.Buffer
	heard       bool
	silentBytes int
	sealed      bool
	sendClosed  bool

	sealOnce sync.Once
	events   chan domain.TranscriptEvent
	done     chan struct{}
	err      error
}

func (s *batchSession) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.mu.Lock()
	if s.sendClosed {
		s.mu.Unlock()
		return errors.New("audio stream is already closed")
	}
	if s.sealed {
		// Trailing audio after end of speech is not part of the utterance.
		s.mu.Unlock()
		return nil
	}

	s.pcm.Write(chunk)
	endOfSpeech := false
	if rms(chunk) >= s.threshold {
		s.heard = true
		s.silentBytes = 0
	} else if s.heard {
		s.silentBytes += len(chunk)
		endOfSpeech = s.silentBytes >= s.holdBytes
	}
	s.mu.Unlock()

	if endOfSpeech {
		logging.L_debug("whisper: end of speech detected", "bytes", s.buffered())
		s.seal()
	}
	return nil
}

func (s *batchSession) CloseSend() error {
	s.mu.Lock()
	s.sendClosed = true
	s.mu.Unlock()
	s.seal()
	return nil
}

func (s *batchSession) Events() <-chan domain.TranscriptEvent {
	return s.events
}

func (s *batchSession) Wait() error {
	<-s.done
	return s.err
}

func (s *batchSession) Close() error {
	s.cancel()
	s.seal()
	<-s.done
	return s.err
}

func (s *batchSession) buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pcm.Len()
}

// seal stops accepting audio and uploads what was captured.
func (s *batchSession) seal() {
	s.sealOnce.Do(func() {
		s.mu.Lock()
		s.sealed = true
		pcm := append([]byte(nil), s.pcm.Bytes()...)
		heard := s.heard
		s.mu.Unlock()

		go s.transcribe(pcm, heard)
	})
}

func (s *batchSession) transcribe(pcm []byte, heard bool) {
	defer close(s.done)
	defer close(s.events)
	defer s.cancel()

	if !heard || len(pcm) == 0 {
		logging.L_debug("whisper: nothing above the silence threshold, skipping upload")
		return
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return
	}

	started := time.Now()
	resp, err := s.client.CreateTranscription(s.ctx, openai.AudioRequest{
		Model:    s.model,
		FilePath: "utterance.wav",
		Reader:   bytes.NewReader(wavFile(pcm, s.sampleRate, s.channels)),
		Language: s.language,
	})
	if err != nil {
		s.err = fmt.Errorf("whisper transcription failed: %w", err)
		return
	}

	text := strings.TrimSpace(resp.Text)
	logging.L_debug("whisper: transcribed", "chars", len(text), "elapsed", time.Since(started))
	if text == "" {
		return
	}
	s.events <- domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: text, IsSpeechFinal: true}
}

func bytesFor(d time.Duration, sampleRate, channels int) int {
	return int(d.Seconds() * float64(sampleRate*channels*2))
}

// rms returns the root mean square of little-endian signed 16-bit samples.
func rms(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(pcm); i += 2 {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i:])))
		sum += v * v
	}
	return math.Sqrt(sum / float64(samples))
}

// wavFile wraps raw s16le PCM in a canonical 44-byte RIFF header.
func wavFile(pcm []byte, sampleRate, channels int) []byte {
	blockAlign := channels * 2
	out := make([]byte, 0, 44+len(pcm))
	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(36+len(pcm)))
	out = append(out, "WAVEfmt "...)
	out = binary.LittleEndian.AppendUint32(out, 16)
	out = binary.LittleEndian.AppendUint16(out, 1)
	out = binary.LittleEndian.AppendUint16(out, uint16(channels))
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(sampleRate*blockAlign))
	out = binary.LittleEndian.AppendUint16(out, uint16(blockAlign))
	out = binary.LittleEndian.AppendUint16(out, 16)
	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(pcm)))
	return append(out, pcm...)
}
