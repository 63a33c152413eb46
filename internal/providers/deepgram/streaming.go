package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"voicecheck/internal/domain"
	"voicecheck/internal/logging"
	"voicecheck/internal/ports"
)

const defaultBaseURL = "https://api.deepgram.com/v1"

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
	// Endpointing is the silence Deepgram waits before marking speech
	// final. Zero leaves the server default.
	Endpointing time.Duration
}

// Provider opens Deepgram live transcription streams. Each stream carries one
// utterance: only final results are forwarded, and the stream ends when the
// caller closes the send side or Deepgram reports an error.
type Provider struct {
	cfg    Config
	dialer *websocket.Dialer
}

func NewProvider(cfg Config) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &Provider{cfg: cfg, dialer: websocket.DefaultDialer}
}

func (p *Provider) StartStreaming(ctx context.Context, cfg ports.StreamingConfig) (ports.StreamingSession, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return nil, errors.New("DEEPGRAM_API_KEY is not configured")
	}

	wsURL, err := buildListenURL(p.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, _, err := p.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}
	logging.L_debug("deepgram: stream opened", "model", p.cfg.Model, "language", p.cfg.Language)

	s := &stream{
		conn:   conn,
		events: make(chan domain.TranscriptEvent, 16),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

var closeStreamMessage = []byte(`{"type":"CloseStream"}`)

// stream is one live connection. Writes are serialized by writeMu since
// SendAudio and CloseSend run on different goroutines. The read loop owns
// events and done.
type stream struct {
	conn   *websocket.Conn
	events chan domain.TranscriptEvent
	done   chan struct{}

	writeMu    sync.Mutex
	sendClosed bool

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
}

func (s *stream) SendAudio(chunk []byte) error {
	if len(chunk) == 0 {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.sendClosed {
		return errors.New("audio stream is already closed")
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
		if werr := s.waitErr(); werr != nil {
			return werr
		}
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

// CloseSend asks Deepgram to flush the remaining audio. Deepgram answers with
// the last finals and then closes the socket.
func (s *stream) CloseSend() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.sendClosed {
		return nil
	}
	s.sendClosed = true
	if err := s.conn.WriteMessage(websocket.TextMessage, closeStreamMessage); err != nil {
		s.setErr(fmt.Errorf("failed to close stream: %w", err))
	}
	return nil
}

func (s *stream) Events() <-chan domain.TranscriptEvent {
	return s.events
}

func (s *stream) Wait() error {
	<-s.done
	return s.waitErr()
}

// Close drops the connection without waiting for Deepgram to flush.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		_ = s.conn.Close()
		s.writeMu.Lock()
		s.sendClosed = true
		s.writeMu.Unlock()
	})
	<-s.done
	return s.waitErr()
}

func (s *stream) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// setErr keeps the first real failure. Close frames and reads on a socket we
// closed ourselves are how a stream normally ends.
func (s *stream) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) || errors.Is(err, net.ErrClosed) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *stream) readLoop() {
	defer func() {
		close(s.events)
		close(s.done)
		_ = s.conn.Close()
	}()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("failed to read provider event: %w", err))
			return
		}

		var msg listenMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logging.L_debug("deepgram: skipping unparsable message", "error", err)
			continue
		}

		switch msg.Type {
		case "Error":
			s.setErr(errors.New(msg.errorText()))
			s.emit(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, IsSpeechFinal: true})
			return
		case "UtteranceEnd":
			s.emit(domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, IsSpeechFinal: true})
		case "Results", "":
			if event, ok := msg.finalEvent(); ok {
				s.emit(event)
			}
		default:
			logging.L_debug("deepgram: ignoring message", "type", msg.Type)
		}
	}
}

// emit never blocks the read loop. A single utterance produces a handful of
// finals, so a full buffer means nobody is reading.
func (s *stream) emit(event domain.TranscriptEvent) {
	select {
	case s.events <- event:
	default:
		logging.L_warn("deepgram: event buffer full, dropping event", "speech_final", event.IsSpeechFinal)
	}
}

type listenMessage struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	Description string `json:"description"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (m listenMessage) transcript() string {
	if len(m.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(m.Channel.Alternatives[0].Transcript)
}

// finalEvent converts a Results message. Interim results are never requested,
// so anything not final is skipped.
func (m listenMessage) finalEvent() (domain.TranscriptEvent, bool) {
	if !m.IsFinal && !m.SpeechFinal {
		return domain.TranscriptEvent{}, false
	}
	text := m.transcript()
	if text == "" && !m.SpeechFinal {
		return domain.TranscriptEvent{}, false
	}
	return domain.TranscriptEvent{Kind: domain.TranscriptKindFinal, Text: text, IsSpeechFinal: m.SpeechFinal}, true
}

func (m listenMessage) errorText() string {
	for _, text := range []string{m.Message, m.Description} {
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
	}
	return "deepgram returned an unknown error"
}

func buildListenURL(providerCfg Config, streamCfg ports.StreamingConfig) (string, error) {
	base := strings.TrimSpace(providerCfg.APIBaseURL)
	if base == "" {
		base = defaultBaseURL
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	if streamCfg.Encoding == "" {
		streamCfg.Encoding = "linear16"
	}
	if streamCfg.SampleRate <= 0 {
		streamCfg.SampleRate = 16000
	}
	if streamCfg.Channels <= 0 {
		streamCfg.Channels = 1
	}

	query := listenURL.Query()
	query.Set("model", providerCfg.Model)
	query.Set("encoding", streamCfg.Encoding)
	query.Set("sample_rate", strconv.Itoa(streamCfg.SampleRate))
	query.Set("channels", strconv.Itoa(streamCfg.Channels))
	query.Set("interim_results", strconv.FormatBool(streamCfg.InterimResults))
	query.Set("smart_format", strconv.FormatBool(providerCfg.SmartFormat))
	if providerCfg.Endpointing > 0 {
		query.Set("endpointing", strconv.FormatInt(providerCfg.Endpointing.Milliseconds(), 10))
	}
	if providerCfg.Language != "" {
		query.Set("language", providerCfg.Language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
