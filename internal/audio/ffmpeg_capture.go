package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"voicecheck/internal/ports"
)

const (
	defaultStartupGrace = 250 * time.Millisecond
	defaultStopTimeout  = 1200 * time.Millisecond
)

// Recorder captures microphone PCM by running ffmpeg and reading s16le
// samples off its stdout. One Recorder can start many utterance sessions.
type Recorder struct {
	command      string
	startupGrace time.Duration
	stopTimeout  time.Duration
}

func NewRecorder(command string) *Recorder {
	command = strings.TrimSpace(command)
	if command == "" {
		command = "ffmpeg"
	}
	return &Recorder{
		command:      command,
		startupGrace: defaultStartupGrace,
		stopTimeout:  defaultStopTimeout,
	}
}

// Available reports whether the recorder binary can be found.
func (r *Recorder) Available() error {
	if _, err := exec.LookPath(r.command); err != nil {
		return fmt.Errorf("audio recorder %q not found: %w", r.command, err)
	}
	return nil
}

func (r *Recorder) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	cmd := exec.CommandContext(ctx, r.command, recorderArgs(cfg)...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create recorder stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start recorder: %w", err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
		close(exited)
	}()

	// A bad device makes ffmpeg exit almost immediately; catch that here so
	// the caller gets a start error instead of an empty stream.
	select {
	case err := <-exited:
		if err != nil {
			return nil, fmt.Errorf("recorder exited before capture started: %w: %s", err, trimOutput(stderr))
		}
		return nil, errors.New("recorder exited before capture started")
	case <-time.After(r.startupGrace):
	}

	return &recording{
		stdout:      stdout,
		stderr:      stderr,
		process:     cmd.Process,
		exited:      exited,
		stopTimeout: r.stopTimeout,
	}, nil
}

func recorderArgs(cfg ports.AudioConfig) []string {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-f", "s16le",
		"-",
	}
}

type recording struct {
	stdout io.ReadCloser
	stderr *bytes.Buffer

	process     *os.Process
	exited      <-chan error
	stopTimeout time.Duration

	stopOnce sync.Once
	stopErr  error
}

func (s *recording) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *recording) Close() error {
	return s.Stop()
}

// Stop interrupts the recorder, escalating to kill after stopTimeout.
// Repeated calls return the first result.
func (s *recording) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.exited:
			if ok {
				s.stopErr = ignoreExitStatus(err)
			}
		case <-time.After(s.stopTimeout):
			if s.process != nil {
				_ = s.process.Kill()
			}
			if err, ok := <-s.exited; ok {
				s.stopErr = ignoreExitStatus(err)
			}
		}

		if closeErr := s.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) && s.stopErr == nil {
			s.stopErr = closeErr
		}
		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, trimOutput(s.stderr))
		}
	})

	return s.stopErr
}

// ignoreExitStatus drops non-zero exit codes; ffmpeg exits 255 on SIGINT.
func ignoreExitStatus(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func trimOutput(buf *bytes.Buffer) string {
	if buf == nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}
