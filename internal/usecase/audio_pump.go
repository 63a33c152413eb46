package usecase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"voicecheck/internal/domain"
	. "voicecheck/internal/logging"
	"voicecheck/internal/ports"
)

// pumpAudioChunks copies microphone audio into the recognition session until
// the capture ends. Errors after stopping is closed are expected teardown
// noise and are not reported.
func pumpAudioChunks(
	audio ports.AudioSession,
	stream ports.StreamingSession,
	chunkSize int,
	events ports.EventSink,
	stopping <-chan struct{},
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	report := func(detail string) {
		select {
		case <-stopping:
			L_debug("dictation: audio pump stopped", "detail", detail)
		default:
			L_warn("dictation: audio pump failed", "detail", detail)
			events.SessionError(domain.ErrorCodeAudioStream, detail)
		}
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if sendErr := stream.SendAudio(buf[:n]); sendErr != nil {
				report(fmt.Sprintf("failed to stream audio: %v", sendErr))
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				report(fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}

func waitForStream(session ports.StreamingSession, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		done <- session.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		_ = session.Close()
		return <-done
	}
}
