package usecase

import (
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicecheck/internal/domain"
)

func TestPumpAudioChunksReportsSendError(t *testing.T) {
	t.Parallel()

	audio := &fakeAudioSession{chunks: [][]byte{[]byte("abc")}}
	stream := &sendErrStream{err: errors.New("send failed")}
	events := &fakeEventSink{}
	done := make(chan struct{})

	go pumpAudioChunks(audio, stream, 256, events, make(chan struct{}), done)
	<-done

	errs := events.snapshotErrors()
	require.NotEmpty(t, errs)
	assert.Equal(t, domain.ErrorCodeAudioStream, errs[0].code)
}

func TestPumpAudioChunksReportsReadError(t *testing.T) {
	t.Parallel()

	audio := &errorAudioSession{err: errors.New("read failed")}
	events := &fakeEventSink{}
	done := make(chan struct{})

	go pumpAudioChunks(audio, &sendErrStream{}, 256, events, make(chan struct{}), done)
	<-done

	errs := events.snapshotErrors()
	require.NotEmpty(t, errs)
	assert.Equal(t, domain.ErrorCodeAudioStream, errs[0].code)
}

func TestPumpAudioChunksQuietWhileStopping(t *testing.T) {
	t.Parallel()

	audio := &fakeAudioSession{chunks: [][]byte{[]byte("abc")}}
	stream := &sendErrStream{err: errors.New("audio stream is already closed")}
	events := &fakeEventSink{}
	stopping := make(chan struct{})
	close(stopping)
	done := make(chan struct{})

	go pumpAudioChunks(audio, stream, 256, events, stopping, done)
	<-done

	assert.Empty(t, events.snapshotErrors())
}

func TestPumpAudioChunksIgnoresClosedPipe(t *testing.T) {
	t.Parallel()

	events := &fakeEventSink{}
	done := make(chan struct{})

	go pumpAudioChunks(&errorAudioSession{err: os.ErrClosed}, &sendErrStream{}, 256, events, make(chan struct{}), done)
	<-done

	assert.Empty(t, events.snapshotErrors())
}

func TestWaitForStreamTimeoutClosesSession(t *testing.T) {
	t.Parallel()

	stream := &blockingWaitStream{done: make(chan struct{}), waitErr: errors.New("closed")}
	err := waitForStream(stream, 10*time.Millisecond)
	require.EqualError(t, err, "closed")
	assert.NotZero(t, stream.closeCalls)
}

type sendErrStream struct {
	err error
}

func (s *sendErrStream) SendAudio(_ []byte) error { return s.err }
func (s *sendErrStream) CloseSend() error         { return nil }
func (s *sendErrStream) Events() <-chan domain.TranscriptEvent {
	ch := make(chan domain.TranscriptEvent)
	close(ch)
	return ch
}
func (s *sendErrStream) Wait() error  { return nil }
func (s *sendErrStream) Close() error { return nil }

type errorAudioSession struct {
	err error
}

func (s *errorAudioSession) Read(_ []byte) (int, error) { return 0, s.err }
func (s *errorAudioSession) Close() error               { return nil }
func (s *errorAudioSession) Stop() error                { return nil }

type blockingWaitStream struct {
	done       chan struct{}
	waitErr    error
	closeCalls int
}

func (s *blockingWaitStream) SendAudio(_ []byte) error { return nil }
func (s *blockingWaitStream) CloseSend() error         { return nil }
func (s *blockingWaitStream) Events() <-chan domain.TranscriptEvent {
	ch := make(chan domain.TranscriptEvent)
	close(ch)
	return ch
}
func (s *blockingWaitStream) Wait() error {
	<-s.done
	return s.waitErr
}
func (s *blockingWaitStream) Close() error {
	s.closeCalls++
	close(s.done)
	return nil
}

var _ io.ReadCloser = (*errorAudioSession)(nil)
