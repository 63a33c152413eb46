// Command voicecheck-tui runs the questionnaire in a terminal.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"voicecheck/internal/bootstrap"
	"voicecheck/internal/config"
	"voicecheck/internal/tui"
)

func main() {
	logOut, closeLog := openLog()
	defer closeLog()

	sink := tui.NewSink()
	services, err := bootstrap.Build(sink, tui.SystemClipboard{}, bootstrap.WithLogOutput(logOut))
	if err != nil {
		fmt.Fprintf(os.Stderr, "voicecheck: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tui.Run(ctx, services.Controller, sink, providerLabel(services.Provider)); err != nil {
		fmt.Fprintf(os.Stderr, "voicecheck: %v\n", err)
		os.Exit(1)
	}
}

func providerLabel(provider string) string {
	switch provider {
	case config.ProviderDeepgram:
		return "dictation: deepgram"
	case config.ProviderWhisper:
		return "dictation: whisper"
	default:
		return "manual entry"
	}
}

// openLog keeps log lines off the terminal the TUI draws on.
func openLog() (io.Writer, func()) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return io.Discard, func() {}
	}
	dir = filepath.Join(dir, "voicecheck")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return io.Discard, func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "tui.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return io.Discard, func() {}
	}
	return f, func() { _ = f.Close() }
}
