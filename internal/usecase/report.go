package usecase

import (
	"context"
	"fmt"
	"strings"

	"voicecheck/internal/domain"
	. "voicecheck/internal/logging"
	"voicecheck/internal/ports"
)

type reportFinalizer struct {
	clipboard ports.Clipboard
	events    ports.EventSink
}

func newReportFinalizer(clipboard ports.Clipboard, events ports.EventSink) reportFinalizer {
	return reportFinalizer{clipboard: clipboard, events: events}
}

// Send formats the responses and copies them to the clipboard. A clipboard
// failure leaves the report in the result with Copied=false.
func (f reportFinalizer) Send(ctx context.Context, steps []domain.Step, responses []string) domain.SendResult {
	result := domain.SendResult{Report: FormatReport(steps, responses)}
	if f.clipboard == nil {
		return result
	}

	if err := f.clipboard.SetText(ctx, result.Report); err != nil {
		L_warn("questionnaire: clipboard write failed", "error", err)
		f.events.SessionError(domain.ErrorCodeClipboard, "report ready but clipboard write failed")
		return result
	}
	result.Copied = true
	return result
}

// FormatReport renders one "Label: response" line per answered step.
func FormatReport(steps []domain.Step, responses []string) string {
	var b strings.Builder
	for i, response := range responses {
		if i >= len(steps) {
			break
		}
		fmt.Fprintf(&b, "%s: %s\n", steps[i].Label, response)
	}
	return strings.TrimRight(b.String(), "\n")
}
