// Package tui is a terminal front end for the questionnaire. It renders the
// controller's view and maps keys onto controller operations.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voicecheck/internal/domain"
)

// Controller is the subset of the questionnaire controller the TUI drives.
type Controller interface {
	View() (domain.View, error)
	Answer(response string) error
	Confirm() error
	Decline() error
	SetTranscript(text string) error
	StartDictation() error
	Send(ctx context.Context) (domain.SendResult, error)
}

type actionErrMsg struct{ err error }

type sendDoneMsg struct {
	result domain.SendResult
	err    error
}

// writeOrder keeps a keystroke write from landing after a later operation.
// tea runs each command on its own goroutine, so commands can reach the
// controller out of order.
type writeOrder struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
}

func (w *writeOrder) ticket() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.issued++
	return w.issued
}

// apply runs op unless it is a keystroke write older than an operation that
// already ran.
func (w *writeOrder) apply(ticket uint64, keystroke bool, op func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if keystroke && ticket < w.applied {
		return nil
	}
	w.applied = max(w.applied, ticket)
	return op()
}

// Model is the bubbletea model for one questionnaire session.
type Model struct {
	ctrl     Controller
	provider string
	input    textinput.Model
	order    *writeOrder

	// echoes holds typed values whose views may still be on the way back.
	// A view carrying one of them must not rewind the input.
	echoes map[string]struct{}

	view      domain.View
	status    string
	statusErr bool
	width     int
}

// New builds a model. provider names the dictation backend for the header.
func New(ctrl Controller, provider string) Model {
	ti := textinput.New()
	ti.Placeholder = "type, or ctrl+t to speak"
	ti.CharLimit = 2000
	ti.Prompt = "> "
	ti.Focus()

	return Model{
		ctrl:     ctrl,
		provider: provider,
		input:    ti,
		order:    &writeOrder{},
		echoes:   make(map[string]struct{}),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refresh())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			return m, m.submit()
		case "ctrl+n":
			return m, m.run(m.ctrl.Decline)
		case "ctrl+t":
			m.input.SetValue("")
			clear(m.echoes)
			return m, m.run(m.ctrl.StartDictation)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case viewMsg:
		m.applyView(domain.View(msg))
		return m, nil

	case dictationMsg:
		m.setStatus(dictationStatus(msg.reason), msg.reason == domain.DictationReasonFailed)
		return m, nil

	case errorMsg:
		m.setStatus(errorStatus(msg.code, msg.detail), true)
		return m, nil

	case actionErrMsg:
		m.setStatus(msg.err.Error(), true)
		return m, nil

	case sendDoneMsg:
		switch {
		case msg.err != nil:
			m.setStatus(msg.err.Error(), true)
		case msg.result.Copied:
			m.setStatus("Report copied to clipboard", false)
		default:
			m.setStatus("Report ready, clipboard unavailable", true)
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != before && !m.view.Complete {
		m.echoes[before] = struct{}{}
		m.echoes[value] = struct{}{}
		cmd = tea.Batch(cmd, m.write(value))
	}
	return m, cmd
}

// applyView takes the controller's view. The controller's transcript wins
// unless the view only echoes something typed here.
func (m *Model) applyView(view domain.View) {
	if view.CurrentIndex < m.view.CurrentIndex {
		return
	}
	if view.CurrentIndex != m.view.CurrentIndex {
		clear(m.echoes)
	}
	if _, echo := m.echoes[view.Transcript]; !echo && m.input.Value() != view.Transcript {
		m.input.SetValue(view.Transcript)
		m.input.CursorEnd()
	}
	m.view = view
	if view.Complete {
		m.input.Blur()
	} else {
		m.input.Focus()
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// submit maps enter onto the step: freeform steps send the typed text,
// confirmation steps accept a typed yes/no or default to Yes, and a
// completed questionnaire is sent.
func (m Model) submit() tea.Cmd {
	if m.view.Complete {
		return m.send()
	}

	text := m.input.Value()
	if m.view.Kind == domain.StepKindFreeform {
		return m.run(func() error {
			if err := m.ctrl.SetTranscript(text); err != nil {
				return err
			}
			return m.ctrl.Confirm()
		})
	}
	if strings.TrimSpace(text) != "" {
		return m.run(func() error { return m.ctrl.Answer(text) })
	}
	return m.run(m.ctrl.Confirm)
}

func (m Model) send() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		result, err := ctrl.Send(context.Background())
		return sendDoneMsg{result: result, err: err}
	}
}

// run executes op off the update loop; view changes arrive through the sink.
func (m Model) run(op func() error) tea.Cmd {
	return m.ordered(false, op)
}

// write mirrors the input into the controller's transcript.
func (m Model) write(text string) tea.Cmd {
	ctrl := m.ctrl
	return m.ordered(true, func() error { return ctrl.SetTranscript(text) })
}

func (m Model) ordered(keystroke bool, op func() error) tea.Cmd {
	order, ticket := m.order, m.order.ticket()
	return func() tea.Msg {
		if err := order.apply(ticket, keystroke, op); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) refresh() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		view, err := ctrl.View()
		if err != nil {
			return actionErrMsg{err: err}
		}
		return viewMsg(view)
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("voicecheck"))
	if m.provider != "" {
		b.WriteString(providerStyle.Render("  " + m.provider))
	}
	b.WriteString("\n\n")

	labelWidth := 0
	for _, step := range m.view.Steps {
		labelWidth = max(labelWidth, lipgloss.Width(step.Label))
	}
	for _, step := range m.view.Steps {
		label := step.Label + strings.Repeat(" ", labelWidth-lipgloss.Width(step.Label))
		switch {
		case step.Done:
			b.WriteString(doneStyle.Render(" ✓ "+label) + "  " + responseStyle.Render(step.Response))
		case step.Current:
			b.WriteString(currentStyle.Render(" ▸ " + label))
		default:
			b.WriteString(pendingStyle.Render("   " + label))
		}
		b.WriteString("\n")
	}

	switch {
	case m.view.Sent:
		b.WriteString(promptStyle.Render("Sent."))
	case m.view.Complete:
		b.WriteString(promptStyle.Render("All steps answered. Press enter to send."))
	case len(m.view.Steps) > 0:
		b.WriteString(promptStyle.Render(m.view.Prompt))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		if m.view.Dictation == domain.DictationStateListening {
			b.WriteString(listeningStyle.Render("  ● listening"))
		}
	}
	b.WriteString("\n")

	if m.status != "" {
		style := statusStyle
		if m.statusErr {
			style = errorStyle
		}
		b.WriteString("\n" + style.Render(m.status) + "\n")
	}

	b.WriteString(helpStyle.Render(m.help()))
	b.WriteString("\n")
	return b.String()
}

func (m Model) help() string {
	keys := []string{"enter " + m.enterLabel()}
	if m.view.CanDecline {
		keys = append(keys, "ctrl+n no")
	}
	if m.view.DictationAvailable && !m.view.Complete {
		keys = append(keys, "ctrl+t speak")
	}
	keys = append(keys, "esc quit")
	return strings.Join(keys, " · ")
}

func (m Model) enterLabel() string {
	switch {
	case m.view.Complete:
		return "send"
	case m.view.Kind == domain.StepKindFreeform:
		return "next"
	default:
		return "yes"
	}
}

func dictationStatus(reason domain.DictationReason) string {
	switch reason {
	case domain.DictationReasonStarted:
		return "Listening..."
	case domain.DictationReasonRestarted:
		return "Listening again"
	case domain.DictationReasonRecognized:
		return "Got it"
	case domain.DictationReasonDiscarded:
		return "Step moved on; dictation discarded"
	case domain.DictationReasonNoSpeech:
		return "No speech heard"
	case domain.DictationReasonFailed:
		return "Dictation failed"
	case domain.DictationReasonUnavailable:
		return "Dictation unavailable; type your answers"
	default:
		return ""
	}
}

func errorStatus(code domain.ErrorCode, detail string) string {
	if detail == "" {
		return string(code)
	}
	return fmt.Sprintf("%s: %s", code, detail)
}

// Runner is a controller with its event loop.
type Runner interface {
	Controller
	Run(ctx context.Context) error
}

// Run drives ctrl from the terminal until the user quits or ctx ends.
func Run(ctx context.Context, ctrl Runner, sink *Sink, provider string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(New(ctrl, provider), tea.WithContext(ctx))
	sink.Attach(program)

	loopErr := make(chan error, 1)
	go func() { loopErr <- ctrl.Run(ctx) }()

	_, err := program.Run()
	cancel()
	if runErr := <-loopErr; runErr != nil && !errors.Is(runErr, context.Canceled) && err == nil {
		err = runErr
	}
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
