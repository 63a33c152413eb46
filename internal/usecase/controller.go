package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"voicecheck/internal/domain"
	. "voicecheck/internal/logging"
	"voicecheck/internal/ports"
)

var ErrControllerStopped = errors.New("questionnaire controller is not running")

// Controller owns one questionnaire session. Every mutation, including
// dictation results, runs on the Run goroutine in arrival order.
type Controller struct {
	seq       *Sequencer
	dictation ports.Dictation
	rules     ports.RulesEngine
	reporter  reportFinalizer
	events    ports.EventSink
	sessionID string

	inbox   chan func()
	stopped chan struct{}

	// Owned by the Run goroutine.
	runCtx     context.Context
	transcript string
	dictState  domain.DictationState
	activation uint64
	sent       bool
}

// NewController builds a controller over steps. dictation may be nil, in
// which case the session is manual-entry only.
func NewController(
	steps []domain.Step,
	dictation ports.Dictation,
	rules ports.RulesEngine,
	clipboard ports.Clipboard,
	events ports.EventSink,
) (*Controller, error) {
	seq, err := NewSequencer(steps)
	if err != nil {
		return nil, err
	}
	if rules == nil {
		rules = passthroughRules{}
	}
	return &Controller{
		seq:       seq,
		dictation: dictation,
		rules:     rules,
		reporter:  newReportFinalizer(clipboard, events),
		events:    events,
		sessionID: uuid.NewString(),
		inbox:     make(chan func(), 32),
		stopped:   make(chan struct{}),
		runCtx:    context.Background(),
		dictState: domain.DictationStateIdle,
	}, nil
}

// Run processes queued operations until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.stopped)

	c.runCtx = ctx
	L_info("questionnaire: session started", "session", c.sessionID, "steps", c.seq.Len(), "dictation", c.dictation != nil)
	c.publish()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-c.inbox:
			fn()
		}
	}
}

func (c *Controller) SessionID() string { return c.sessionID }

// Answer records response for the current step.
func (c *Controller) Answer(response string) error {
	return c.call(func() error { return c.confirm(response) })
}

// Confirm is the "Yes" affordance: Yes for confirmation steps, the pending
// transcript for freeform steps.
func (c *Controller) Confirm() error {
	return c.call(func() error {
		step, ok := c.seq.CurrentStep()
		if ok && step.Kind == domain.StepKindFreeform {
			return c.confirm(c.transcript)
		}
		return c.confirm(domain.ResponseYes)
	})
}

// Decline is the "No" affordance, offered only on confirmation steps.
func (c *Controller) Decline() error {
	return c.call(func() error {
		step, ok := c.seq.CurrentStep()
		if ok && step.Kind != domain.StepKindConfirmation {
			c.reject(ErrNotConfirmation)
			return ErrNotConfirmation
		}
		return c.confirm(domain.ResponseNo)
	})
}

// SetTranscript overwrites the transcript with the literal field contents.
func (c *Controller) SetTranscript(text string) error {
	return c.call(func() error {
		c.transcript = text
		c.publish()
		return nil
	})
}

// StartDictation clears the transcript and starts listening for one
// utterance, replacing any utterance already in flight.
func (c *Controller) StartDictation() error {
	return c.call(c.startDictation)
}

// Send hands the completed questionnaire to the clipboard.
func (c *Controller) Send(ctx context.Context) (domain.SendResult, error) {
	var result domain.SendResult
	err := c.call(func() error {
		if !c.seq.Complete() {
			c.reject(ErrSessionIncomplete)
			return ErrSessionIncomplete
		}
		result = c.reporter.Send(ctx, c.seq.Steps(), c.seq.Responses())
		c.sent = true
		L_info("questionnaire: report sent", "session", c.sessionID, "copied", result.Copied)
		c.publish()
		return nil
	})
	return result, err
}

// View returns the current derived view.
func (c *Controller) View() (domain.View, error) {
	var view domain.View
	err := c.call(func() error {
		view = c.view()
		return nil
	})
	return view, err
}

func (c *Controller) call(fn func() error) error {
	reply := make(chan error, 1)
	if err := c.post(func() { reply <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-c.stopped:
		return ErrControllerStopped
	}
}

func (c *Controller) post(fn func()) error {
	select {
	case c.inbox <- fn:
		return nil
	case <-c.stopped:
		return ErrControllerStopped
	}
}

func (c *Controller) confirm(response string) error {
	index := c.seq.CurrentIndex()
	if err := c.seq.Confirm(response); err != nil {
		c.reject(err)
		return err
	}

	L_info("questionnaire: step recorded", "session", c.sessionID, "step", index+1, "of", c.seq.Len())
	c.transcript = ""
	if c.seq.Complete() {
		L_info("questionnaire: complete", "session", c.sessionID)
	}
	c.publish()
	return nil
}

func (c *Controller) startDictation() error {
	if c.seq.Complete() {
		c.reject(ErrSessionComplete)
		return ErrSessionComplete
	}

	c.transcript = ""
	if c.dictation == nil {
		L_debug("dictation: not available, manual entry only")
		c.publish()
		return nil
	}

	c.activation++
	generation, step := c.activation, c.seq.CurrentIndex()
	deliver := func(u domain.Utterance) {
		_ = c.post(func() { c.handleUtterance(generation, step, u) })
	}

	if err := c.dictation.Listen(c.runCtx, deliver); err != nil {
		L_warn("dictation: failed to start", "session", c.sessionID, "error", err)
		c.setDictation(domain.DictationStateIdle, domain.DictationReasonFailed)
		c.events.SessionError(domain.ErrorCodeDictation, err.Error())
		c.publish()
		return err
	}

	reason := domain.DictationReasonStarted
	if c.dictState == domain.DictationStateListening {
		reason = domain.DictationReasonRestarted
	}
	c.setDictation(domain.DictationStateListening, reason)
	c.publish()
	return nil
}

func (c *Controller) handleUtterance(generation uint64, step int, u domain.Utterance) {
	if generation != c.activation {
		L_debug("dictation: dropping superseded result", "generation", generation)
		return
	}

	if u.Err != nil {
		reason := domain.DictationReasonFailed
		if errors.Is(u.Err, ErrNoSpeech) {
			reason = domain.DictationReasonNoSpeech
		}
		L_warn("dictation: no result", "session", c.sessionID, "error", u.Err)
		c.setDictation(domain.DictationStateIdle, reason)
		c.events.SessionError(domain.ErrorCodeDictation, u.Err.Error())
		c.publish()
		return
	}

	if step != c.seq.CurrentIndex() {
		L_debug("dictation: step moved on, result discarded", "step", step+1)
		c.setDictation(domain.DictationStateIdle, domain.DictationReasonDiscarded)
		c.publish()
		return
	}
	c.setDictation(domain.DictationStateIdle, domain.DictationReasonRecognized)

	raw := strings.TrimSpace(u.Text)
	text, err := c.rules.Apply(raw)
	if err != nil {
		L_warn("dictation: rules failed, keeping raw text", "error", err)
		text = raw
	}
	c.transcript = text

	current, _ := c.seq.CurrentStep()
	if current.Kind == domain.StepKindConfirmation && isSpokenYes(raw) {
		_ = c.confirm(domain.ResponseYes)
		return
	}
	c.publish()
}

// isSpokenYes matches a bare "yes". Recognizers punctuate by default, so
// "Yes." and "yes!" count too.
func isSpokenYes(text string) bool {
	return strings.EqualFold(strings.TrimRight(strings.TrimSpace(text), ".!?,;: "), "yes")
}

func (c *Controller) setDictation(state domain.DictationState, reason domain.DictationReason) {
	c.dictState = state
	c.events.DictationStateChanged(state, reason)
}

func (c *Controller) reject(err error) {
	L_warn("questionnaire: transition rejected", "session", c.sessionID, "step", c.seq.CurrentIndex()+1, "error", err)
	c.events.SessionError(domain.ErrorCodeTransition, err.Error())
}

func (c *Controller) publish() {
	c.events.ViewChanged(c.view())
}

func (c *Controller) view() domain.View {
	responses := c.seq.Responses()
	current := c.seq.CurrentIndex()
	complete := c.seq.Complete()

	view := domain.View{
		SessionID:          c.sessionID,
		Steps:              make([]domain.StepView, 0, c.seq.Len()),
		CurrentIndex:       current,
		Transcript:         c.transcript,
		Dictation:          c.dictState,
		DictationAvailable: c.dictation != nil,
		Complete:           complete,
		Sent:               c.sent,
		CanSend:            complete,
	}

	for i, step := range c.seq.steps {
		sv := domain.StepView{
			Label:   step.Label,
			Prompt:  step.Prompt(),
			Kind:    step.Kind,
			Done:    i < current,
			Current: i == current,
		}
		if i < len(responses) {
			sv.Response = responses[i]
		}
		view.Steps = append(view.Steps, sv)
	}

	if step, ok := c.seq.CurrentStep(); ok {
		view.Prompt = step.Prompt()
		view.Kind = step.Kind
		view.CanDecline = step.Kind == domain.StepKindConfirmation
		view.CanConfirm = step.Kind == domain.StepKindConfirmation || strings.TrimSpace(c.transcript) != ""
	}
	return view
}

type passthroughRules struct{}

func (passthroughRules) Apply(text string) (string, error) { return text, nil }
