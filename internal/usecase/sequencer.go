package usecase

import (
	"errors"
	"fmt"
	"strings"

	"voicecheck/internal/domain"
)

var (
	ErrSessionComplete   = errors.New("questionnaire is already complete")
	ErrSessionIncomplete = errors.New("questionnaire is not complete")
	ErrInvalidResponse   = errors.New("confirmation steps accept only Yes or No")
	ErrEmptyResponse     = errors.New("response text is empty")
	ErrNotConfirmation   = errors.New("current step is not a confirmation step")
	ErrNoSteps           = errors.New("questionnaire has no steps")
)

// Sequencer walks a fixed step list, recording one response per step.
// It is not safe for concurrent use; the Controller owns it.
type Sequencer struct {
	steps     []domain.Step
	responses []string
}

func NewSequencer(steps []domain.Step) (*Sequencer, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	for i, step := range steps {
		if strings.TrimSpace(step.Label) == "" {
			return nil, fmt.Errorf("step %d: label is empty", i+1)
		}
		if !step.Kind.Valid() {
			return nil, fmt.Errorf("step %d: unknown kind %q", i+1, step.Kind)
		}
	}
	return &Sequencer{
		steps:     append([]domain.Step(nil), steps...),
		responses: make([]string, 0, len(steps)),
	}, nil
}

// Confirm records response for the current step and advances by one.
func (s *Sequencer) Confirm(response string) error {
	step, ok := s.CurrentStep()
	if !ok {
		return ErrSessionComplete
	}

	recorded, err := normalizeResponse(step.Kind, response)
	if err != nil {
		return fmt.Errorf("step %q: %w", step.Label, err)
	}

	s.responses = append(s.responses, recorded)
	return nil
}

// CurrentStep returns the step awaiting a response, or false once complete.
func (s *Sequencer) CurrentStep() (domain.Step, bool) {
	if s.Complete() {
		return domain.Step{}, false
	}
	return s.steps[len(s.responses)], true
}

func (s *Sequencer) CurrentIndex() int { return len(s.responses) }

func (s *Sequencer) Len() int { return len(s.steps) }

func (s *Sequencer) Complete() bool { return len(s.responses) == len(s.steps) }

// Responses returns recorded responses in step order.
func (s *Sequencer) Responses() []string {
	return append([]string(nil), s.responses...)
}

func (s *Sequencer) Steps() []domain.Step {
	return append([]domain.Step(nil), s.steps...)
}

func normalizeResponse(kind domain.StepKind, response string) (string, error) {
	trimmed := strings.TrimSpace(response)
	if kind == domain.StepKindConfirmation {
		switch {
		case strings.EqualFold(trimmed, domain.ResponseYes):
			return domain.ResponseYes, nil
		case strings.EqualFold(trimmed, domain.ResponseNo):
			return domain.ResponseNo, nil
		default:
			return "", ErrInvalidResponse
		}
	}
	if trimmed == "" {
		return "", ErrEmptyResponse
	}
	return trimmed, nil
}
