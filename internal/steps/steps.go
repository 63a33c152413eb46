// Package steps supplies the questionnaire step list, either the built-in
// defect-report checklist or one loaded from a YAML file:
//
//	steps:
//	  - label: A/C Reg
//	    question: Is GLTTRH correct?
//	    kind: confirmation
//	  - label: Headline
//	    kind: freeform
package steps

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"voicecheck/internal/domain"
)

var ErrNoSteps = errors.New("steps file defines no steps")

// Default returns the built-in checklist.
func Default() []domain.Step {
	return []domain.Step{
		{Label: "A/C Reg", Question: "Is GLTTRH correct?", Kind: domain.StepKindConfirmation},
		{Label: "A/C Type", Question: "Is G-DRTA correct?", Kind: domain.StepKindConfirmation},
		{Label: "ATA Chapter", Question: "Is ATA 27 correct?", Kind: domain.StepKindConfirmation},
		{Label: "Headline", Kind: domain.StepKindFreeform},
		{Label: "Description", Kind: domain.StepKindFreeform},
	}
}

type file struct {
	Steps []domain.Step `yaml:"steps"`
}

// Load reads the step list at path, or returns Default when path is empty.
func Load(path string) ([]domain.Step, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read steps file %q: %w", path, err)
	}

	parsed, err := Parse(contents)
	if err != nil {
		return nil, fmt.Errorf("steps file %q: %w", path, err)
	}
	return parsed, nil
}

// Parse decodes and validates a YAML step list. A missing kind defaults to
// confirmation.
func Parse(contents []byte) ([]domain.Step, error) {
	var f file
	if err := yaml.Unmarshal(contents, &f); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if len(f.Steps) == 0 {
		return nil, ErrNoSteps
	}

	out := make([]domain.Step, 0, len(f.Steps))
	for i, step := range f.Steps {
		step.Label = strings.TrimSpace(step.Label)
		step.Question = strings.TrimSpace(step.Question)
		step.Kind = domain.StepKind(strings.ToLower(strings.TrimSpace(string(step.Kind))))
		if step.Kind == "" {
			step.Kind = domain.StepKindConfirmation
		}

		if step.Label == "" {
			return nil, fmt.Errorf("step %d: label is required", i+1)
		}
		if !step.Kind.Valid() {
			return nil, fmt.Errorf("step %d (%s): unknown kind %q", i+1, step.Label, step.Kind)
		}
		out = append(out, step)
	}
	return out, nil
}
