package steps

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicecheck/internal/domain"
)

func TestDefaultChecklist(t *testing.T) {
	t.Parallel()

	got := Default()
	require.Len(t, got, 5)
	assert.Equal(t, "Is GLTTRH correct?", got[0].Prompt())
	assert.Equal(t, "Headline", got[3].Prompt())
	for i, step := range got {
		want := domain.StepKindConfirmation
		if i >= 3 {
			want = domain.StepKindFreeform
		}
		assert.Equal(t, want, step.Kind, step.Label)
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	t.Parallel()

	got, err := Load("  ")
	require.NoError(t, err)
	assert.Equal(t, Default(), got)
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "steps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
steps:
  - label: " Tail number "
    question: Is N123AB correct?
  - label: Fault
    kind: FreeForm
`), 0o600))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []domain.Step{
		{Label: "Tail number", Question: "Is N123AB correct?", Kind: domain.StepKindConfirmation},
		{Label: "Fault", Kind: domain.StepKindFreeform},
	}, got)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseRejectsInvalidLists(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("steps: []\n"))
	require.ErrorIs(t, err, ErrNoSteps)

	_, err = Parse([]byte("steps:\n  - question: no label\n"))
	require.ErrorContains(t, err, "label is required")

	_, err = Parse([]byte("steps:\n  - label: Pick one\n    kind: multiple\n"))
	require.ErrorContains(t, err, "unknown kind")

	_, err = Parse([]byte("steps: [unterminated\n"))
	require.ErrorContains(t, err, "invalid YAML")
}
