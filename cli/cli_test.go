package cli_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amp-labs/flexiflow/cli"
	"github.com/amp-labs/flexiflow/config"
	"github.com/amp-labs/flexiflow/engine"
	"github.com/amp-labs/flexiflow/states"
	"github.com/amp-labs/flexiflow/symbols"
	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoMoreInput = errors.New("script exhausted")

type scriptedPrompter struct {
	answers []string
	offered [][]string
}

func (s *scriptedPrompter) next() (string, error) {
	if len(s.answers) == 0 {
		return "", errNoMoreInput
	}

	answer := s.answers[0]
	s.answers = s.answers[1:]

	return answer, nil
}

func (s *scriptedPrompter) Choose(_ string, items []string) (string, error) {
	s.offered = append(s.offered, items)

	return s.next()
}

func (s *scriptedPrompter) Text(string) (string, error) {
	return s.next()
}

func newRunner(t *testing.T, prompter cli.Prompter) (*cli.Runner, *bytes.Buffer) {
	t.Helper()

	table := symbols.NewTable()
	states.Register(table)

	eng := engine.New(engine.WithSymbols(table))
	t.Cleanup(eng.Close)

	_, err := eng.BuildComponent(t.Context(), &config.Component{Name: "demo"})
	require.NoError(t, err)

	out := &bytes.Buffer{}

	return &cli.Runner{
		Engine:    eng,
		Component: "demo",
		Prompter:  prompter,
		Out:       out,
		Width:     40,
	}, out
}

func TestRunnerDrivesComponent(t *testing.T) {
	t.Parallel()

	prompter := &scriptedPrompter{answers: []string{"start", cli.ChoiceCustom, "bogus", "confirm", cli.ChoiceQuit}}
	runner, out := newRunner(t, prompter)

	require.NoError(t, runner.Run(t.Context()))

	comp, err := runner.Engine.Component("demo")
	require.NoError(t, err)
	assert.Equal(t, "Processing", comp.CurrentState())

	text := out.String()
	assert.Contains(t, text, "InitialState --[start]--> AwaitingConfirmation")
	assert.Contains(t, text, `AwaitingConfirmation: "bogus" ignored`)
	assert.Contains(t, text, "AwaitingConfirmation --[confirm]--> Processing")

	require.Len(t, prompter.offered, 4)
	assert.Equal(t, []string{"start", cli.ChoiceCustom, cli.ChoiceLoadRules, cli.ChoiceQuit}, prompter.offered[0])
	assert.Equal(t, []string{"cancel", "confirm", cli.ChoiceCustom, cli.ChoiceLoadRules, cli.ChoiceQuit}, prompter.offered[1])
	assert.Equal(t, []string{"complete", "error", cli.ChoiceCustom, cli.ChoiceLoadRules, cli.ChoiceQuit}, prompter.offered[3])
}

func TestRunnerLoadsRules(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "new_rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - rule2: \"...\"\n"), 0o600))

	missing := filepath.Join(t.TempDir(), "missing.yaml")

	prompter := &scriptedPrompter{answers: []string{
		cli.ChoiceLoadRules, path,
		cli.ChoiceLoadRules, missing,
		cli.ChoiceQuit,
	}}
	runner, out := newRunner(t, prompter)

	require.NoError(t, runner.Run(t.Context()))

	comp, err := runner.Engine.Component("demo")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"rule2": "..."}}, comp.Rules())
	assert.Equal(t, "InitialState", comp.CurrentState())

	text := out.String()
	assert.Contains(t, text, "loaded 1 rule(s) from "+path)
	assert.Contains(t, text, "error: failed to read rules file")
}

func TestRunnerStopsOnInterrupt(t *testing.T) {
	t.Parallel()

	runner, _ := newRunner(t, interruptPrompter{})
	require.NoError(t, runner.Run(t.Context()))
}

func TestRunnerReturnsPromptErrors(t *testing.T) {
	t.Parallel()

	runner, _ := newRunner(t, &scriptedPrompter{})
	require.ErrorIs(t, runner.Run(t.Context()), errNoMoreInput)
}

func TestRunnerUnknownComponent(t *testing.T) {
	t.Parallel()

	runner, _ := newRunner(t, &scriptedPrompter{})
	runner.Component = "nope"

	require.ErrorIs(t, runner.Run(t.Context()), engine.ErrUnknownComponent)
}

type interruptPrompter struct{}

func (interruptPrompter) Choose(string, []string) (string, error) { return "", promptui.ErrInterrupt }
func (interruptPrompter) Text(string) (string, error)             { return "", promptui.ErrEOF }

//nolint:paralleltest // Setenv
func TestPanel(t *testing.T) {
	t.Setenv("FLEXIFLOW_NO_BANNER", "false")

	panel := cli.Panel("demo\nstate: InitialState", 24, cli.AlignCenter)
	lines := strings.Split(strings.TrimSuffix(panel, "\n"), "\n")

	require.Len(t, lines, 4)
	assert.Equal(t, "╒"+strings.Repeat("═", 22)+"╕", lines[0])
	assert.Equal(t, "│         demo         │", lines[1])
	assert.Equal(t, "│ state: InitialState  │", lines[2])
	assert.Equal(t, "└"+strings.Repeat("─", 22)+"┘", lines[3])

	assert.Equal(t, "│abc  │\n", strings.SplitAfter(cli.Panel("abc", 7, cli.AlignLeft), "\n")[1])
	assert.Equal(t, "│  abc│\n", strings.SplitAfter(cli.Panel("abc", 7, cli.AlignRight), "\n")[1])
	assert.Equal(t, "│abcd…│\n", strings.SplitAfter(cli.Panel("abcdefgh", 7, cli.AlignLeft), "\n")[1])

	assert.Equal(t, "┠"+strings.Repeat("─", 8)+"┨\n", cli.Divider(10))

	t.Setenv("FLEXIFLOW_NO_BANNER", "true")
	assert.Equal(t, "plain\n", cli.Panel("plain", 24, cli.AlignCenter))
}
