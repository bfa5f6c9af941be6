package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amp-labs/flexiflow/cli"
	"github.com/amp-labs/flexiflow/flowtest"
	"github.com/amp-labs/flexiflow/statepack"
	"github.com/amp-labs/flexiflow/symbols"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	flowtest.RegisterFixtures(symbols.Default())
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// quietEnv keeps the commands from touching real collectors or files.
func quietEnv(t *testing.T) {
	t.Helper()

	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("LOG_OUTPUT", "stderr")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("FLEXIFLOW_NO_BANNER", "true")
}

func execute(t *testing.T, args ...string) (int, string) {
	t.Helper()

	out := &bytes.Buffer{}
	code := run(t.Context(), append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...), out)

	return code, out.String()
}

//nolint:paralleltest // Setenv and global logger
func TestRunWithMessages(t *testing.T) {
	quietEnv(t)

	cfg := writeConfig(t, "config.yaml", "name: example_component\nrules:\n  - rule1: \"...\"\n")
	rules := writeConfig(t, "new_rules.yaml", "rules:\n  - rule2: \"...\"\n")

	code, out := execute(t, "run", "-c", cfg, "-r", rules, "-m", "start", "-m", "confirm", "-m", "complete")
	require.Equal(t, 0, code, out)

	assert.Equal(t, strings.Join([]string{
		"InitialState --[start]--> AwaitingConfirmation",
		"AwaitingConfirmation --[confirm]--> Processing",
		"Processing --[complete]--> Completed",
		"example_component: Completed",
		"",
	}, "\n"), out)
}

//nolint:paralleltest // Setenv and global logger
func TestRunErrors(t *testing.T) {
	quietEnv(t)

	code, _ := execute(t, "run", "-c", filepath.Join(t.TempDir(), "missing.yaml"), "-m", "start")
	assert.Equal(t, 1, code)

	cfg := writeConfig(t, "bad.yaml", "name: bad\ninitial_state: Nowhere\n")
	code, _ = execute(t, "run", "-c", cfg, "-m", "start")
	assert.Equal(t, 1, code)

	code, _ = execute(t, "run")
	assert.Equal(t, 1, code)
}

//nolint:paralleltest // Setenv and global logger
func TestExplain(t *testing.T) {
	quietEnv(t)

	cfg := writeConfig(t, "config.yaml", `name: custom
initial_state: "tests.fixtures:AnotherFixtureState"
states:
  Custom: "tests.fixtures:FixtureInitial"
packs:
  - "flexiflow.states:BuiltinPack"
`)

	code, out := execute(t, "explain", "-c", cfg)
	require.Equal(t, 0, code, out)
	assert.True(t, strings.HasPrefix(out, "[builtin]\n"), out)
	assert.Contains(t, out, "[mapping]\n  Custom -> FixtureInitial\n")

	code, out = execute(t, "explain", "-c", cfg, "--format", "json")
	require.Equal(t, 0, code, out)

	var explained []statepack.Explanation
	require.NoError(t, json.Unmarshal([]byte(out), &explained))
	require.Len(t, explained, 6)
	assert.Equal(t, statepack.Explanation{Key: "Custom", Pack: "mapping", StateName: "FixtureInitial"}, explained[5])
}

//nolint:paralleltest // Setenv and global logger
func TestDiagram(t *testing.T) {
	quietEnv(t)

	cfg := writeConfig(t, "config.yaml", "name: example_component\n")

	code, out := execute(t, "diagram", "-c", cfg, "--plain", "-d", "LR", "--final", "Completed")
	require.Equal(t, 0, code, out)

	assert.True(t, strings.HasPrefix(out, "stateDiagram-v2\n    direction LR\n    [*] --> InitialState\n"), out)
	assert.Contains(t, out, "    Processing --> ErrorState : error\n")
	assert.Contains(t, out, "    Completed --> [*]\n")

	code, out = execute(t, "diagram", "-c", cfg)
	require.Equal(t, 0, code, out)
	assert.True(t, strings.HasPrefix(out, "```mermaid\n"), out)
}

//nolint:paralleltest // Setenv and global logger
func TestHelp(t *testing.T) {
	quietEnv(t)

	code, out := execute(t, "--help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "explain")
}

//nolint:paralleltest // Setenv and global logger
func TestInteractiveRun(t *testing.T) {
	quietEnv(t)

	cfg := writeConfig(t, "config.yaml", "name: example_component\n")

	out := &bytes.Buffer{}
	a := &app{ctx: t.Context(), out: out, prompter: &scriptedPrompter{answers: []string{"start", cli.ChoiceQuit}}}
	parser := newParser(a)

	_, err := parser.ParseArgs([]string{"--env-file=", "run", "-c", cfg})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "InitialState --[start]--> AwaitingConfirmation")
}

type scriptedPrompter struct {
	answers []string
}

func (s *scriptedPrompter) Choose(string, []string) (string, error) {
	answer := s.answers[0]
	s.answers = s.answers[1:]

	return answer, nil
}

func (s *scriptedPrompter) Text(label string) (string, error) {
	return s.Choose(label, nil)
}
