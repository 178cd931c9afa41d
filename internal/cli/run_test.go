package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `
name: cli_pass
description: a minimal passing scenario for command tests
config:
  templates: [basic_page]
  fields: [title]
setup:
  fields: [title]
  templates:
    - name: basic_page
      fields: [title]
steps:
  - op: create
    page: p1
    template: basic_page
    fields:
      title: a test page
    expect:
      - subject: "{{page:p1}}"
        field: "{{field:title}}"
        user: "{{user:guest}}"
        username: guest
        property: data
        value: a test page
  - op: verify
`

const failingScenario = `
name: cli_fail
description: a scenario whose prediction never matches
config:
  templates: [basic_page]
  fields: [title]
setup:
  fields: [title]
  templates:
    - name: basic_page
      fields: [title]
steps:
  - op: create
    page: p1
    template: basic_page
    fields:
      title: a test page
    expect:
      - subject: "{{page:p1}}"
        field: "{{field:title}}"
        user: "{{user:guest}}"
        username: guest
        property: data
        value: the wrong value
  - op: verify
`

// writeScenario drops a scenario file into dir and returns its path.
func writeScenario(t *testing.T, dir, name, doc string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRun_PassingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "cli_pass.yaml", passingScenario)

	out, err := execute(t, "run", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ cli_pass")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestRun_FailingScenarioExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "cli_fail.yaml", failingScenario)

	out, err := execute(t, "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ cli_fail")
	assert.Contains(t, out, "row 0")
}

func TestRun_SingleFileArgument(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "cli_pass.yaml", passingScenario)

	out, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ cli_pass")
}

func TestRun_FilterSkipsNonMatching(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "cli_pass.yaml", passingScenario)
	writeScenario(t, dir, "cli_fail.yaml", failingScenario)

	out, err := execute(t, "run", dir, "--filter", "cli_pass")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestRun_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "cli_pass.yaml", passingScenario)

	out, err := execute(t, "run", dir, "--format", "json", "--token", "pinned")
	require.NoError(t, err)

	var response struct {
		Status string `json:"status"`
		Data   struct {
			Scenarios []ScenarioOutcome `json:"scenarios"`
			Passed    int               `json:"passed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, 1, response.Data.Passed)
	require.Len(t, response.Data.Scenarios, 1)
	assert.Equal(t, "pinned", response.Data.Scenarios[0].RunToken)
}

func TestRun_MalformedScenarioReportedAsFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: [not, a, scalar\n")

	out, err := execute(t, "run", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Load error")
}

func TestRun_EmptyDirectory(t *testing.T) {
	out, err := execute(t, "run", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestRun_MissingPath(t *testing.T) {
	_, err := execute(t, "run", "/does/not/exist")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
