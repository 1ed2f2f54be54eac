package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treeDefs = `package defs

pipeline: {
	ints: {
		description: "integer leaves in document order"
		steps: ["subtree", {op: "ofKind", kinds: ["int"]}, "value"]
	}
	total: steps: [{op: "use", pipeline: "ints"}, "count"]
}
`

// writeFiles writes files relative to dir, creating directories.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// workspace creates a definitions directory and three documents.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"defs/tree.cue": treeDefs,
		"doc.yaml":      "a:\n  b: 1\n  c: [2, 3]\nd: x\n",
		"doc.json":      `{"n": 7, "m": "y"}`,
		"doc.cue":       "x: 5\ny: {z: 6}\n",
		"other.yaml":    "a: 10\n",
	})
	return dir
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// decodeData parses a JSON response and returns its data payload.
func decodeData(t *testing.T, out string) map[string]any {
	t.Helper()
	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp.Data
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "astq", cmd.Use)

	for _, name := range []string{"query", "explain", "validate", "runs", "test"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	diff, _, err := cmd.Find([]string{"runs", "diff"})
	require.NoError(t, err)
	assert.Equal(t, "diff", diff.Name())

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
	assert.Equal(t, "auto", cmd.PersistentFlags().Lookup("log-format").DefValue)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	dir := workspace(t)

	_, err := execute(t, "", "validate", filepath.Join(dir, "defs"), "--format", "xml")
	assert.ErrorContains(t, err, `invalid format "xml"`)

	_, err = execute(t, "", "validate", filepath.Join(dir, "defs"), "--log-format", "pretty")
	assert.ErrorContains(t, err, `invalid log format "pretty"`)
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(buf, "json", false)
	logger.Debug("hidden")
	logger.Info("hello", "pipeline", "ints")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"message":"hello"`)
	assert.Contains(t, out, `"pipeline":"ints"`)

	buf.Reset()
	NewLogger(buf, "console", true).Debug("shown")
	assert.Contains(t, buf.String(), "DBG")
	assert.Contains(t, buf.String(), "shown")
}

func TestQuery(t *testing.T) {
	dir := workspace(t)
	defs := filepath.Join(dir, "defs")
	doc := filepath.Join(dir, "doc.yaml")

	out, err := execute(t, "", "query", defs, "ints", doc)
	require.NoError(t, err)
	assert.Equal(t, doc+"\t1\n"+doc+"\t2\n"+doc+"\t3\n", out)

	out, err = execute(t, "", "query", defs, "ints", filepath.Join(dir, "doc.json"), filepath.Join(dir, "doc.cue"))
	require.NoError(t, err)
	assert.Contains(t, out, "doc.json\t7\n")
	assert.Contains(t, out, "doc.cue\t5\n")
	assert.Contains(t, out, "doc.cue\t6\n")

	out, err = execute(t, "a: [4, 5]\n", "query", defs, "total", "-")
	require.NoError(t, err)
	assert.Equal(t, "-\t2\n", out)
}

func TestQuery_JSON(t *testing.T) {
	dir := workspace(t)

	out, err := execute(t, "", "query", filepath.Join(dir, "defs"), "ints", filepath.Join(dir, "doc.yaml"), "--format", "json")
	require.NoError(t, err)

	data := decodeData(t, out)
	assert.Equal(t, "ints", data["pipeline"])
	assert.Len(t, data["fingerprint"], 16)
	assert.NotContains(t, data, "run_id")

	inputs := data["inputs"].([]any)
	require.Len(t, inputs, 1)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, inputs[0].(map[string]any)["values"])
}

func TestQuery_Errors(t *testing.T) {
	dir := workspace(t)
	defs := filepath.Join(dir, "defs")
	doc := filepath.Join(dir, "doc.yaml")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing definitions", []string{"query", filepath.Join(dir, "nope"), "ints", doc}, "failed to load definitions"},
		{"unknown pipeline", []string{"query", defs, "nope", doc}, `pipeline "nope" is not defined`},
		{"missing input", []string{"query", defs, "ints", filepath.Join(dir, "nope.yaml")}, "failed to load input"},
		{"bad database", []string{"query", defs, "ints", doc, "--db", filepath.Join(dir, "nope", "runs.db")}, "failed to open database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}

	_, err := execute(t, "", "query", defs, "ints")
	assert.Error(t, err, "at least one input is required")
}

// recordRun runs a query with --db and returns the run id.
func recordRun(t *testing.T, db, defs string, inputs ...string) string {
	t.Helper()
	args := append([]string{"query", defs, "ints", "--db", db, "--format", "json"}, inputs...)
	out, err := execute(t, "", args...)
	require.NoError(t, err)
	id, ok := decodeData(t, out)["run_id"].(string)
	require.True(t, ok, out)
	return id
}

func TestRuns(t *testing.T) {
	dir := workspace(t)
	defs := filepath.Join(dir, "defs")
	db := filepath.Join(dir, "runs.db")

	out, err := execute(t, "", "runs", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", out)

	first := recordRun(t, db, defs, filepath.Join(dir, "doc.yaml"))
	second := recordRun(t, db, defs, filepath.Join(dir, "doc.yaml"))
	third := recordRun(t, db, defs, filepath.Join(dir, "other.yaml"))

	out, err = execute(t, "", "runs", "--db", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "#3 "+third+" ints [ok] 1 input(s)"), lines[0])

	out, err = execute(t, "", "runs", "--db", db, "--limit", "1", "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data []RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, third, resp.Data[0].ID)
	assert.Equal(t, "ok", resp.Data[0].Status)

	out, err = execute(t, "", "runs", "diff", first, second, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "identical values")

	out, err = execute(t, "", "runs", "diff", first, third, "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ 3 difference(s)")
	assert.Contains(t, out, "input 0 result 0: want 1, got 10")
	assert.Contains(t, out, "want 3, got <missing>")

	_, err = execute(t, "", "runs", "diff", first, "nope", "--db", db)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "", "runs")
	assert.ErrorContains(t, err, `required flag(s) "db" not set`)
}

func TestExplain(t *testing.T) {
	dir := workspace(t)
	defs := filepath.Join(dir, "defs")

	out, err := execute(t, "", "explain", defs, "ints")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "flowchart TD\n"), out)
	assert.Contains(t, out, "Consume(results)")
	assert.Contains(t, out, "%% fingerprint: ")

	out, err = execute(t, "", "explain", defs, "total", "--format", "json")
	require.NoError(t, err)
	first := decodeData(t, out)
	assert.Equal(t, "total", first["pipeline"])
	assert.Greater(t, first["nodes"], 2.0)
	assert.Contains(t, first["mermaid"], "Aggregate(Count)")

	out, err = execute(t, "", "explain", defs, "total", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, first["fingerprint"], decodeData(t, out)["fingerprint"], "fingerprints are stable")

	_, err = execute(t, "", "explain", defs, "nope")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate(t *testing.T) {
	dir := workspace(t)

	out, err := execute(t, "", "validate", filepath.Join(dir, "defs"))
	require.NoError(t, err)
	assert.Equal(t, "✓ 2 pipeline(s) valid\n", out)

	out, err = execute(t, "", "validate", filepath.Join(dir, "defs"), "--format", "json")
	require.NoError(t, err)
	data := decodeData(t, out)
	assert.Equal(t, true, data["valid"])
	assert.Equal(t, []any{"ints", "total"}, data["pipelines"])
}

func TestValidate_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"bad/defs.cue": `package defs

pipeline: {
	a: steps: ["frobnicate"]
	b: steps: [{op: "use", pipeline: "c"}]
	c: steps: [{op: "use", pipeline: "b"}]
}
`,
	})

	out, err := execute(t, "", "validate", filepath.Join(dir, "bad"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, "E120")
	assert.Contains(t, out, "E126")

	out, err = execute(t, "", "validate", filepath.Join(dir, "bad"), "--format", "json")
	require.Error(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E120", resp.Error.Code)

	out, err = execute(t, "", "validate", filepath.Join(dir, "missing"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestTest(t *testing.T) {
	dir := workspace(t)
	writeFiles(t, dir, map[string]string{
		"scenarios/ints.yaml": `name: ints
description: integer leaves
definitions: ../defs
pipeline: ints
inputs:
  - "a: {b: 1, c: [2, 3]}"
expect:
  - [1, 2, 3]
`,
	})
	scenarios := filepath.Join(dir, "scenarios")
	golden := filepath.Join(scenarios, "golden", "ints.golden")

	out, err := execute(t, "", "test", scenarios)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ ints\n")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
	assert.NoFileExists(t, golden)

	out, err = execute(t, "", "test", scenarios, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t, `{"outputs":[{"input":0,"values":[1,2,3]}],"scenario":"ints"}`, string(data))

	out, err = execute(t, "", "test", scenarios, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Scenarios, 1)
	assert.Equal(t, "match", resp.Data.Scenarios[0].Golden)

	require.NoError(t, os.WriteFile(golden, []byte("{}"), 0o644))
	out, err = execute(t, "", "test", scenarios)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "do not match golden file")

	out, err = execute(t, "", "test", scenarios, "--filter", "other-*")
	require.NoError(t, err)
	assert.Equal(t, "No scenarios found.\n", out)

	_, err = execute(t, "", "test", filepath.Join(dir, "missing"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("run: %w", NewExitError(ExitFailure, "differ")), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError(t *testing.T) {
	cause := errors.New("no such file")
	err := WrapExitError(ExitCommandError, "failed to load input", cause)
	assert.Equal(t, "failed to load input: no such file", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bad", NewExitError(ExitFailure, "bad").Error())
}

func TestOutputFormatter(t *testing.T) {
	out, diag := &bytes.Buffer{}, &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: out, ErrWriter: diag}

	require.NoError(t, f.Error("E005", "not found", "details"))
	f.VerboseLog("hidden")
	assert.Equal(t, "Error [E005]: not found\n", out.String())
	assert.Empty(t, diag.String())

	f.Verbose = true
	f.VerboseLog("loaded %d file(s)", 2)
	assert.Equal(t, "loaded 2 file(s)\n", diag.String())

	out.Reset()
	f.Format = "json"
	require.NoError(t, f.Report(false, map[string]int{"failed": 1}))
	var resp CLIResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Nil(t, resp.Error)

	out.Reset()
	require.NoError(t, f.Error("E120", "unknown op", nil))
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, &CLIError{Code: "E120", Message: "unknown op"}, resp.Error)
}
