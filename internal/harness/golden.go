package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/sonarsource/astquery/internal/canon"
)

// Snapshot captures the outputs of a scenario execution.
type Snapshot struct {
	Scenario string   `json:"scenario"`
	Outputs  []Output `json:"outputs"`
}

// CanonicalValue implements canon.Valuer.
func (s Snapshot) CanonicalValue() any {
	outputs := make([]any, len(s.Outputs))
	for i, o := range s.Outputs {
		outputs[i] = o
	}
	return map[string]any{
		"scenario": s.Scenario,
		"outputs":  outputs,
	}
}

// MarshalSnapshot renders the outputs of result as canonical JSON.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	return canon.Marshal(Snapshot{Scenario: name, Outputs: result.Outputs})
}

// RunWithGolden executes a scenario and compares the outputs against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the outputs don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result's outputs against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

// GoldenPath returns the golden file of a scenario file: a file named
// after it in a golden directory next to it.
func GoldenPath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

// UpdateGolden writes data as the golden file at path.
func UpdateGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the golden file at path holds data.
// A missing file is reported as an error satisfying os.IsNotExist.
func CompareGolden(path string, data []byte) (bool, error) {
	golden, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	return bytes.Equal(golden, data), nil
}
