package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines a pipeline test scenario.
// A scenario evaluates one pipeline against a list of documents and
// checks the values it produces.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Definitions is a directory of CUE definitions.
	// Relative paths are resolved against the scenario file location.
	Definitions string `yaml:"definitions,omitempty"`

	// Source holds inline CUE definitions, as an alternative to Definitions.
	Source string `yaml:"source,omitempty"`

	// Pipeline names the definition to evaluate.
	Pipeline string `yaml:"pipeline"`

	// Inputs are YAML (or JSON) documents, evaluated in order.
	Inputs []string `yaml:"inputs"`

	// Expect optionally lists the exact values expected for each input.
	Expect [][]any `yaml:"expect,omitempty"`

	// Assertions validate the values.
	// Supported types: result_count, result_contains, result_absent, result_order
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Assertion validates the values of a scenario.
type Assertion struct {
	// Type specifies the assertion type:
	// - "result_count": Check the number of values
	// - "result_contains": Check some value equals Value
	// - "result_absent": Check no value equals Value
	// - "result_order": Check Values appear in order
	Type string `yaml:"type"`

	// Input restricts the assertion to one input. If nil, the values of
	// all inputs are checked together.
	Input *int `yaml:"input,omitempty"`

	// Count is the expected number of values (used by result_count).
	Count int `yaml:"count,omitempty"`

	// Value is the value looked for (used by result_contains, result_absent).
	Value any `yaml:"value,omitempty"`

	// Values is the expected order (used by result_order).
	Values []any `yaml:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertResultCount    = "result_count"
	AssertResultContains = "result_contains"
	AssertResultAbsent   = "result_absent"
	AssertResultOrder    = "result_order"
)

// LoadScenario reads and parses a scenario YAML file, resolving the
// definitions directory relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the definitions directory relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the definitions path BEFORE validation
	if d := scenario.Definitions; d != "" && !filepath.IsAbs(d) && basePath != "" {
		scenario.Definitions = filepath.Join(basePath, d)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarioFiles returns the .yaml and .yml files under dir whose base
// name matches filter. An empty filter matches every file.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, filepath.Base(path[:len(path)-len(ext)]))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	slices.Sort(files)
	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Definitions == "" && s.Source == "":
		return fmt.Errorf("one of definitions or source is required")
	case s.Definitions != "" && s.Source != "":
		return fmt.Errorf("definitions and source are mutually exclusive")
	case s.Definitions != "":
		if _, err := os.Stat(s.Definitions); os.IsNotExist(err) {
			return fmt.Errorf("definitions directory not found: %s", s.Definitions)
		}
	}

	if s.Pipeline == "" {
		return fmt.Errorf("pipeline is required")
	}

	if len(s.Inputs) == 0 {
		return fmt.Errorf("inputs list is required and must be non-empty")
	}

	if len(s.Expect) == 0 && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}
	if len(s.Expect) > 0 && len(s.Expect) != len(s.Inputs) {
		return fmt.Errorf("expect has %d entries for %d inputs", len(s.Expect), len(s.Inputs))
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Inputs)); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, inputs int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Input != nil && (*a.Input < 0 || *a.Input >= inputs) {
		return fmt.Errorf("assertions[%d]: input %d out of range", index, *a.Input)
	}

	switch a.Type {
	case AssertResultCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for result_count", index)
		}
	case AssertResultContains, AssertResultAbsent:
	case AssertResultOrder:
		if len(a.Values) == 0 {
			return fmt.Errorf("assertions[%d]: values list is required for result_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
