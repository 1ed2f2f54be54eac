package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/sonarsource/astquery/internal/compiler"
	"github.com/sonarsource/astquery/internal/pipeline"
	"github.com/sonarsource/astquery/internal/tree"
)

// Option configures Run.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger for execution events. Logs are discarded
// by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
// 1. Load, validate and compile the CUE definitions
// 2. Build the query for the scenario pipeline
// 3. Evaluate every input in order
// 4. Return result with pass/fail, outputs, and errors
//
// Failures to load definitions or inputs are returned as errors; failed
// expectations and assertions are reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	body, err := compile(scenario)
	if err != nil {
		return nil, err
	}
	q, err := pipeline.NewQuery[*tree.Tree, any](body)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline %q: %w", scenario.Pipeline, err)
	}

	result := NewResult()
	for i, src := range scenario.Inputs {
		root, err := tree.FromYAML([]byte(src))
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		values, err := q.Execute(nil, root)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		result.AddOutput(i, values)

		o.logger.Info("input evaluated",
			"scenario", scenario.Name,
			"input", i,
			"values", len(values),
		)
	}

	for _, msg := range checkExpect(result, scenario.Expect) {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// compile loads the scenario definitions and compiles its pipeline.
func compile(scenario *Scenario) (compiler.Body, error) {
	var (
		set  *compiler.Set
		errs []error
	)
	if scenario.Source != "" {
		set, errs = compiler.LoadSource([]byte(scenario.Source), compiler.LoadModeCollectAll)
	} else {
		set, errs = compiler.LoadDir(scenario.Definitions, compiler.LoadModeCollectAll)
	}
	if len(errs) > 0 {
		var merr *multierror.Error
		for _, err := range errs {
			merr = multierror.Append(merr, err)
		}
		return nil, fmt.Errorf("failed to load definitions: %w", merr)
	}
	return set.Body(scenario.Pipeline)
}
