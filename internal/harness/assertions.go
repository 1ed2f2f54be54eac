package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/sonarsource/astquery/internal/canon"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Outputs  []Output // All outputs for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nOutputs:\n")
	for _, o := range e.Outputs {
		fmt.Fprintf(&buf, "  [%d] %s\n", o.Input, render(o.Values))
	}
	return buf.String()
}

// scope describes which values an assertion looks at.
func scope(a Assertion) string {
	if a.Input == nil {
		return "all inputs"
	}
	return fmt.Sprintf("input %d", *a.Input)
}

// assertResultCount checks the number of values.
func assertResultCount(result *Result, a Assertion) error {
	values := result.Values(a.Input)
	if len(values) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertResultCount,
		Expected: fmt.Sprintf("%d values for %s", a.Count, scope(a)),
		Actual:   fmt.Sprintf("%d values: %s", len(values), render(values)),
		Outputs:  result.Outputs,
	}
}

// assertResultContains checks that some value equals a.Value.
func assertResultContains(result *Result, a Assertion) error {
	values := result.Values(a.Input)
	if indexOf(values, a.Value, 0) >= 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertResultContains,
		Expected: fmt.Sprintf("%s among the values of %s", render(a.Value), scope(a)),
		Actual:   "not found in " + render(values),
		Outputs:  result.Outputs,
	}
}

// assertResultAbsent checks that no value equals a.Value.
func assertResultAbsent(result *Result, a Assertion) error {
	values := result.Values(a.Input)
	i := indexOf(values, a.Value, 0)
	if i < 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertResultAbsent,
		Expected: fmt.Sprintf("no %s among the values of %s", render(a.Value), scope(a)),
		Actual:   fmt.Sprintf("found at position %d", i),
		Outputs:  result.Outputs,
	}
}

// assertResultOrder checks that a.Values appear in order.
// Values don't need to be consecutive (intervening values are allowed).
func assertResultOrder(result *Result, a Assertion) error {
	values := result.Values(a.Input)
	from := 0
	for j, want := range a.Values {
		i := indexOf(values, want, from)
		if i < 0 {
			return &AssertionError{
				Type:     AssertResultOrder,
				Expected: fmt.Sprintf("%s in order for %s", render(a.Values), scope(a)),
				Actual:   fmt.Sprintf("%s (position %d) not found after position %d in %s", render(want), j, from, render(values)),
				Outputs:  result.Outputs,
			}
		}
		from = i + 1
	}
	return nil
}

// indexOf returns the position of the first value equal to want at or
// after from, or -1.
func indexOf(values []any, want any, from int) int {
	for i := from; i < len(values); i++ {
		if valuesEqual(values[i], want) {
			return i
		}
	}
	return -1
}

// valuesEqual compares two values by their canonical JSON, falling back
// to deep equality for values without a canonical form.
func valuesEqual(actual, expected any) bool {
	a, errA := canon.MarshalString(actual)
	e, errE := canon.MarshalString(expected)
	if errA != nil || errE != nil {
		return reflect.DeepEqual(actual, expected)
	}
	return a == e
}

// render formats v as canonical JSON for messages.
func render(v any) string {
	s, err := canon.MarshalString(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return s
}

// checkExpect compares each output with its expected values.
func checkExpect(result *Result, expect [][]any) []string {
	var errors []string
	for i, want := range expect {
		got := result.Values(&i)
		if len(got) == len(want) && valuesEqual(got, want) {
			continue
		}
		errors = append(errors, fmt.Sprintf("input %d: expected %s, got %s", i, render(want), render(got)))
	}
	return errors
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertResultCount:
			err = assertResultCount(result, a)
		case AssertResultContains:
			err = assertResultContains(result, a)
		case AssertResultAbsent:
			err = assertResultAbsent(result, a)
		case AssertResultOrder:
			err = assertResultOrder(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errors
}
