package harness

// Output holds the values a pipeline produced for one input.
type Output struct {
	Input  int   `json:"input"`
	Values []any `json:"values"`
}

// CanonicalValue implements canon.Valuer.
func (o Output) CanonicalValue() any {
	values := o.Values
	if values == nil {
		values = []any{}
	}
	return map[string]any{"input": o.Input, "values": values}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation and assertion holds.
	Pass bool `json:"pass"`

	// Outputs holds one entry per input, in input order.
	Outputs []Output `json:"outputs"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Outputs: []Output{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddOutput records the values of one input.
func (r *Result) AddOutput(input int, values []any) {
	r.Outputs = append(r.Outputs, Output{Input: input, Values: values})
}

// Values returns the values of input, or of every input in order when
// input is nil.
func (r *Result) Values(input *int) []any {
	var out []any
	for _, o := range r.Outputs {
		if input == nil || o.Input == *input {
			out = append(out, o.Values...)
		}
	}
	return out
}
