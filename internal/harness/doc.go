// Package harness runs pipeline scenarios: CUE definitions evaluated
// against inline YAML documents, checked against expected values,
// assertions and golden snapshots.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	definitions: ../defs          # directory of CUE definitions, or
//	source: |                     # inline CUE definitions
//	  pipeline: ints: steps: ["subtree", {op: "ofKind", kinds: ["int"]}, "value"]
//	pipeline: ints
//	inputs:
//	  - |
//	    a: {b: 1, c: [2, 3]}
//	expect:
//	  - [1, 2, 3]
//	assertions:
//	  - type: result_count
//	    count: 3
//	  - type: result_contains
//	    input: 0
//	    value: 2
//
// Relative definition directories resolve against the scenario file.
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - result_count: the number of values equals count
//   - result_contains: some value equals value
//   - result_absent: no value equals value
//   - result_order: values appear in the given order, not necessarily adjacent
//
// An assertion with an input index looks at that input only; otherwise it
// looks at the values of all inputs in input order. Values compare by their
// canonical JSON, so 1 in a scenario equals an int64 1 from a YAML input.
//
// # Golden Snapshots
//
// The canonical JSON of every output is a deterministic snapshot. Tests
// compare it with goldie through RunWithGolden; the CLI compares it with
// CompareGolden and rewrites it with UpdateGolden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/ints.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
