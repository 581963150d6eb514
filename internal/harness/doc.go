// Package harness provides conformance testing for runcost series definitions.
//
// The harness compiles a series definition, computes it over a window and
// checks the resulting sequences against assertions and golden snapshots.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	series:                     # inline definition, or:
//	  start_value: 1000
//	  components:
//	    - { kind: deposit, amount: 100, every: 1, unit: month }
//	# definition: ../definitions/savings.cue
//	# use: savings
//	window: { start: "2024-01-01", end: "2024-04-01" }
//	timezone: UTC
//	assertions:
//	  - type: final_value
//	    value: 1300
//	  - type: point_count
//	    series: running_cost
//	    count: 4
//
// # Assertion Types
//
//   - final_value: last datapoint value, within tolerance
//   - point_count: number of datapoints
//   - monotonic: values never move against direction (increasing or decreasing)
//   - datapoint: value recorded at a given timestamp
//   - steps: number of events processed by the engine
//
// A scenario with expect_error passes when the computation fails with an
// error containing that text.
//
// # Golden Snapshots
//
// The render-ordered output series are serialized as canonical JSON and
// compared byte for byte. In package tests goldie manages files under
// testdata/golden; RunSuite uses <scenario dir>/golden/<file>.golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/savings.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, e := range result.Errors {
//	    log.Println(e)
//	}
package harness
