// Package harness provides conformance testing for thrustmig rule tables.
//
// A scenario lists the call sites of one translation unit, the outcome each
// should produce, and assertions over the run. The harness migrates the
// sites through the engine, records the run in an in-memory store, reads
// the run back as a trace, and checks it.
//
// # Scenario Format
//
//	name: sort_device_unified
//	description: "What this scenario validates"
//	run_id: run-sort-device-unified
//	unit: sort.cu
//	flags:
//	  unified_addressing: true
//	options:
//	  guard_style: statement
//	sites:
//	  - callee: thrust::sort
//	    text: thrust::sort(v.begin(), v.end())
//	    args:
//	      - kind: member_call
//	        text: v.begin()
//	        type: "thrust::detail::normal_iterator<thrust::device_ptr<int>>"
//	    expect:
//	      kind: rewritten
//	      text: "oneapi::dpl::sort(...)"
//	      features: [dpl_utils]
//	assertions:
//	  - type: feature_order
//	    features: [dpl_utils]
//
// Sites without a range are placed on line i+1 of the unit.
//
// # Assertion Types
//
//   - feature_order: the run's features in first-use order
//   - outcome_count: number of rewritten or unsupported outcomes
//   - diagnostic_count: number of diagnostics with a code
//   - recorded_features: feature usage as read back from the store
//   - skipped_count: number of sites skipped for having no rules
//
// # Deterministic Testing
//
// Runs use a fixed run ID (scenario run_id, or "test-run-default") and the
// engine's per-run logical clock, so traces are identical across runs and
// can be compared against golden files in testdata/golden.
package harness
