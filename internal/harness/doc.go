// Package harness runs bfvm programs as declarative test scenarios.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: echo
//	description: "copies input to output"
//	program: ",[.,]"
//	input: "AB"
//	settings: { negatives: false, wrapping: true, cell_size: 256, delay_ms: 0 }
//	verbosity: low          # optional, for messages_contain
//	stop_after: 0           # optional: request Stop after N executed steps
//	expect:
//	  reason: completed     # completed | stopped | mismatched_brackets
//	  output: "AB"
//	  steps: 8
//	  peak_cells: 1
//	  memory_pointer: 0
//	  cells: [0]
//	  status: "Finished execution"
//	  messages_contain: ["Scanning for loops..."]
//
// Every expect key except reason is optional; only the keys present are
// checked. Omitted settings keys keep their defaults.
//
// # Deterministic Execution
//
// The harness uses:
//   - A fixed run ID (testutil.FixedRunIDGenerator)
//   - A deterministic wall clock (testutil.DeterministicClock)
//   - A fake sleeper, so delay_ms never slows a test down
//   - An in-memory SQLite store; the report is written and read back so
//     every scenario also exercises run persistence
//
// # Golden Snapshots
//
// Snapshot renders the observable outcome as canonical JSON. RunWithGolden
// and AssertGolden compare it against testdata/golden/<name>.golden using
// goldie; `bfvm test` compares against <scenarios-dir>/golden/<file>.golden.
package harness
