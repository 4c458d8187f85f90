// Package harness runs conformance scenarios against the engine.
//
// # Scenario Format
//
// Scenarios are YAML files holding an activity batch and assertions on the
// operations processed from it:
//
//	name: readfile_single
//	description: "One fs.readFile chain resolves to one operation"
//	signatures: tables/custom.cue   # optional, relative to the scenario file
//	options:
//	  separate_functions: true
//	activities:
//	  - id: 10
//	    triggerId: 1
//	    type: FSREQWRAP
//	    initStack: ["at Object.fs.readFile (fs.js:296:11)"]
//	    init: [1000]
//	    destroy: [1001000]
//	assertions:
//	  - type: group
//	    kind: fs.readFile
//	    anchor: 10
//	    members: [10, 11, 12, 13]
//
// # Assertion Types
//
//   - group_count: the kind has exactly count groups
//   - group: the group anchored at anchor has exactly these members
//   - role: the operation anchored at anchor has role played by id
//   - dropped: candidate was dropped, reason containing the given text
//   - called_by: the operation's call site equals expect
//   - user_functions: the operation lists count user functions
//   - exclusive: no id appears in two groups of the same kind
//
// # Execution
//
// Each scenario runs against a fresh in-memory SQLite store with fixed
// capture ids: the batch is saved, loaded back, processed and the report is
// saved and reloaded. Assertions run on the processed result; a report that
// does not survive the store round trip fails the scenario.
//
// Golden files (testdata/golden/<name>.golden) hold the Summary of a run,
// compared with goldie.
package harness
