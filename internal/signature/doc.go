// Package signature holds the versioned call-site signature table that drives
// role classification.
//
// The table is data, not code: for every operation kind it lists the roles,
// the stack frames each role must show at given depths, the structural checks
// on the resource payload, and how the resolver reconciles the classified
// activities into groups. Retargeting the engine to a different runtime
// layout means shipping a new table, not touching the resolvers.
//
// Tables are written in CUE. The default table is embedded (default.cue):
//
//	version: "1"
//	libraryLocations: [#"^fs\.js:"#]
//	kinds: {
//		"fs.writeFile": {
//			steps:    3
//			strategy: "chain"
//			anchor:   "open"
//			terminal: "close"
//			minChain: 3
//			roles: {
//				open: {type: "FSREQWRAP", frames: [{depth: 0, pattern: #"^at Object\.fs\.writeFile "#}]}
//				...
//			}
//		}
//	}
//
// Kind declaration order is preserved and breaks ties between kinds with the
// same step count.
package signature
