// Package resolve reconciles classified activities into operation groups.
//
// Three strategies exist, selected per kind by the signature table:
//
//   - count: walk the trigger chain from each anchor to the terminal role,
//     keep members sharing the anchor's correlation key, require exactly
//     Steps members and verify their roles in init order.
//   - chain: walk the trigger chain from each anchor and only require that
//     it ends in the terminal role and is long enough. Repeated read/write
//     steps are accepted.
//   - siblings: for stream operations whose roles descend independently
//     from a shared ancestor. Starting at each terminal, pick the oldest
//     unconsumed data-role sibling, the anchor initialized immediately before
//     it, and the closest tick. Best effort: overlapping streams under one
//     ancestor can be mismatched.
//
// Every id lands in at most one group per kind. Shared roles (ticks) are
// exempt: they may appear in groups of several kinds and are never consumed.
//
// Ties are broken deterministically: oldest/closest candidates first, then
// the smaller id.
package resolve
