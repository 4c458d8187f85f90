// Package assemble turns resolved groups into Operation reports.
//
// An Operation carries the lifecycle of the group (created from the anchor's
// init, destroyed from the terminal's destroy), the user call site that
// started it, one record per member role, stream configuration copied from
// structural roles, and the user-defined callbacks found in the members'
// resource payloads.
//
// Missing timestamps or stacks never fail assembly: the affected fields are
// rendered as Unavailable.
//
// Callbacks can be post-processed: Separate lifts them out of the role
// records into Operation.UserFunctions, Merge collapses entries defined at the
// same source location.
package assemble
