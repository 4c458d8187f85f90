// Package activity defines the activity records emitted by the capture layer
// and the immutable, ordered Store the correlation engine reads them from.
//
// An activity is one asynchronous unit of work: when it was created, when its
// callbacks ran, when it was destroyed, which activity triggered it and the
// call stack captured at creation.
//
// # Ordering
//
// A Store keeps activities in the order they were supplied. Trigger-graph walks
// assume that order is non-decreasing by creation time; CheckOrder reports the
// first violation. Disorder is not an error, it only makes walks incomplete.
//
// All other internal packages import activity; activity imports nothing
// internal.
package activity
