// Package graph indexes the causal trigger graph of an activity batch.
//
// Every activity has exactly one parent, the activity whose execution created
// it (its trigger). A trigger id that is not part of the batch acts as a
// virtual root: all activities sharing it are siblings.
//
// The Index is built once per batch and never mutated. Queries on unknown ids
// return empty results, except ImmediatelyBeforeID whose reference id must be
// present (ErrUnknownActivity).
//
// DescendantsUntil walks in store order and relies on the batch being ordered
// by creation time. Out-of-order batches yield incomplete walks without error.
package graph
