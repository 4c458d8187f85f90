// Package store provides SQLite-backed storage for captured activity
// batches and the reports processed from them.
//
// The store keeps three tables:
//   - captures: one row per imported batch, keyed by a UUIDv7 capture id
//   - activities: the batch in its original order, one JSON row per activity
//   - reports: the flat operation list of the last processing run
//
// # Ordering
//
// Every query orders by a seq column (capture import order, activity
// position, report entry order). Loading a capture yields the same store,
// in the same order, that was saved.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Operations are stored as canonical JSON together with their digest
// (assemble.Digest), so re-processing an unchanged capture reproduces the
// same rows. Activities are stored with plain JSON, byte for byte as
// captured.
package store
