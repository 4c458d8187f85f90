// Package engine orchestrates one processing run over an activity batch.
//
// A run builds the causal graph index and the role classification once,
// then resolves and assembles every kind of the signature table against
// them. Kinds run by descending step count so that more specific kinds
// claim their activities first; ids claimed by an earlier kind are hidden
// from later kinds unless they play a shared role there.
//
// Process is a pure function of its inputs and options. Runs share no
// state, so independent stores may be processed concurrently (ProcessAll).
//
// Data-quality problems never fail a run. Candidates that cannot be
// completed are reported as drops; missing timestamps and stacks surface as
// unavailable fields in the assembled operations. Errors are reserved for
// precondition violations and invalid configuration.
package engine
