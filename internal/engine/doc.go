// Package engine applies a batch of candidate notes to a ledger.
//
// The engine is a strictly sequential state machine: candidates are
// processed one at a time, and the position selector is always queried
// against the live, already-shifted ledger - never a snapshot taken before
// the batch started. Parallel insertion would invalidate concurrently
// computed indices, so the batch loop is never parallelized.
//
// Placement failures are recovered locally: a candidate with no eligible
// target is skipped and counted, and the batch continues. The caller
// persists the mutated ledger exactly once, after the whole batch.
package engine
