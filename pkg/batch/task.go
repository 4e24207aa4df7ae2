package batch

import (
	"context"
	"encoding/json"
)

// TaskKey identifies one unit of remote work (a page number or an object ID).
// Keys must be unique within one run; submission order is canonical order.
type TaskKey int64

// Outcome is the terminal classification of one task.
type Outcome string

const (
	// OutcomeSuccess means the remote action completed.
	OutcomeSuccess Outcome = "success"

	// OutcomeAlreadyDone means the remote reports the action was previously
	// completed. Not an error; counted separately from failures.
	OutcomeAlreadyDone Outcome = "already_done"

	// OutcomeFailed covers transport errors, protocol errors, and explicit
	// business rejections.
	OutcomeFailed Outcome = "failed"

	// OutcomeEndOfData signals an exhausted listing (empty page). Terminal
	// but not a failure; only produced by listing-style classifiers.
	OutcomeEndOfData Outcome = "end_of_data"
)

// RawResult is whatever a remote call returned, opaque to the pool.
// A non-nil Err marks a transport-level failure before any response code
// was available.
type RawResult struct {
	Code    int
	Message string
	Payload json.RawMessage
	Err     error
}

// TaskResult is the immutable, classified record of one finished task.
type TaskResult struct {
	Key     TaskKey
	Index   int
	Outcome Outcome
	Code    int
	Message string
	Payload json.RawMessage
}

// UnitOfWork executes one remote call for a task key. Implementations apply
// their own per-call timeout via ctx and must not panic; a panic is contained
// by the pool and mapped to a failed result anyway.
type UnitOfWork func(ctx context.Context, key TaskKey) RawResult

// Classifier maps a raw remote response to an outcome. Must be pure:
// no side effects, no network calls, deterministic for identical input.
type Classifier func(raw RawResult) Outcome

// Recorder consumes the ordered, classified result stream. Record is invoked
// exactly once per task, in strictly ascending submission order, from within
// the reassembler's critical section.
type Recorder interface {
	Record(result TaskResult)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(result TaskResult)

// Record implements Recorder.
func (f RecorderFunc) Record(result TaskResult) { f(result) }

// Keys builds a contiguous inclusive range of task keys.
// Returns nil if last < first.
func Keys(first, last TaskKey) []TaskKey {
	if last < first {
		return nil
	}
	keys := make([]TaskKey, 0, last-first+1)
	for k := first; k <= last; k++ {
		keys = append(keys, k)
	}
	return keys
}
