// Package batch is the reusable core for running many independent, slow,
// blocking remote calls concurrently while producing a deterministic,
// in-order report and exact aggregate counts.
//
// Example usage:
//
//	pool, err := batch.New(batch.DefaultConfig(), work, classify.Vote, recorder)
//	if err != nil {
//		return err
//	}
//	acc, err := pool.Run(ctx, batch.Keys(1000, 1199))
//
// The engine:
//   - Dispatches each key FIFO to a unit-of-work closure, at most Workers in
//     flight, optionally staggering issuance by SubmitInterval
//   - Contains per-task panics and maps them to failed results
//   - Classifies every raw response through a pure Classifier
//   - Buffers out-of-order completions and flushes contiguous prefixes to the
//     Recorder in original submission order
//   - Updates the Accumulator under the same lock as emission, so flushed
//     count and outcome counts never diverge
//
// A run is complete only when every submitted key has reached a terminal
// state; there is no mid-run cancellation and the pool never retries.
// Retrying is a new submission decided by the caller.
package batch
