package batch

import "sync"

// reassembler buffers out-of-order task completions and flushes them to the
// accumulator and recorder in original submission order.
//
// The insert-then-drain sequence runs under a single mutex so two workers can
// never interleave partial drains. The same critical section updates the
// accumulator and invokes the recorder, keeping "results flushed" and the
// outcome counts in lockstep.
type reassembler struct {
	mu       sync.Mutex
	next     int
	pending  map[int]TaskResult
	acc      *Accumulator
	recorder Recorder
}

func newReassembler(acc *Accumulator, recorder Recorder) *reassembler {
	return &reassembler{
		pending:  make(map[int]TaskResult),
		acc:      acc,
		recorder: recorder,
	}
}

// submit buffers one classified result and drains the contiguous prefix.
// Every index is emitted exactly once, in strictly ascending order.
func (r *reassembler) submit(result TaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending[result.Index] = result

	for {
		next, ok := r.pending[r.next]
		if !ok {
			return
		}
		delete(r.pending, r.next)
		r.next++

		r.acc.count(next)
		tasksTotal.WithLabelValues(string(next.Outcome)).Inc()
		if r.recorder != nil {
			r.recorder.Record(next)
		}
	}
}

// emitted returns how many results have been flushed so far.
func (r *reassembler) emitted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next
}
