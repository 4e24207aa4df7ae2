package batch

import "time"

// Accumulator holds the aggregate counts for one run. It is created at run
// start, updated once per finalized task under the reassembler lock, and
// returned to the caller when Run completes.
type Accumulator struct {
	Success   int
	Already   int
	Failed    int
	EndOfData int

	// SuccessKeys and AlreadyKeys list the effective task keys in emission
	// (= submission) order, mirroring the final report.
	SuccessKeys []TaskKey
	AlreadyKeys []TaskKey

	// Elapsed and Throughput are filled in by the pool after the last task
	// reaches a terminal state.
	Elapsed    time.Duration
	Throughput float64 // tasks per second
}

// Total returns the number of finalized tasks. At run completion this equals
// the number of submitted keys.
func (a *Accumulator) Total() int {
	return a.Success + a.Already + a.Failed + a.EndOfData
}

// count records one emitted result. Caller must hold the reassembler lock.
func (a *Accumulator) count(r TaskResult) {
	switch r.Outcome {
	case OutcomeSuccess:
		a.Success++
		a.SuccessKeys = append(a.SuccessKeys, r.Key)
	case OutcomeAlreadyDone:
		a.Already++
		a.AlreadyKeys = append(a.AlreadyKeys, r.Key)
	case OutcomeEndOfData:
		a.EndOfData++
	default:
		a.Failed++
	}
}
