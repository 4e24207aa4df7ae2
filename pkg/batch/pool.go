package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/circletools/circle-batch-client/pkg/ratelimit"
)

// Config holds worker pool configuration for one run.
type Config struct {
	// Workers is the maximum number of remote calls in flight.
	Workers int

	// CallTimeout is applied per unit of work via context.
	CallTimeout time.Duration

	// SubmitInterval staggers task issuance to bound outbound request rate
	// independently of Workers. Zero disables staggering.
	SubmitInterval time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		Workers:        8,
		CallTimeout:    5 * time.Second,
		SubmitInterval: 0,
	}
}

// Pool executes independent blocking remote calls with bounded parallelism
// and delivers classified results in submission order.
type Pool struct {
	config   Config
	work     UnitOfWork
	classify Classifier
	recorder Recorder
	logger   zerolog.Logger
}

// New creates a worker pool. Configuration errors fail fast, before any
// task can be submitted.
func New(cfg Config, work UnitOfWork, classify Classifier, recorder Recorder) (*Pool, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be > 0 (got %d)", cfg.Workers)
	}
	if work == nil {
		return nil, fmt.Errorf("unit of work is required")
	}
	if classify == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultConfig().CallTimeout
	}

	return &Pool{
		config:   cfg,
		work:     work,
		classify: classify,
		recorder: recorder,
		logger:   log.With().Str("component", "batch-pool").Logger(),
	}, nil
}

type indexedTask struct {
	index int
	key   TaskKey
}

// Run executes all keys and returns only after every one of them has reached
// a terminal classified state. Changing Workers never changes final counts or
// emission order, only wall-clock duration.
//
// A cancelled context does not abort the run; it makes the remaining unit-of-
// work calls fail immediately, so every submitted key still yields exactly
// one result.
func (p *Pool) Run(ctx context.Context, keys []TaskKey) (*Accumulator, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("task key set is empty")
	}

	start := time.Now()
	acc := &Accumulator{}
	ras := newReassembler(acc, p.recorder)
	limiter := ratelimit.NewLimiter(p.config.SubmitInterval)

	p.logger.Info().
		Int("tasks", len(keys)).
		Int("workers", p.config.Workers).
		Dur("call_timeout", p.config.CallTimeout).
		Dur("submit_interval", p.config.SubmitInterval).
		Msg("Starting batch run")

	queue := make(chan indexedTask)

	// Feeder: FIFO by key order, paced by the issuance limiter. Issuance is
	// never skipped on cancellation; a dead context just stops the pacing.
	go func() {
		pacing := true
		for i, key := range keys {
			if pacing {
				if err := limiter.Wait(ctx); err != nil {
					p.logger.Warn().Err(err).Msg("Submission pacing aborted")
					pacing = false
				}
			}
			queue <- indexedTask{index: i, key: key}
		}
		close(queue)
	}()

	var wg sync.WaitGroup
	for w := 0; w < p.config.Workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for t := range queue {
				ras.submit(p.execute(ctx, t))
			}
		}(w)
	}

	wg.Wait()

	acc.Elapsed = time.Since(start)
	if secs := acc.Elapsed.Seconds(); secs > 0 {
		acc.Throughput = float64(len(keys)) / secs
	}
	runDuration.Observe(acc.Elapsed.Seconds())

	if emitted := ras.emitted(); emitted != len(keys) {
		// Cannot happen if the reassembler invariants hold.
		return acc, fmt.Errorf("emitted %d results for %d tasks", emitted, len(keys))
	}

	p.logger.Info().
		Int("success", acc.Success).
		Int("already", acc.Already).
		Int("failed", acc.Failed).
		Int("end_of_data", acc.EndOfData).
		Dur("elapsed", acc.Elapsed).
		Float64("throughput", acc.Throughput).
		Msg("Batch run complete")

	return acc, nil
}

// execute runs one unit of work with its timeout and classifies the result.
// Panics are contained here and mapped to a synthetic failed raw result, so
// a single task can never abort the pool or a sibling task.
func (p *Pool) execute(ctx context.Context, t indexedTask) (result TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			panicsTotal.Inc()
			p.logger.Error().
				Int64("key", int64(t.key)).
				Interface("panic", r).
				Msg("Unit of work panicked")
			result = TaskResult{
				Key:     t.key,
				Index:   t.index,
				Outcome: OutcomeFailed,
				Message: fmt.Sprintf("task panic: %v", r),
			}
		}
	}()

	tasksInFlight.Inc()
	defer tasksInFlight.Dec()

	callCtx, cancel := context.WithTimeout(ctx, p.config.CallTimeout)
	raw := p.work(callCtx, t.key)
	cancel()

	message := raw.Message
	if message == "" && raw.Err != nil {
		message = raw.Err.Error()
	}

	return TaskResult{
		Key:     t.key,
		Index:   t.index,
		Outcome: p.classify(raw),
		Code:    raw.Code,
		Message: message,
		Payload: raw.Payload,
	}
}
