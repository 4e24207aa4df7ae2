package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/circletools/circle-batch-client/pkg/batch"
	"github.com/circletools/circle-batch-client/pkg/classify"
	"github.com/circletools/circle-batch-client/pkg/client"
	"github.com/circletools/circle-batch-client/pkg/logging"
	"github.com/circletools/circle-batch-client/pkg/report"
	"github.com/circletools/circle-batch-client/pkg/session"
)

func main() {
	logger := logging.Setup(logging.FromEnv())

	// Configuration from environment
	baseURL := getEnv("BASE_URL", "https://suo.jiushu1234.com")
	token := os.Getenv("TOKEN")
	phone := os.Getenv("PHONE")
	redisURL := os.Getenv("REDIS_URL")

	rangeStart := getEnvInt("RANGE_START", 0)
	rangeEnd := getEnvInt("RANGE_END", 0)
	workers := clampWorkers(getEnvInt("WORKERS", 100))
	callTimeout := getEnvDuration("CALL_TIMEOUT", 5*time.Second)
	submitInterval := getEnvDuration("SUBMIT_INTERVAL", 100*time.Millisecond)
	checkFirst := getEnvBool("CHECK_FIRST", false)
	reportDir := getEnv("REPORT_DIR", "reports")
	retryPasses := getEnvInt("RETRY_PASSES", 0)
	retryBackoff := getEnvDuration("RETRY_BACKOFF", 2*time.Second)

	// Fail fast on setup errors, before anything is submitted.
	if rangeStart <= 0 || rangeEnd <= 0 {
		logger.Fatal().Msg("RANGE_START and RANGE_END are required")
	}
	if rangeStart > rangeEnd {
		rangeStart, rangeEnd = rangeEnd, rangeStart
		logger.Warn().
			Int("start", rangeStart).
			Int("end", rangeEnd).
			Msg("Range was reversed, swapped")
	}

	// Resolve the session token: explicit TOKEN wins, then the Redis store.
	if token == "" && redisURL != "" && phone != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		sess, err := session.NewStore(redisClient).Get(ctx, phone)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Str("phone", phone).Msg("No stored session")
		}
		token = sess.Token
		logger.Info().Str("phone", phone).Time("expires_at", sess.ExpiresAt).Msg("Loaded stored session")
	}
	if token == "" {
		logger.Fatal().Msg("TOKEN is required (or REDIS_URL + PHONE for a stored session)")
	}

	apiClient, err := client.New(client.DefaultConfig(baseURL, token))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create forum client")
	}

	saver, err := report.NewSaver(reportDir, "batch_vote", fmt.Sprintf("%d-%d", rangeStart, rangeEnd))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create report file")
	}

	failures := &failureCollector{}
	recorder := multiRecorder{saver, failures, consoleRecorder(logger)}

	pool, err := batch.New(batch.Config{
		Workers:        workers,
		CallTimeout:    callTimeout,
		SubmitInterval: submitInterval,
	}, apiClient.VoteUnit(checkFirst), classify.Vote, recorder)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create pool")
	}

	ctx := context.Background()
	keys := batch.Keys(batch.TaskKey(rangeStart), batch.TaskKey(rangeEnd))

	acc, err := pool.Run(ctx, keys)
	if err != nil {
		logger.Fatal().Err(err).Msg("Batch run failed")
	}

	// Retrying is a new submission decided here, never inside the pool.
	backoff := retryBackoff
	for pass := 1; pass <= retryPasses; pass++ {
		retryKeys := failures.take()
		if len(retryKeys) == 0 {
			break
		}

		logger.Info().
			Int("pass", pass).
			Int("keys", len(retryKeys)).
			Dur("backoff", backoff).
			Msg("Retrying failed tasks")
		time.Sleep(backoff)
		backoff *= 2

		passAcc, err := pool.Run(ctx, retryKeys)
		if err != nil {
			logger.Error().Err(err).Int("pass", pass).Msg("Retry pass failed")
			break
		}
		acc.Success += passAcc.Success
		acc.Already += passAcc.Already
		acc.Failed -= passAcc.Success + passAcc.Already
	}

	if err := saver.Finalize(acc); err != nil {
		logger.Error().Err(err).Msg("Failed to finalize report")
	}

	logger.Info().
		Int("total", acc.Total()).
		Int("success", acc.Success).
		Int("already", acc.Already).
		Int("failed", acc.Failed).
		Dur("elapsed", acc.Elapsed).
		Float64("throughput", acc.Throughput).
		Str("report", saver.Path()).
		Msg("Batch vote finished")
}

// multiRecorder fans one ordered result stream out to several recorders.
type multiRecorder []batch.Recorder

func (m multiRecorder) Record(r batch.TaskResult) {
	for _, rec := range m {
		rec.Record(r)
	}
}

// failureCollector gathers failed keys for caller-level retry passes.
type failureCollector struct {
	mu   sync.Mutex
	keys []batch.TaskKey
}

func (f *failureCollector) Record(r batch.TaskResult) {
	if r.Outcome != batch.OutcomeFailed {
		return
	}
	f.mu.Lock()
	f.keys = append(f.keys, r.Key)
	f.mu.Unlock()
}

func (f *failureCollector) take() []batch.TaskKey {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := f.keys
	f.keys = nil
	return keys
}

// consoleRecorder logs one line per finalized task, in final order.
func consoleRecorder(logger zerolog.Logger) batch.Recorder {
	return batch.RecorderFunc(func(r batch.TaskResult) {
		logger.Info().
			Int64("key", int64(r.Key)).
			Str("outcome", string(r.Outcome)).
			Int("code", r.Code).
			Str("detail", r.Message).
			Msg("Task finalized")
	})
}

// clampWorkers bounds the pool size to the range the remote tolerates.
func clampWorkers(w int) int {
	if w < 1 {
		return 1
	}
	if w > 500 {
		return 500
	}
	return w
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
