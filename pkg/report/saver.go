// Package report implements a file-based Recorder that persists the ordered,
// classified result stream of a batch run, plus a summary trailer.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/circletools/circle-batch-client/pkg/batch"
)

// Saver writes one report file per run. It implements batch.Recorder; the
// pool invokes Record in final order exactly once per task, so lines appear
// in the file in submission order.
type Saver struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	records int
}

// NewSaver creates the report file under dir and writes the header.
// The filename is prefix_label_timestamp.txt.
func NewSaver(dir, prefix, label string) (*Saver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("%s_%s.txt", prefix, timestamp)
	if label != "" {
		name = fmt.Sprintf("%s_%s_%s.txt", prefix, label, timestamp)
	}
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create report file: %w", err)
	}

	s := &Saver{file: f, path: path}
	s.writeHeader(label)
	return s, nil
}

// Path returns the report file path.
func (s *Saver) Path() string {
	return s.path
}

func (s *Saver) writeHeader(label string) {
	sep := strings.Repeat("=", 70)
	fmt.Fprintln(s.file, sep)
	fmt.Fprintln(s.file, "                         batch run report")
	fmt.Fprintln(s.file, sep)
	fmt.Fprintf(s.file, "started: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	if label != "" {
		fmt.Fprintf(s.file, "range:   %s\n", label)
	}
	fmt.Fprintln(s.file, sep)
	fmt.Fprintln(s.file)
}

// statusText maps an outcome to its report label.
func statusText(o batch.Outcome) string {
	switch o {
	case batch.OutcomeSuccess:
		return "OK     "
	case batch.OutcomeAlreadyDone:
		return "ALREADY"
	case batch.OutcomeEndOfData:
		return "END    "
	default:
		return "FAILED "
	}
}

// Record implements batch.Recorder.
func (s *Saver) Record(r batch.TaskResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	detail := r.Message
	if len(detail) > 120 {
		detail = detail[:120] + "..."
	}

	fmt.Fprintf(s.file, "[%s] key=%d %s code=%d %s\n",
		time.Now().Format("15:04:05"), r.Key, statusText(r.Outcome), r.Code, detail)
	s.records++
}

// Finalize writes the summary trailer and closes the file.
func (s *Saver) Finalize(acc *batch.Accumulator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sep := strings.Repeat("=", 70)
	fmt.Fprintln(s.file)
	fmt.Fprintln(s.file, sep)
	fmt.Fprintf(s.file, "total:       %d\n", acc.Total())
	fmt.Fprintf(s.file, "success:     %d\n", acc.Success)
	fmt.Fprintf(s.file, "already:     %d\n", acc.Already)
	fmt.Fprintf(s.file, "failed:      %d\n", acc.Failed)
	if acc.EndOfData > 0 {
		fmt.Fprintf(s.file, "end of data: %d\n", acc.EndOfData)
	}
	fmt.Fprintf(s.file, "elapsed:     %.1fs\n", acc.Elapsed.Seconds())
	fmt.Fprintf(s.file, "throughput:  %.1f tasks/s\n", acc.Throughput)

	if len(acc.SuccessKeys) > 0 {
		fmt.Fprintf(s.file, "success keys: %s\n", joinKeys(acc.SuccessKeys))
	}
	if len(acc.AlreadyKeys) > 0 {
		fmt.Fprintf(s.file, "already keys: %s\n", joinKeys(acc.AlreadyKeys))
	}
	fmt.Fprintln(s.file, sep)

	return s.file.Close()
}

// Records returns how many result lines have been written.
func (s *Saver) Records() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

func joinKeys(keys []batch.TaskKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%d", k)
	}
	return strings.Join(parts, ", ")
}
