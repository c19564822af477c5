// Package profiler tracks timing statistics of named operations, such as
// sample reads in the loader.
package profiler

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"
	"time"
)

// OpStats summarizes the recorded durations of one operation.
type OpStats struct {
	Name  string
	Count int64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Avg returns the mean duration.
func (s OpStats) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Timer records operation durations. A nil *Timer is valid and records
// nothing. Timer is safe for concurrent use.
type Timer struct {
	mu    sync.Mutex
	start time.Time
	ops   map[string]*OpStats
}

// NewTimer returns an empty timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now(), ops: make(map[string]*OpStats)}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (t *Timer) StartOperation(name string) func() {
	if t == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		t.Record(name, time.Since(start))
	}
}

// Record adds one duration to the named operation.
func (t *Timer) Record(name string, d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	op, ok := t.ops[name]
	if !ok {
		op = &OpStats{Name: name, Min: d, Max: d}
		t.ops[name] = op
	}
	op.Count++
	op.Total += d
	if d < op.Min {
		op.Min = d
	}
	if d > op.Max {
		op.Max = d
	}
}

// Stats returns a snapshot of every operation, sorted by name.
func (t *Timer) Stats() []OpStats {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]OpStats, 0, len(t.ops))
	for _, op := range t.ops {
		out = append(out, *op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Report writes the operation timings and current heap usage to w.
func (t *Timer) Report(w io.Writer) {
	if t == nil {
		return
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	fmt.Fprintf(w, "Uptime: %v\n", time.Since(t.start).Truncate(time.Millisecond))
	fmt.Fprintf(w, "Heap Alloc: %s, Sys: %s, GC Cycles: %d\n", formatBytes(mem.HeapAlloc), formatBytes(mem.Sys), mem.NumGC)
	for _, op := range t.Stats() {
		fmt.Fprintf(w, "  %s: avg=%v, min=%v, max=%v, count=%d\n",
			op.Name, op.Avg().Truncate(time.Microsecond),
			op.Min.Truncate(time.Microsecond), op.Max.Truncate(time.Microsecond), op.Count)
	}
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
