package testutil

import (
	"sync"
	"time"
)

// ExecutionRecord holds the start and end times for a single step's execution.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Recorder collects execution records from concurrently running steps.
type Recorder struct {
	mu      sync.Mutex
	records map[string]*ExecutionRecord
	order   []string
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{records: make(map[string]*ExecutionRecord)}
}

// Start records that id began running.
func (r *Recorder) Start(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id] = &ExecutionRecord{Start: time.Now()}
}

// End records that id finished.
func (r *Recorder) End(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		rec.End = time.Now()
	}
	r.order = append(r.order, id)
}

// Record returns a copy of the record for id.
func (r *Recorder) Record(id string) (ExecutionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *rec, true
}

// Finished returns the IDs in the order they ended.
func (r *Recorder) Finished() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Overlapped reports whether a and b were running at the same time.
func (r *Recorder) Overlapped(a, b string) bool {
	ra, okA := r.Record(a)
	rb, okB := r.Record(b)
	if !okA || !okB {
		return false
	}
	return ra.Start.Before(rb.End) && rb.Start.Before(ra.End)
}
