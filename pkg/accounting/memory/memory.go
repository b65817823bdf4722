// Package memory provides an in-memory accounting recorder for testing
// and lightweight deployments. Records are kept in a fixed-size ring
// and lost when the process restarts.
package memory

import (
	"context"
	"sync"

	"github.com/csyangwen/OpenAI-to-Gemini-API-Proxy/pkg/accounting"
)

// Recorder keeps the most recent records in memory.
type Recorder struct {
	mu      sync.RWMutex
	records []accounting.Record
	next    int
	full    bool
}

var _ accounting.Recorder = (*Recorder)(nil)

// New creates a recorder holding at most capacity records. The oldest
// record is overwritten when the ring is full.
func New(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Recorder{records: make([]accounting.Record, capacity)}
}

// Record stores one record, overwriting the oldest at capacity.
func (r *Recorder) Record(ctx context.Context, rec accounting.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[r.next] = rec
	r.next++
	if r.next == len(r.records) {
		r.next = 0
		r.full = true
	}
	return nil
}

// Recent returns the stored records, oldest first.
func (r *Recorder) Recent() []accounting.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.full {
		out := make([]accounting.Record, r.next)
		copy(out, r.records[:r.next])
		return out
	}
	out := make([]accounting.Record, 0, len(r.records))
	out = append(out, r.records[r.next:]...)
	out = append(out, r.records[:r.next]...)
	return out
}

// Close is a no-op.
func (r *Recorder) Close() error { return nil }
