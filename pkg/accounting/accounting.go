// Package accounting records per-request usage: which model was asked
// for, which backend model served it, token counts, and outcome. The
// records feed operational reporting; they are not used for request
// processing.
package accounting

import (
	"context"
	"time"
)

// Record is one completed (or failed) request.
type Record struct {
	Time             time.Time
	RequestID        string
	Operation        string
	SourceModel      string
	TargetModel      string
	PromptTokens     int
	CompletionTokens int
	Duration         time.Duration
	Status           string
}

// Outcome values for Record.Status.
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// Recorder persists usage records. Implementations must be safe for
// concurrent use. Record failures are logged, never propagated to the
// client: accounting is best effort by contract.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
	Close() error
}

// Nop is a Recorder that discards everything.
type Nop struct{}

func (Nop) Record(context.Context, Record) error { return nil }
func (Nop) Close() error                         { return nil }
