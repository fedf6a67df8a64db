package engine

import (
	"context"
	"time"
)

// Config controls the task execution engine.
type Config struct {
	Enabled   bool
	Workers   int
	QueueSize int

	// DefaultTimeout is used when Task.Timeout is 0. 0 means no timeout.
	DefaultTimeout time.Duration

	HistorySize int
}

// Task is a unit of work executed by the engine. Tasks run exactly once;
// a failed task is recorded, never retried.
type Task struct {
	ID      string
	Name    string
	Timeout time.Duration
	Run     func(ctx context.Context) error

	// ConcurrencyLimit caps concurrent executions sharing ConcurrencyKey
	// (or Name when the key is empty). 0 disables group limiting.
	ConcurrencyKey   string
	ConcurrencyLimit int

	// Detached tasks skip the queue and start at once on their own
	// supervised goroutine, so they are never held back by busy workers.
	// They still count toward Drain, Stop and the history. Ignored when
	// ConcurrencyLimit is set.
	Detached bool
}

type HistoryItem struct {
	ID         string
	Name       string
	Started    time.Time
	QueueDelay time.Duration
	Duration   time.Duration
	Error      string
}

// TaskEvent is emitted on the event bus for task lifecycle events.
type TaskEvent struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Started    time.Time     `json:"started"`
	QueueDelay time.Duration `json:"queue_delay"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

// Snapshot is a lightweight view for diagnostics.
type Snapshot struct {
	Enabled  bool
	Workers  int
	QueueLen int
	QueueCap int
	InFlight int
	Pending  int

	Dropped uint64

	History []HistoryItem
}
