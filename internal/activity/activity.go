// Package activity keeps the bounded in-memory trail of bell events shown on
// the status page. Entries are also mirrored into the structured log.
package activity

import (
	"sync"
	"time"

	"moodybell/internal/clock"
	"moodybell/internal/eventbus"
	logx "moodybell/pkg/logx"
)

// DefaultSize is the number of entries kept when no size is configured.
const DefaultSize = 100

type Severity string

const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Entry is one activity record.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"type"`
}

// Log is an append-only FIFO bounded to the most recent Size entries.
type Log struct {
	mu      sync.Mutex
	size    int
	entries []Entry

	clk clock.Clock
	log logx.Logger
	bus eventbus.Bus
}

func New(size int, clk clock.Clock, log logx.Logger) *Log {
	if size <= 0 {
		size = DefaultSize
	}
	if clk == nil {
		clk = clock.NewReal(nil)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Log{size: size, clk: clk, log: log, entries: make([]Entry, 0, size)}
}

// AttachBus makes every new entry also go out as an ActivityRecorded event.
// Call before the log is shared.
func (l *Log) AttachBus(bus eventbus.Bus) { l.bus = bus }

// Record appends an entry stamped with the current time and evicts the oldest
// entries beyond the bound. Append and eviction happen under one lock.
func (l *Log) Record(message string, sev Severity) Entry {
	e := Entry{Timestamp: l.clk.Now(), Message: message, Severity: sev}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	if len(l.entries) > l.size {
		l.entries = l.entries[len(l.entries)-l.size:]
	}
	l.mu.Unlock()

	l.log.Log(sev.level(), message, logx.String("severity", string(sev)))
	if l.bus != nil {
		l.bus.Publish(eventbus.Event{Type: eventbus.ActivityRecorded, Time: e.Timestamp, Data: e})
	}
	return e
}

func (l *Log) Info(message string)    { l.Record(message, Info) }
func (l *Log) Success(message string) { l.Record(message, Success) }
func (l *Log) Warning(message string) { l.Record(message, Warning) }
func (l *Log) Error(message string)   { l.Record(message, Error) }

// Recent returns the most recent limit entries in chronological order.
// limit <= 0 returns everything retained.
func (l *Log) Recent(limit int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, limit)
	copy(out, l.entries[n-limit:])
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (s Severity) level() logx.Level {
	switch s {
	case Warning:
		return logx.LevelWarn
	case Error:
		return logx.LevelError
	default:
		return logx.LevelInfo
	}
}
