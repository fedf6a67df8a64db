package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"moodybell/internal/activity"
	"moodybell/internal/bell"
	"moodybell/internal/calendar"
	"moodybell/internal/clock"
	logx "moodybell/pkg/logx"
)

// Config controls the scheduler (trigger) service.
type Config struct {
	Enabled  bool
	Timezone string // IANA TZ, e.g. "America/Chicago"
	// Grace is how late a firing may run and still ring. 0 means calendar.DefaultGrace.
	Grace time.Duration
}

// Ringer is the executor entry point used on every firing.
type Ringer interface {
	RingAsync(ctx context.Context, n int) (bell.Outcome, error)
}

// Recorder is the activity trail.
type Recorder interface {
	Record(message string, sev activity.Severity) activity.Entry
}

type registered struct {
	trigger calendar.Trigger
	entryID cron.EntryID
}

type Service struct {
	mu sync.Mutex

	log    logx.Logger
	cfg    Config
	loc    *time.Location
	clk    clock.Clock
	ringer Ringer
	trail  Recorder

	c        *cron.Cron
	triggers []registered
	// released is closed by Stop so the ctx watcher of the current run exits.
	released chan struct{}

	// graceNs is read on the cron goroutine without s.mu; restart holds s.mu
	// while waiting for running jobs.
	graceNs atomic.Int64

	// fireTimeout bounds the mute lookup done on each firing.
	fireTimeout time.Duration
}

// TriggerInfo is one registered trigger with its fire times.
type TriggerInfo struct {
	ScheduleID int64     `json:"schedule_id"`
	NumRings   int       `json:"num_rings"`
	DayOfWeek  string    `json:"day_of_week"`
	Hour       int       `json:"hour"`
	Minute     int       `json:"minute"`
	Next       time.Time `json:"next"`
	Prev       time.Time `json:"prev,omitempty"`
}

type Snapshot struct {
	Enabled  bool
	Running  bool
	Timezone string
	Grace    time.Duration
	Triggers []TriggerInfo
}
