// Package bell owns the manual mute flag and turns ring requests into pulse
// sequences on the hardware sink.
//
// Every request is classified once, up front. A suppressed request is logged
// and never reaches a worker; an armed one runs to completion even if the
// mute state changes while it is ringing.
package bell

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"moodybell/internal/activity"
	"moodybell/internal/clock"
	"moodybell/internal/hardware"
	"moodybell/internal/model"
	"moodybell/internal/task/engine"
	logx "moodybell/pkg/logx"
)

const (
	DefaultPulse = 100 * time.Millisecond
	DefaultRest  = 2900 * time.Millisecond

	taskName = "bell.ring"
)

type State int

const (
	Armed State = iota
	SuppressedManual
	SuppressedSchedule
	// CheckFailed means the mute windows could not be read; the ring is skipped.
	CheckFailed
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case SuppressedManual:
		return "suppressed_manual"
	case SuppressedSchedule:
		return "suppressed_schedule"
	case CheckFailed:
		return "check_failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Outcome describes what happened to a ring request.
type Outcome struct {
	State    State              `json:"state"`
	NumRings int                `json:"num_rings"`
	Windows  []model.MuteWindow `json:"active_mute_schedules,omitempty"`
	// Queued is set when RingAsync handed the sequence to a worker.
	Queued bool `json:"queued"`
}

// Suppressed reports whether the request was muted.
func (o Outcome) Suppressed() bool { return o.State != Armed }

// Muter reports the mute windows silencing the bell at now.
type Muter interface {
	ActiveWindows(ctx context.Context, now time.Time) ([]model.MuteWindow, error)
}

// Runner accepts sequences for background execution.
type Runner interface {
	Enqueue(t engine.Task) error
}

// Recorder is the activity trail.
type Recorder interface {
	Record(message string, sev activity.Severity) activity.Entry
}

type Config struct {
	Pulse time.Duration
	Rest  time.Duration
	// SingleFlight serializes sequences so two rings never overlap.
	SingleFlight bool
}

type Executor struct {
	cfg    Config
	clk    clock.Clock
	sink   hardware.Sink
	mute   Muter
	runner Runner
	trail  Recorder
	log    logx.Logger

	manual  atomic.Bool
	ringing atomic.Int32
}

func New(cfg Config, clk clock.Clock, sink hardware.Sink, mute Muter, runner Runner, trail Recorder, log logx.Logger) *Executor {
	if cfg.Pulse <= 0 {
		cfg.Pulse = DefaultPulse
	}
	if cfg.Rest < 0 {
		cfg.Rest = 0
	} else if cfg.Rest == 0 {
		cfg.Rest = DefaultRest
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Executor{
		cfg:    cfg,
		clk:    clk,
		sink:   sink,
		mute:   mute,
		runner: runner,
		trail:  trail,
		log:    log.With(logx.String("comp", "bell")),
	}
}

// SetManual sets the manual mute flag.
func (e *Executor) SetManual(muted bool) { e.manual.Store(muted) }

// Manual reports the manual mute flag.
func (e *Executor) Manual() bool { return e.manual.Load() }

// Ringing reports how many sequences are in progress.
func (e *Executor) Ringing() int { return int(e.ringing.Load()) }

// Toll is the wall-clock length of one pulse plus its rest.
func (e *Executor) Toll() time.Duration { return e.cfg.Pulse + e.cfg.Rest }

// Sink is the hardware the executor drives.
func (e *Executor) Sink() hardware.Sink { return e.sink }

// Classify decides whether a ring at now may proceed. Manual mute wins over
// scheduled windows and is decided without reading the store, so the windows
// are only returned when the manual flag is off.
func (e *Executor) Classify(ctx context.Context, now time.Time) (State, []model.MuteWindow, error) {
	if e.manual.Load() {
		return SuppressedManual, nil, nil
	}
	windows, err := e.mute.ActiveWindows(ctx, now)
	if err != nil {
		return CheckFailed, nil, err
	}
	if len(windows) > 0 {
		return SuppressedSchedule, windows, nil
	}
	return Armed, windows, nil
}

// Ring classifies and, when armed, runs the sequence on the calling goroutine.
func (e *Executor) Ring(ctx context.Context, n int) (Outcome, error) {
	out, err := e.admit(ctx, n)
	if err != nil || out.Suppressed() {
		return out, err
	}
	e.sequence(n)
	return out, nil
}

// RingAsync classifies synchronously and hands armed sequences to the
// runner. It returns as soon as the sequence is queued.
func (e *Executor) RingAsync(ctx context.Context, n int) (Outcome, error) {
	out, err := e.admit(ctx, n)
	if err != nil || out.Suppressed() {
		return out, err
	}

	t := engine.Task{
		Name: taskName,
		Run: func(context.Context) error {
			e.sequence(n)
			return nil
		},
	}
	if e.cfg.SingleFlight {
		t.ConcurrencyLimit = 1
	} else {
		t.Detached = true
	}
	if err := e.runner.Enqueue(t); err != nil {
		e.trail.Record(fmt.Sprintf("Ring request dropped (%d rings): %v", n, err), activity.Error)
		return out, fmt.Errorf("enqueue ring: %w", err)
	}
	out.Queued = true
	return out, nil
}

func (e *Executor) admit(ctx context.Context, n int) (Outcome, error) {
	if n < 1 {
		return Outcome{}, &model.ValidationError{Field: "num_rings", Reason: fmt.Sprintf("must be positive, got %d", n)}
	}
	state, windows, err := e.Classify(ctx, e.clk.Now())
	out := Outcome{State: state, NumRings: n, Windows: windows}
	if err != nil {
		e.trail.Record(fmt.Sprintf("Mute check failed - skipped %d rings: %v", n, err), activity.Error)
		return out, fmt.Errorf("classify ring: %w", err)
	}
	switch state {
	case SuppressedManual:
		e.trail.Record(fmt.Sprintf("Bell muted (manual) - skipped %d rings", n), activity.Warning)
	case SuppressedSchedule:
		e.trail.Record(fmt.Sprintf("Bell muted (scheduled) - skipped %d rings", n), activity.Warning)
	}
	return out, nil
}

// sequence drives n pulses. It is not interruptible.
func (e *Executor) sequence(n int) {
	e.ringing.Add(1)
	defer e.ringing.Add(-1)

	e.trail.Record(fmt.Sprintf("Ringing bell %d times", n), activity.Success)
	start := e.clk.Now()
	for i := 0; i < n; i++ {
		e.sink.Activate()
		e.clk.Sleep(e.cfg.Pulse)
		e.sink.Deactivate()
		e.clk.Sleep(e.cfg.Rest)
	}
	e.log.Debug("ring sequence complete",
		logx.Int("rings", n),
		logx.String("sink", e.sink.Name()),
		logx.Duration("took", e.clk.Now().Sub(start)),
	)
}
