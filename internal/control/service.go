package control

import (
	"context"
	"fmt"
	"sync"
	"time"

	"moodybell/internal/activity"
	"moodybell/internal/bell"
	"moodybell/internal/calendar"
	"moodybell/internal/clock"
	"moodybell/internal/eventbus"
	"moodybell/internal/model"
	"moodybell/internal/mute"
	"moodybell/internal/storage"
	"moodybell/internal/task/scheduler"
	logx "moodybell/pkg/logx"
)

// DefaultManualRings is used when a manual ring request names no count.
const DefaultManualRings = 15

// Triggers is the scheduler side of a rebuild.
type Triggers interface {
	Rebuild(triggers []calendar.Trigger)
	NextRings(n int) []scheduler.TriggerInfo
}

type Config struct {
	ManualDefaultRings int
	// NextRings caps the upcoming rings listed in Status.
	NextRings int
}

type Deps struct {
	Store    storage.Store
	Resolver *mute.Resolver
	Executor *bell.Executor
	Triggers Triggers
	Trail    *activity.Log
	Clock    clock.Clock
	Bus      eventbus.Bus
	Log      logx.Logger
}

type Service struct {
	mu sync.Mutex

	cfg      Config
	store    storage.Store
	resolver *mute.Resolver
	exec     *bell.Executor
	triggers Triggers
	trail    *activity.Log
	clk      clock.Clock
	bus      eventbus.Bus
	log      logx.Logger
}

func New(cfg Config, d Deps) *Service {
	if cfg.ManualDefaultRings <= 0 {
		cfg.ManualDefaultRings = DefaultManualRings
	}
	if cfg.NextRings <= 0 {
		cfg.NextRings = 5
	}
	log := d.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:      cfg,
		store:    d.Store,
		resolver: d.Resolver,
		exec:     d.Executor,
		triggers: d.Triggers,
		trail:    d.Trail,
		clk:      d.Clock,
		bus:      d.Bus,
		log:      log.With(logx.String("comp", "control")),
	}
}

// ManualDefaultRings is the count used when a ring request names none.
func (s *Service) ManualDefaultRings() int { return s.cfg.ManualDefaultRings }

// Location is the zone naive timestamps are read in.
func (s *Service) Location() *time.Location { return s.clk.Location() }

// Boot seeds an empty store when asked, loads the triggers and writes the
// startup entries to the activity log.
func (s *Service) Boot(ctx context.Context, seed bool) error {
	if seed {
		res, err := storage.Seed(ctx, s.store, s.clk.Now())
		if err != nil {
			return fmt.Errorf("seed defaults: %w", err)
		}
		if res.Schedules > 0 || res.Windows > 0 {
			s.log.Info("default records created", logx.Int("schedules", res.Schedules), logx.Int("mute_windows", res.Windows))
		}
	}

	if err := s.Rebuild(ctx); err != nil {
		return err
	}
	nSched, err := s.store.CountSchedules(ctx)
	if err != nil {
		return err
	}
	nWin, err := s.store.CountWindows(ctx)
	if err != nil {
		return err
	}

	mode := "Simulation"
	if s.exec.Sink().Available() {
		mode = "Hardware"
	}
	s.trail.Record("Moody Bell system started", activity.Success)
	s.trail.Record(fmt.Sprintf("GPIO mode: %s", mode), activity.Info)
	s.trail.Record(fmt.Sprintf("Loaded %d schedules", nSched), activity.Info)
	s.trail.Record(fmt.Sprintf("Loaded %d mute schedules", nWin), activity.Info)
	return nil
}

// Rebuild recompiles every stored schedule into the scheduler.
func (s *Service) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked(ctx)
}

func (s *Service) rebuildLocked(ctx context.Context) error {
	all, err := s.store.ListSchedules(ctx)
	if err != nil {
		return fmt.Errorf("rebuild triggers: %w", err)
	}
	triggers := calendar.Rebuild(all, func(sc model.Schedule, err error) {
		s.log.Debug("schedule skipped", logx.Int64("schedule_id", sc.ID), logx.Err(err))
	})
	s.triggers.Rebuild(triggers)
	s.publish(eventbus.TriggersRebuilt, len(triggers))
	return nil
}

func (s *Service) publish(typ string, data any) {
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: typ, Time: s.clk.Now(), Data: data})
	}
}
