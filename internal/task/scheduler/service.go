package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"moodybell/internal/calendar"
	"moodybell/internal/clock"
	logx "moodybell/pkg/logx"
)

func New(cfg Config, clk clock.Clock, ringer Ringer, trail Recorder, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		cfg:         cfg,
		log:         log.With(logx.String("comp", "scheduler")),
		clk:         clk,
		ringer:      ringer,
		trail:       trail,
		fireTimeout: 10 * time.Second,
	}
	s.setGrace(cfg.Grace)
	return s
}

// Enabled reports the current config flag.
func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

func (s *Service) setGrace(d time.Duration) {
	if d <= 0 {
		d = calendar.DefaultGrace
	}
	s.graceNs.Store(int64(d))
}

func (s *Service) grace() time.Duration { return time.Duration(s.graceNs.Load()) }

// Apply swaps config at runtime. A timezone change restarts cron in the new
// location with the same triggers.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldTZ := strings.TrimSpace(s.cfg.Timezone)
	newTZ := strings.TrimSpace(cfg.Timezone)
	s.cfg = cfg
	s.setGrace(cfg.Grace)

	if s.c == nil {
		return
	}
	if oldTZ != newTZ {
		s.log.Info("timezone changed, restarting cron", logx.String("from", oldTZ), logx.String("to", newTZ))
		s.restartLocked()
	}
}

// Start starts cron triggering with the registered triggers. Triggering
// stops on its own when ctx is done.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	if !s.cfg.Enabled {
		s.log.Info("scheduler disabled")
		return
	}
	s.startLocked()
	if ctx.Done() != nil {
		s.released = make(chan struct{})
		go s.stopOnDone(ctx, s.released)
	}
	s.log.Info("service started", logx.String("tz", s.loc.String()), logx.Int("triggers", len(s.triggers)))
}

func (s *Service) stopOnDone(ctx context.Context, released <-chan struct{}) {
	select {
	case <-ctx.Done():
		s.log.Debug("context done, stopping cron", logx.Err(ctx.Err()))
		s.Stop(context.Background())
	case <-released:
	}
}

// Stop stops cron triggering. Rings already handed to the executor are not
// affected. Registered triggers are kept for the next Start.
func (s *Service) Stop(ctx context.Context) {
	start := time.Now()
	s.mu.Lock()
	c := s.c
	s.c = nil
	if s.released != nil {
		close(s.released)
		s.released = nil
	}
	s.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
		}
	}
	s.log.Info("service stopped", logx.Duration("took", time.Since(start)))
}

func (s *Service) startLocked() {
	loc, err := clock.LoadLocation(s.cfg.Timezone)
	if err != nil {
		s.log.Warn("invalid timezone, using local", logx.String("tz", s.cfg.Timezone), logx.Err(err))
		loc = time.Local
	}
	s.loc = loc

	clog := logx.CronLogger(s.log)
	s.c = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog)),
	)
	for i := range s.triggers {
		s.addLocked(&s.triggers[i])
	}
	s.c.Start()
}

func (s *Service) restartLocked() {
	if s.c != nil {
		<-s.c.Stop().Done()
		s.c = nil
	}
	s.startLocked()
}

func (s *Service) addLocked(r *registered) {
	t := r.trigger
	r.entryID = s.c.Schedule(t, cron.FuncJob(func() { s.Fire(t) }))
}
