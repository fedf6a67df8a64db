package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"moodybell/internal/activity"
	"moodybell/internal/bell"
	"moodybell/internal/clock"
	"moodybell/internal/config"
	"moodybell/internal/control"
	"moodybell/internal/eventbus"
	"moodybell/internal/hardware"
	"moodybell/internal/httpapi"
	"moodybell/internal/mute"
	"moodybell/internal/runtime/supervisor"
	"moodybell/internal/storage"
	"moodybell/internal/task/engine"
	"moodybell/internal/task/scheduler"
	logx "moodybell/pkg/logx"
	"moodybell/pkg/systemd"
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus
	clk  *clock.Real

	store    storage.Store
	sink     hardware.Sink
	trail    *activity.Log
	resolver *mute.Resolver
	engine   *engine.Service
	exec     *bell.Executor
	sched    *scheduler.Service
	ctl      *control.Service
	http     *httpapi.Server
	sd       *systemd.Notifier

	seed bool
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLoggingConfig(cfg))
	log = log.With(logx.String("comp", "app"))
	gin.SetMode(gin.ReleaseMode)

	loc, err := clock.LoadLocation(strings.TrimSpace(cfg.Scheduler.Timezone))
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: %w", err)
	}
	clk := clock.NewReal(loc)
	bus := eventbus.New()

	sc, err := mapStorageConfig(cfg)
	if err != nil {
		return nil, err
	}
	sc.Location = loc
	store, err := storage.Open(sc, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	log.Info("storage enabled", logx.String("driver", sc.Driver))

	hc, err := mapHardwareConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	sink := hardware.Open(hc, log)

	trail := activity.New(activitySize(cfg), clk, log)
	trail.AttachBus(bus)

	engCfg, err := mapTaskEngineConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	engineSvc := engine.New(engCfg, log.With(logx.String("comp", "taskengine")), bus)

	resolver := mute.NewResolver(store)
	bc, err := mapBellConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	exec := bell.New(bc, clk, sink, resolver, engineSvc, trail, log)

	schedCfg, err := mapSchedulerConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	sched := scheduler.New(schedCfg, clk, exec, trail, log)

	ctl := control.New(mapControlConfig(cfg), control.Deps{
		Store:    store,
		Resolver: resolver,
		Executor: exec,
		Triggers: sched,
		Trail:    trail,
		Clock:    clk,
		Bus:      bus,
		Log:      log,
	})

	httpCfg, err := mapHTTPConfig(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{
		cfgPath:  cfgPath,
		cfgm:     cfgm,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		clk:      clk,
		store:    store,
		sink:     sink,
		trail:    trail,
		resolver: resolver,
		engine:   engineSvc,
		exec:     exec,
		sched:    sched,
		ctl:      ctl,
		http:     httpapi.New(httpCfg, ctl, bus, log),
		sd:       systemd.New(cfg.Systemd.Notify, log),
		seed:     cfg.Storage.SeedDefaults,
	}, nil
}

// Control exposes the command surface, mostly for tests.
func (a *App) Control() *control.Service { return a.ctl }

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if _, err := mapSchedulerConfig(cfg); err != nil {
			return err
		}
		_, err := clock.LoadLocation(strings.TrimSpace(cfg.Scheduler.Timezone))
		return err
	})

	// The engine outlives the app context so Stop can drain queued rings.
	a.engine.Start(context.WithoutCancel(ctx))
	if err := a.ctl.Boot(a.sup.Context(), a.seed); err != nil {
		return err
	}
	a.sched.Start(a.sup.Context())

	a.sup.Go("http", a.http.Run)
	a.sup.Go("systemd.watchdog", a.sd.Watchdog)
	a.sup.Go("config.watch", a.cfgm.Watch)
	a.startReload()
	a.startEventLog()

	a.sd.Ready()
	a.sd.Status("ringing on schedule")
	a.log.Info("app started", logx.String("tz", a.clk.Location().String()))
	return nil
}

// startEventLog mirrors bus events to the debug log.
func (a *App) startEventLog() {
	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				if e.Type == eventbus.ActivityRecorded {
					continue
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			}
		}
	})
}

// startReload fans config changes out to the components that apply them live.
func (a *App) startReload() {
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		lastApplied := a.cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				newCfg = drainLatest(sub, newCfg)
				a.applyConfig(lastApplied, newCfg)
				lastApplied = newCfg
			}
		}
	})
}

// drainLatest coalesces bursts, keeping only the newest config.
func drainLatest(sub <-chan *config.Config, cur *config.Config) *config.Config {
	for {
		select {
		case newer, ok := <-sub:
			if !ok {
				return cur
			}
			if newer != nil {
				cur = newer
			}
		default:
			return cur
		}
	}
}

func (a *App) applyConfig(oldCfg, newCfg *config.Config) {
	a.sd.Reloading()
	defer a.sd.Ready()

	sections, attrs := config.SummarizeConfigChange(oldCfg, newCfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if restart := config.NeedsRestart(sections); len(restart) > 0 {
		a.log.Warn("config sections changed; restart required for them to take effect",
			logx.String("sections", strings.Join(restart, ",")))
	}

	a.logs.Apply(mapLoggingConfig(newCfg))

	schedCfg, err := mapSchedulerConfig(newCfg)
	if err != nil {
		a.log.Warn("invalid scheduler config; keeping previous", logx.Err(err))
	} else {
		if loc, err := clock.LoadLocation(schedCfg.Timezone); err == nil {
			a.clk.SetLocation(loc)
		}
		wasEnabled := a.sched.Enabled()
		a.sched.Apply(schedCfg)
		switch {
		case wasEnabled && !schedCfg.Enabled:
			a.log.Info("scheduler disabled via config")
			stopCtx, cancel := context.WithTimeout(a.sup.Context(), 3*time.Second)
			a.sched.Stop(stopCtx)
			cancel()
		case !wasEnabled && schedCfg.Enabled:
			a.log.Info("scheduler enabled via config")
			a.sched.Start(a.sup.Context())
		}
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))
	a.sd.Stopping()

	// Cancel first so the HTTP server and background loops start unwinding.
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("scheduler", 2*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	// in-flight sequences finish; a sequence is never cut off mid-pulse
	step("taskengine", 2*time.Minute, func(c context.Context) error {
		err := a.engine.Drain(c)
		a.engine.Stop(c)
		return err
	})
	step("hardware", time.Second, func(context.Context) error {
		a.sink.Deactivate()
		return a.sink.Close()
	})
	step("storage", time.Second, func(context.Context) error { return a.store.Close() })
	step("supervisor", 3*time.Second, func(c context.Context) error { return a.sup.Wait(c) })

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
