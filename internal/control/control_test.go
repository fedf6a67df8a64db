package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"moodybell/internal/activity"
	"moodybell/internal/bell"
	"moodybell/internal/calendar"
	"moodybell/internal/clock"
	"moodybell/internal/eventbus"
	"moodybell/internal/hardware"
	"moodybell/internal/model"
	"moodybell/internal/mute"
	"moodybell/internal/storage"
	"moodybell/internal/task/engine"
	"moodybell/internal/task/scheduler"
	logx "moodybell/pkg/logx"
)

type fakeTriggers struct {
	mu       sync.Mutex
	rebuilds int
	last     []calendar.Trigger
}

func (f *fakeTriggers) Rebuild(tr []calendar.Trigger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebuilds++
	f.last = tr
}

func (f *fakeTriggers) NextRings(int) []scheduler.TriggerInfo { return nil }

type capRunner struct {
	mu    sync.Mutex
	tasks []engine.Task
}

func (c *capRunner) Enqueue(t engine.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, t)
	return nil
}

func (c *capRunner) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

type fixture struct {
	svc      *Service
	store    storage.Store
	clk      *clock.Fake
	trail    *activity.Log
	triggers *fakeTriggers
	runner   *capRunner
	resolver *mute.Resolver
	exec     *bell.Executor
}

// Monday 2024-01-01 10:00 UTC
var monday10 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(monday10)
	st := storage.NewMemory()
	trail := activity.New(100, clk, logx.Nop())
	res := mute.NewResolver(st)
	runner := &capRunner{}
	exec := bell.New(bell.Config{}, clk, hardware.NewSim(logx.Nop()), res, runner, trail, logx.Nop())
	tr := &fakeTriggers{}
	svc := New(Config{}, Deps{
		Store:    st,
		Resolver: res,
		Executor: exec,
		Triggers: tr,
		Trail:    trail,
		Clock:    clk,
		Bus:      eventbus.New(),
	})
	return &fixture{svc: svc, store: st, clk: clk, trail: trail, triggers: tr, runner: runner, resolver: res, exec: exec}
}

func (f *fixture) lastMessage(t *testing.T) string {
	t.Helper()
	e := f.trail.Recent(1)
	if len(e) == 0 {
		t.Fatalf("activity log is empty")
	}
	return e[0].Message
}

func TestBootSeedsAndLogs(t *testing.T) {
	f := newFixture(t)
	if err := f.svc.Boot(context.Background(), true); err != nil {
		t.Fatalf("Boot: %v", err)
	}
	if f.triggers.rebuilds != 1 || len(f.triggers.last) != len(storage.DefaultSchedules()) {
		t.Fatalf("rebuilds=%d triggers=%d", f.triggers.rebuilds, len(f.triggers.last))
	}
	msgs := map[string]bool{}
	for _, e := range f.trail.Recent(0) {
		msgs[e.Message] = true
	}
	for _, want := range []string{"Moody Bell system started", "GPIO mode: Simulation", "Loaded 25 schedules"} {
		if !msgs[want] {
			t.Fatalf("missing entry %q in %v", want, msgs)
		}
	}
}

func TestScheduleCRUDRebuilds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sc, err := f.svc.CreateSchedule(ctx, model.Schedule{DayOfWeek: "MONDAY", Hour: 9, Minute: 0, NumRings: 9, Enabled: true})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if sc.ID == 0 || sc.DayOfWeek != model.Monday {
		t.Fatalf("created = %+v", sc)
	}
	if f.triggers.rebuilds != 1 || len(f.triggers.last) != 1 {
		t.Fatalf("after create rebuilds=%d triggers=%d", f.triggers.rebuilds, len(f.triggers.last))
	}

	off := false
	up, err := f.svc.UpdateSchedule(ctx, sc.ID, model.SchedulePatch{Enabled: &off})
	if err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	if up.Enabled || up.Hour != 9 {
		t.Fatalf("partial update lost fields: %+v", up)
	}
	if len(f.triggers.last) != 0 {
		t.Fatalf("disabled schedule still triggers")
	}

	if err := f.svc.DeleteSchedule(ctx, sc.ID); err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}
	if err := f.svc.DeleteSchedule(ctx, sc.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestCreateScheduleRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateSchedule(context.Background(), model.Schedule{DayOfWeek: model.Monday, Hour: 24, NumRings: 1})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("err = %v", err)
	}
	if f.triggers.rebuilds != 0 {
		t.Fatalf("invalid create rebuilt triggers")
	}
}

func TestWindowCRUDLogs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, err := f.svc.CreateWindow(ctx, model.MuteWindow{
		Name:        " Lunch ",
		Start:       time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC),
		Enabled:     true,
		IsRecurring: true,
	})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	if got := f.lastMessage(t); got != "Mute schedule created: Lunch" {
		t.Fatalf("entry = %q", got)
	}

	name := "Long lunch"
	if _, err := f.svc.UpdateWindow(ctx, w.ID, model.WindowPatch{Name: &name}); err != nil {
		t.Fatalf("UpdateWindow: %v", err)
	}
	if got := f.lastMessage(t); got != "Mute schedule updated: Long lunch" {
		t.Fatalf("entry = %q", got)
	}

	if err := f.svc.DeleteWindow(ctx, w.ID); err != nil {
		t.Fatalf("DeleteWindow: %v", err)
	}
	if got := f.lastMessage(t); got != "Mute schedule deleted: Long lunch" {
		t.Fatalf("entry = %q", got)
	}
	if _, err := f.svc.UpdateWindow(ctx, w.ID, model.WindowPatch{Name: &name}); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("update of deleted window err = %v", err)
	}
}

func addActiveWindow(t *testing.T, f *fixture, name string) model.MuteWindow {
	t.Helper()
	w, err := f.store.CreateWindow(context.Background(), model.MuteWindow{
		Name:        name,
		Start:       time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
		Enabled:     true,
		IsRecurring: true,
	})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	return w
}

func TestSetMuteUnmuteOverridesActiveWindows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := addActiveWindow(t, f, "Assembly")

	if _, err := f.svc.SetMute(ctx, true, false); err != nil {
		t.Fatalf("SetMute(true): %v", err)
	}
	if got := f.lastMessage(t); got != "Mute enabled (manual)" {
		t.Fatalf("entry = %q", got)
	}

	res, err := f.svc.SetMute(ctx, false, true)
	if err != nil {
		t.Fatalf("SetMute(false): %v", err)
	}
	if res.Muted || len(res.Overridden) != 1 || res.Overridden[0].ID != w.ID {
		t.Fatalf("result = %+v", res)
	}
	entries := f.trail.Recent(2)
	if entries[0].Message != "Mute schedule overridden: Assembly" || entries[0].Severity != activity.Warning {
		t.Fatalf("override entry = %+v", entries[0])
	}
	if entries[1].Message != "Mute disabled (manual)" {
		t.Fatalf("mute entry = %+v", entries[1])
	}

	st, err := f.svc.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Muted || st.MutedBySchedule || st.State != bell.Armed {
		t.Fatalf("status = %+v", st)
	}
}

func TestSetMuteWithoutOverrideKeepsWindow(t *testing.T) {
	f := newFixture(t)
	addActiveWindow(t, f, "Assembly")

	if _, err := f.svc.SetMute(context.Background(), false, false); err != nil {
		t.Fatalf("SetMute: %v", err)
	}
	st, err := f.svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.MutedBySchedule || st.State != bell.SuppressedSchedule || len(st.ActiveWindows) != 1 {
		t.Fatalf("status = %+v", st)
	}
}

func TestStatusUnderManualMuteListsWindows(t *testing.T) {
	f := newFixture(t)
	addActiveWindow(t, f, "Assembly")
	f.exec.SetManual(true)

	st, err := f.svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !st.Muted || !st.MutedBySchedule || st.State != bell.SuppressedManual || len(st.ActiveWindows) != 1 {
		t.Fatalf("status = %+v", st)
	}
}

func TestOverrideWindow(t *testing.T) {
	f := newFixture(t)
	w := addActiveWindow(t, f, "Assembly")

	if _, err := f.svc.OverrideWindow(context.Background(), w.ID+100); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("unknown id err = %v", err)
	}
	if _, err := f.svc.OverrideWindow(context.Background(), w.ID); err != nil {
		t.Fatalf("OverrideWindow: %v", err)
	}
	muted, err := f.resolver.IsMuted(context.Background(), f.clk.Now())
	if err != nil || muted {
		t.Fatalf("IsMuted = %v, %v", muted, err)
	}
}

func TestRingNow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.svc.RingNow(ctx, 0)
	if err != nil {
		t.Fatalf("RingNow: %v", err)
	}
	if out.NumRings != DefaultManualRings || !out.Queued {
		t.Fatalf("outcome = %+v", out)
	}
	if got := f.lastMessage(t); got != "Manual ring requested (15 rings)" {
		t.Fatalf("entry = %q", got)
	}

	f.exec.SetManual(true)
	out, err = f.svc.RingNow(ctx, 3)
	if err != nil {
		t.Fatalf("RingNow muted: %v", err)
	}
	if out.State != bell.SuppressedManual || out.Queued {
		t.Fatalf("muted outcome = %+v", out)
	}
	if got := f.lastMessage(t); got != "Bell muted (manual) - skipped 3 rings" {
		t.Fatalf("entry = %q", got)
	}
	if f.runner.Len() != 1 {
		t.Fatalf("queued tasks = %d", f.runner.Len())
	}
}

func TestLogsLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 10; i++ {
		f.trail.Info("x")
	}
	if got := len(f.svc.Logs(3)); got != 3 {
		t.Fatalf("Logs(3) = %d", got)
	}
}
