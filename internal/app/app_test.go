package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"moodybell/internal/config"
	"moodybell/internal/model"
	"moodybell/internal/storage"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "bell.json")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestAppStartStop(t *testing.T) {
	p := writeConfig(t, `{
		"http": {"addr": "127.0.0.1:0"},
		"logging": {"level": "error"},
		"scheduler": {"enabled": true, "timezone": "UTC"},
		"bell": {"pulse": "1ms", "rest": "1ms"},
		"hardware": {"driver": "sim"},
		"storage": {"driver": "memory", "seed_defaults": true}
	}`)

	a, err := NewApp(p)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	n, err := a.store.CountSchedules(ctx)
	if err != nil || n != len(storage.DefaultSchedules()) {
		t.Fatalf("seeded schedules = %d, %v", n, err)
	}
	if got := len(a.sched.Triggers()); got != n {
		t.Fatalf("triggers = %d, want %d", got, n)
	}

	// the seeded quiet hours may be active depending on when the test runs
	if _, err := a.Control().SetMute(ctx, false, true); err != nil {
		t.Fatalf("SetMute: %v", err)
	}
	if _, err := a.Control().RingNow(ctx, 2); err != nil {
		t.Fatalf("RingNow: %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := a.Stop(stopCtx, StopSignal); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if snap := a.engine.Snapshot(); snap.Pending != 0 {
		t.Fatalf("pending after stop = %d", snap.Pending)
	}

	found := false
	for _, e := range a.trail.Recent(0) {
		if e.Message == "Ringing bell 2 times" {
			found = true
		}
	}
	if !found {
		t.Fatalf("ring sequence did not run before stop")
	}
}

func TestApplyConfigSwitchesTimezone(t *testing.T) {
	p := writeConfig(t, `{
		"http": {"addr": "127.0.0.1:0"},
		"logging": {"level": "error"},
		"scheduler": {"enabled": true, "timezone": "UTC"},
		"storage": {"driver": "memory"}
	}`)
	a, err := NewApp(p)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop(context.Background(), StopSignal)

	next := *a.cfgm.Get()
	next.Scheduler.Timezone = "America/Chicago"
	a.applyConfig(a.cfgm.Get(), &next)

	if got := a.clk.Location().String(); got != "America/Chicago" {
		t.Fatalf("clock zone = %q", got)
	}
	if got := a.sched.Snapshot().Timezone; got != "America/Chicago" {
		t.Fatalf("scheduler zone = %q", got)
	}
}

func TestMapHTTPConfigConvertsRate(t *testing.T) {
	hc, err := mapHTTPConfig(&config.Config{HTTP: config.HTTPConfig{RingRatePerMin: 6}})
	if err != nil {
		t.Fatalf("mapHTTPConfig: %v", err)
	}
	if hc.RingRate != 0.1 {
		t.Fatalf("RingRate = %v", hc.RingRate)
	}
}

func TestTimezoneReloadKeepsQuietHours(t *testing.T) {
	p := writeConfig(t, `{
		"http": {"addr": "127.0.0.1:0"},
		"logging": {"level": "error"},
		"scheduler": {"enabled": true, "timezone": "America/Chicago"},
		"storage": {"driver": "file", "path": "`+filepath.Join(t.TempDir(), "bell.json")+`"}
	}`)
	a, err := NewApp(p)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer a.Stop(context.Background(), StopSignal)

	chi := a.clk.Location()
	_, err = a.Control().CreateWindow(ctx, model.MuteWindow{
		Name:        "Nighttime Quiet Hours",
		Start:       time.Date(2024, 1, 1, 20, 0, 0, 0, chi),
		End:         time.Date(2024, 1, 2, 6, 0, 0, 0, chi),
		Enabled:     true,
		IsRecurring: true,
	})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}

	next := *a.cfgm.Get()
	next.Scheduler.Timezone = "America/New_York"
	a.applyConfig(a.cfgm.Get(), &next)

	ny := a.clk.Location()
	if ny.String() != "America/New_York" {
		t.Fatalf("clock zone = %q", ny)
	}
	muted, err := a.resolver.IsMuted(ctx, time.Date(2024, 1, 3, 20, 30, 0, 0, ny))
	if err != nil || !muted {
		t.Fatalf("20:30 New York: muted=%v err=%v", muted, err)
	}
	muted, _ = a.resolver.IsMuted(ctx, time.Date(2024, 1, 3, 19, 30, 0, 0, ny))
	if muted {
		t.Fatal("quiet hours moved after the zone change")
	}
}
