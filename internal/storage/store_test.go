package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"moodybell/internal/model"
	logx "moodybell/pkg/logx"
)

var cst = time.FixedZone("CST", -6*3600)

func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	s, err := st.CreateSchedule(ctx, model.Schedule{DayOfWeek: model.Monday, Hour: 9, NumRings: 3, Enabled: true})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if s.ID == 0 {
		t.Fatalf("CreateSchedule did not assign an id")
	}
	s.NumRings = 5
	if err := st.UpdateSchedule(ctx, s); err != nil {
		t.Fatalf("UpdateSchedule: %v", err)
	}
	got, err := st.GetSchedule(ctx, s.ID)
	if err != nil || got.NumRings != 5 {
		t.Fatalf("GetSchedule = %+v, %v", got, err)
	}
	if err := st.UpdateSchedule(ctx, model.Schedule{ID: 999}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateSchedule(unknown) err = %v", err)
	}
	if _, err := st.GetSchedule(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSchedule(unknown) err = %v", err)
	}

	w, err := st.CreateWindow(ctx, model.MuteWindow{
		Name:    "Lunch",
		Start:   time.Date(2024, 1, 1, 12, 0, 0, 0, cst),
		End:     time.Date(2024, 1, 1, 13, 0, 0, 0, cst),
		Enabled: true,
	})
	if err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	gw, err := st.GetWindow(ctx, w.ID)
	if err != nil {
		t.Fatalf("GetWindow: %v", err)
	}
	if !gw.Start.Equal(w.Start) || !gw.End.Equal(w.End) || gw.Name != "Lunch" {
		t.Fatalf("GetWindow = %+v, want %+v", gw, w)
	}

	if err := st.DeleteSchedule(ctx, s.ID); err != nil {
		t.Fatalf("DeleteSchedule: %v", err)
	}
	if err := st.DeleteSchedule(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteSchedule err = %v", err)
	}
	if err := st.DeleteWindow(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteWindow(unknown) err = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMemory())
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bell.json")
	cfg := Config{Driver: "file", Path: path, Location: cst}

	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	exerciseStore(t, st)
	_ = st.Close()

	re, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer re.Close()

	ctx := context.Background()
	if n, _ := re.CountSchedules(ctx); n != 0 {
		t.Fatalf("schedules after reopen = %d, want 0", n)
	}
	ws, err := re.ListWindows(ctx)
	if err != nil || len(ws) != 1 || ws[0].Name != "Lunch" {
		t.Fatalf("windows after reopen = %+v, %v", ws, err)
	}
	if ws[0].Start.Location() != cst {
		t.Fatalf("window start not converted into configured zone: %v", ws[0].Start.Location())
	}

	// ids are never reused after a delete
	s, err := re.CreateSchedule(ctx, model.Schedule{DayOfWeek: model.AllDays, NumRings: 1})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if s.ID != 2 {
		t.Fatalf("new id = %d, want 2", s.ID)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "mongo"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("expected error for file driver without path")
	}
	if ValidDriver("mongo") || !ValidDriver("SQLite") {
		t.Fatal("ValidDriver mismatch")
	}
}

func TestSeedOnlyFillsEmptyTables(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := NewMemory()
	now := time.Date(2024, 3, 5, 14, 0, 0, 0, cst)

	res, err := Seed(ctx, st, now)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if res.Schedules != 25 || res.Windows != 1 {
		t.Fatalf("Seed = %+v, want 25 schedules and 1 window", res)
	}

	ws, _ := st.ListWindows(ctx)
	w := ws[0]
	if !w.IsRecurring || w.Start.Hour() != 20 || w.End.Hour() != 6 || w.End.Day() != 6 {
		t.Fatalf("default window = %+v", w)
	}

	res, err = Seed(ctx, st, now)
	if err != nil || res.Schedules != 0 || res.Windows != 0 {
		t.Fatalf("second Seed = %+v, %v", res, err)
	}
}

func TestDefaultSchedulesAreValid(t *testing.T) {
	t.Parallel()
	var sunday int
	for _, s := range DefaultSchedules() {
		if err := s.Validate(); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
		if s.DayOfWeek == model.Sunday {
			sunday++
			if s.Hour != 9 || s.Minute != 45 || s.NumRings != 15 {
				t.Fatalf("sunday schedule = %s", s)
			}
		}
	}
	if sunday != 1 {
		t.Fatalf("sunday schedules = %d, want 1", sunday)
	}
}
