package storage

import (
	"context"
	"fmt"
	"time"

	"moodybell/internal/model"
)

// DefaultSchedules is the factory ring plan: four rings a day Monday through
// Saturday and a single long peal on Sunday morning.
func DefaultSchedules() []model.Schedule {
	weekdays := []model.Weekday{
		model.Monday, model.Tuesday, model.Wednesday,
		model.Thursday, model.Friday, model.Saturday,
	}
	slots := []struct{ hour, minute, rings int }{
		{9, 0, 9},
		{12, 0, 12},
		{15, 0, 3},
		{18, 0, 6},
	}
	out := make([]model.Schedule, 0, len(weekdays)*len(slots)+1)
	for _, d := range weekdays {
		for _, sl := range slots {
			out = append(out, model.Schedule{DayOfWeek: d, Hour: sl.hour, Minute: sl.minute, NumRings: sl.rings, Enabled: true})
		}
	}
	return append(out, model.Schedule{DayOfWeek: model.Sunday, Hour: 9, Minute: 45, NumRings: 15, Enabled: true})
}

// DefaultWindows returns the recurring 20:00-06:00 quiet hours anchored on
// the date of now.
func DefaultWindows(now time.Time) []model.MuteWindow {
	y, m, d := now.Date()
	loc := now.Location()
	return []model.MuteWindow{{
		Name:        "Nighttime Quiet Hours",
		Start:       time.Date(y, m, d, 20, 0, 0, 0, loc),
		End:         time.Date(y, m, d+1, 6, 0, 0, 0, loc),
		Enabled:     true,
		IsRecurring: true,
	}}
}

// SeedResult reports how many records Seed created.
type SeedResult struct {
	Schedules int
	Windows   int
}

// Seed fills empty tables with the defaults. Tables that already hold rows
// are left alone.
func Seed(ctx context.Context, st Store, now time.Time) (SeedResult, error) {
	var res SeedResult

	n, err := st.CountSchedules(ctx)
	if err != nil {
		return res, err
	}
	if n == 0 {
		for _, s := range DefaultSchedules() {
			if _, err := st.CreateSchedule(ctx, s); err != nil {
				return res, fmt.Errorf("seed schedule %s: %w", s, err)
			}
			res.Schedules++
		}
	}

	n, err = st.CountWindows(ctx)
	if err != nil {
		return res, err
	}
	if n == 0 {
		for _, w := range DefaultWindows(now) {
			if _, err := st.CreateWindow(ctx, w); err != nil {
				return res, fmt.Errorf("seed mute window %q: %w", w.Name, err)
			}
			res.Windows++
		}
	}
	return res, nil
}
