// Package calendar turns ring schedules into weekly triggers.
//
// A Trigger answers "when is the next ring" (Next, used by the cron runner as a
// cron.Schedule), "when was the last one" (Prev) and "is a firing now still
// within the catch-up grace period" (Due). Only weekly recurrence at minute
// resolution is supported.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"moodybell/internal/model"
)

// DefaultGrace is how late a trigger may fire and still ring.
const DefaultGrace = 60 * time.Second

var (
	ErrDisabled       = errors.New("schedule disabled")
	ErrUnknownWeekday = errors.New("unknown day_of_week")
)

const allDays uint8 = 0x7f

// Trigger is a compiled schedule. ScheduleID and NumRings ride along as payload.
type Trigger struct {
	ScheduleID int64
	NumRings   int
	Day        model.Weekday
	Hour       int
	Minute     int

	days uint8 // bit i set => time.Weekday(i) fires
}

var _ cron.Schedule = Trigger{}

// Compile maps a schedule to a trigger. Disabled schedules return ErrDisabled;
// a malformed day selector returns ErrUnknownWeekday.
func Compile(s model.Schedule) (Trigger, error) {
	if !s.Enabled {
		return Trigger{}, ErrDisabled
	}
	day := s.DayOfWeek.Normalize()
	var mask uint8
	if day == model.AllDays {
		mask = allDays
	} else if wd, ok := day.TimeWeekday(); ok {
		mask = 1 << uint(wd)
	} else {
		return Trigger{}, fmt.Errorf("%w: %q", ErrUnknownWeekday, string(s.DayOfWeek))
	}
	if s.Hour < 0 || s.Hour > 23 || s.Minute < 0 || s.Minute > 59 {
		return Trigger{}, fmt.Errorf("schedule %d: time %02d:%02d out of range", s.ID, s.Hour, s.Minute)
	}
	return Trigger{
		ScheduleID: s.ID,
		NumRings:   s.NumRings,
		Day:        day,
		Hour:       s.Hour,
		Minute:     s.Minute,
		days:       mask,
	}, nil
}

// Rebuild compiles every schedule, skipping disabled ones silently and
// reporting malformed ones to onSkip (may be nil). It never fails as a whole.
func Rebuild(schedules []model.Schedule, onSkip func(s model.Schedule, err error)) []Trigger {
	out := make([]Trigger, 0, len(schedules))
	for _, s := range schedules {
		t, err := Compile(s)
		if err != nil {
			if !errors.Is(err, ErrDisabled) && onSkip != nil {
				onSkip(s, err)
			}
			continue
		}
		out = append(out, t)
	}
	return out
}

// Name is the stable registration key for the trigger.
func (t Trigger) Name() string { return fmt.Sprintf("schedule_%d", t.ScheduleID) }

func (t Trigger) String() string {
	return fmt.Sprintf("%s %s %02d:%02d (%d rings)", t.Name(), t.Day, t.Hour, t.Minute, t.NumRings)
}

func (t Trigger) matches(wd time.Weekday) bool { return t.days&(1<<uint(wd)) != 0 }

// Next returns the first fire instant strictly after now, in now's location.
func (t Trigger) Next(now time.Time) time.Time {
	if t.days == 0 {
		return time.Time{}
	}
	y, m, d := now.Date()
	for i := 0; i <= 7; i++ {
		c := time.Date(y, m, d+i, t.Hour, t.Minute, 0, 0, now.Location())
		if c.After(now) && t.matches(c.Weekday()) {
			return c
		}
	}
	return time.Time{}
}

// Prev returns the latest fire instant at or before now.
func (t Trigger) Prev(now time.Time) time.Time {
	if t.days == 0 {
		return time.Time{}
	}
	y, m, d := now.Date()
	for i := 0; i <= 7; i++ {
		c := time.Date(y, m, d-i, t.Hour, t.Minute, 0, 0, now.Location())
		if !c.After(now) && t.matches(c.Weekday()) {
			return c
		}
	}
	return time.Time{}
}

// Due reports whether a firing observed at now belongs to an occurrence that
// is at most grace old. Late firings beyond grace are missed, not queued.
func (t Trigger) Due(now time.Time, grace time.Duration) bool {
	p := t.Prev(now)
	if p.IsZero() {
		return false
	}
	return now.Sub(p) <= grace
}
