package model

import (
	"strings"
	"time"
)

// TimeLayout is the naive local timestamp format used on the wire and in storage.
const TimeLayout = "2006-01-02T15:04:05"

// MuteWindow is a suppression interval. Start and End are naive wall-clock
// times: their zone is incidental and they are read in whatever zone is in
// effect. Recurring windows only look at the time-of-day of Start and End;
// one-time windows compare full timestamps.
type MuteWindow struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Start       time.Time `json:"start_datetime"`
	End         time.Time `json:"end_datetime"`
	Enabled     bool      `json:"enabled"`
	IsRecurring bool      `json:"is_recurring"`
}

// Validate checks every field except ID.
func (w MuteWindow) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return invalid("name", "required")
	}
	if w.Start.IsZero() {
		return invalid("start_datetime", "required")
	}
	if w.End.IsZero() {
		return invalid("end_datetime", "required")
	}
	if !w.IsRecurring && w.End.Before(w.Start) {
		return invalid("end_datetime", "one-time window ends before it starts")
	}
	return nil
}

// WindowPatch is a partial update; nil fields keep the stored value.
type WindowPatch struct {
	Name        *string
	Start       *time.Time
	End         *time.Time
	Enabled     *bool
	IsRecurring *bool
}

// Apply returns w with the patch's non-nil fields applied.
func (p WindowPatch) Apply(w MuteWindow) MuteWindow {
	if p.Name != nil {
		w.Name = strings.TrimSpace(*p.Name)
	}
	if p.Start != nil {
		w.Start = *p.Start
	}
	if p.End != nil {
		w.End = *p.End
	}
	if p.Enabled != nil {
		w.Enabled = *p.Enabled
	}
	if p.IsRecurring != nil {
		w.IsRecurring = *p.IsRecurring
	}
	return w
}

// ParseLocal parses a wire timestamp. Naive values ("2024-01-01T10:00:00",
// optionally with fractional seconds or without seconds) are read in loc;
// RFC3339 values with an offset are converted into loc.
func ParseLocal(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	var lastErr error
	for _, layout := range []string{TimeLayout, "2006-01-02T15:04", "2006-01-02 15:04:05"} {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Wall places the wall-clock reading of t in loc. Window bounds are naive
// local times, so a change of zone keeps "20:00" at 20:00.
func Wall(t time.Time, loc *time.Location) time.Time {
	if loc == nil || t.Location() == loc {
		return t
	}
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, mo, d, h, mi, s, t.Nanosecond(), loc)
}

// FormatLocal renders t in loc using TimeLayout. A nil loc keeps t's own
// wall clock.
func FormatLocal(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(TimeLayout)
}
