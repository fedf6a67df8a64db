package model

import (
	"strings"
	"time"
)

// Weekday is a schedule's day selector: a lowercase English day name or "all".
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
	AllDays   Weekday = "all"
)

var weekdays = map[Weekday]time.Weekday{
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
	Sunday:    time.Sunday,
}

// Normalize lowercases and trims the selector.
func (d Weekday) Normalize() Weekday {
	return Weekday(strings.ToLower(strings.TrimSpace(string(d))))
}

// Valid reports whether d is one of the recognized selectors.
func (d Weekday) Valid() bool {
	if d == AllDays {
		return true
	}
	_, ok := weekdays[d]
	return ok
}

// TimeWeekday maps a single-day selector to time.Weekday. ok is false for
// "all" and for unrecognized values.
func (d Weekday) TimeWeekday() (time.Weekday, bool) {
	wd, ok := weekdays[d]
	return wd, ok
}
