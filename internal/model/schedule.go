package model

import "fmt"

// Schedule is a recurring ring rule.
type Schedule struct {
	ID        int64   `json:"id" db:"id"`
	DayOfWeek Weekday `json:"day_of_week" db:"day_of_week"`
	Hour      int     `json:"hour" db:"hour"`
	Minute    int     `json:"minute" db:"minute"`
	NumRings  int     `json:"num_rings" db:"num_rings"`
	Enabled   bool    `json:"enabled" db:"enabled"`
}

// Validate checks every field except ID.
func (s Schedule) Validate() error {
	if !s.DayOfWeek.Valid() {
		return invalid("day_of_week", "%q is not a weekday name or \"all\"", string(s.DayOfWeek))
	}
	if s.Hour < 0 || s.Hour > 23 {
		return invalid("hour", "%d out of range 0..23", s.Hour)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return invalid("minute", "%d out of range 0..59", s.Minute)
	}
	if s.NumRings < 1 {
		return invalid("num_rings", "must be positive, got %d", s.NumRings)
	}
	return nil
}

func (s Schedule) String() string {
	return fmt.Sprintf("#%d %s %02d:%02d x%d", s.ID, s.DayOfWeek, s.Hour, s.Minute, s.NumRings)
}

// SchedulePatch is a partial update; nil fields keep the stored value.
type SchedulePatch struct {
	DayOfWeek *Weekday
	Hour      *int
	Minute    *int
	NumRings  *int
	Enabled   *bool
}

// Apply returns s with the patch's non-nil fields applied.
func (p SchedulePatch) Apply(s Schedule) Schedule {
	if p.DayOfWeek != nil {
		s.DayOfWeek = p.DayOfWeek.Normalize()
	}
	if p.Hour != nil {
		s.Hour = *p.Hour
	}
	if p.Minute != nil {
		s.Minute = *p.Minute
	}
	if p.NumRings != nil {
		s.NumRings = *p.NumRings
	}
	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	return s
}
