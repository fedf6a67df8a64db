// Package clock is the time source for the bell engine.
//
// Everything that reads "now" or sleeps between pulses goes through Clock so
// tests can drive the calendar, the mute resolver and the ring executor
// without waiting on the wall clock.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	// Now returns the current instant in the configured zone.
	Now() time.Time
	// Sleep blocks for d. Pulse timing is uninterruptible, so there is no ctx.
	Sleep(d time.Duration)
	// Location is the configured zone.
	Location() *time.Location
}

// Real is the wall clock pinned to a location.
type Real struct {
	mu  sync.RWMutex
	loc *time.Location
}

func NewReal(loc *time.Location) *Real {
	if loc == nil {
		loc = time.Local
	}
	return &Real{loc: loc}
}

func (c *Real) Now() time.Time { return time.Now().In(c.Location()) }

func (c *Real) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

func (c *Real) Location() *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loc
}

// SetLocation switches the zone (config hot reload).
func (c *Real) SetLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	c.mu.Lock()
	c.loc = loc
	c.mu.Unlock()
}

// LoadLocation resolves an IANA zone name; empty means time.Local.
func LoadLocation(tz string) (*time.Location, error) {
	if tz == "" {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}
