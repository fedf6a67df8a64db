package clock

import (
	"testing"
	"time"
)

func TestFakeSleepAdvances(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	f := NewFake(start)
	f.Sleep(100 * time.Millisecond)
	f.Sleep(2900 * time.Millisecond)

	if got := f.Now().Sub(start); got != 3*time.Second {
		t.Fatalf("advanced %v, want 3s", got)
	}
	if got := f.Slept(); got != 3*time.Second {
		t.Fatalf("Slept = %v, want 3s", got)
	}
	if n := len(f.Sleeps()); n != 2 {
		t.Fatalf("len(Sleeps) = %d, want 2", n)
	}
}

func TestRealUsesLocation(t *testing.T) {
	loc := time.FixedZone("test", -6*3600)
	c := NewReal(loc)
	if c.Now().Location() != loc {
		t.Fatalf("Now location = %v, want %v", c.Now().Location(), loc)
	}
	other := time.FixedZone("other", 3600)
	c.SetLocation(other)
	if c.Location() != other {
		t.Fatalf("Location = %v, want %v", c.Location(), other)
	}
	c.SetLocation(nil)
	if c.Location() != other {
		t.Fatal("SetLocation(nil) must be ignored")
	}
}

func TestLoadLocationEmpty(t *testing.T) {
	loc, err := LoadLocation("")
	if err != nil || loc != time.Local {
		t.Fatalf("LoadLocation(\"\") = %v, %v", loc, err)
	}
	if _, err := LoadLocation("Not/AZone"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}
