package control

import (
	"context"
	"fmt"
	"time"

	"moodybell/internal/activity"
	"moodybell/internal/bell"
	"moodybell/internal/eventbus"
	"moodybell/internal/model"
	"moodybell/internal/task/scheduler"
	logx "moodybell/pkg/logx"
)

// Status is a read-only projection of the bell's state.
type Status struct {
	Muted           bool
	MutedBySchedule bool
	State           bell.State
	ActiveWindows   []model.MuteWindow
	Overrides       []int64
	CurrentTime     time.Time
	GPIOAvailable   bool
	Hardware        string
	Ringing         int
	NextRings       []scheduler.TriggerInfo
}

// Status evaluates the mute windows fresh, which also prunes stale overrides.
// Windows are listed even under manual mute so the status shows both causes.
func (s *Service) Status(ctx context.Context) (Status, error) {
	now := s.clk.Now()
	windows, err := s.resolver.ActiveWindows(ctx, now)
	if err != nil {
		return Status{}, err
	}
	manual := s.exec.Manual()
	state := bell.Armed
	switch {
	case manual:
		state = bell.SuppressedManual
	case len(windows) > 0:
		state = bell.SuppressedSchedule
	}
	sink := s.exec.Sink()
	return Status{
		Muted:           manual,
		MutedBySchedule: len(windows) > 0,
		State:           state,
		ActiveWindows:   windows,
		Overrides:       s.resolver.Overrides(),
		CurrentTime:     now,
		GPIOAvailable:   sink.Available(),
		Hardware:        sink.Name(),
		Ringing:         s.exec.Ringing(),
		NextRings:       s.triggers.NextRings(s.cfg.NextRings),
	}, nil
}

// MuteResult reports a mute change and any windows it overrode.
type MuteResult struct {
	Muted      bool
	Overridden []model.MuteWindow
}

// SetMute sets the manual flag. Unmuting with overrideWindows also overrides
// every window active right now, so the bell is armed immediately.
func (s *Service) SetMute(ctx context.Context, muted, overrideWindows bool) (MuteResult, error) {
	s.exec.SetManual(muted)
	res := MuteResult{Muted: muted}

	if !muted && overrideWindows {
		active, err := s.resolver.ActiveWindows(ctx, s.clk.Now())
		if err != nil {
			return res, err
		}
		for _, w := range active {
			s.resolver.Override(w.ID)
			s.trail.Record(fmt.Sprintf("Mute schedule overridden: %s", w.Name), activity.Warning)
			s.publish(eventbus.WindowOverridden, w.ID)
		}
		res.Overridden = active
	}

	status := "disabled"
	if muted {
		status = "enabled"
	}
	s.trail.Record(fmt.Sprintf("Mute %s (manual)", status), activity.Info)
	s.publish(eventbus.MuteChanged, muted)
	return res, nil
}

// OverrideWindow cancels one window's suppression for its current
// occurrence. The window must exist; it need not be active, in which case
// the override is dropped on the next evaluation.
func (s *Service) OverrideWindow(ctx context.Context, id int64) (model.MuteWindow, error) {
	w, err := s.store.GetWindow(ctx, id)
	if err != nil {
		return model.MuteWindow{}, err
	}
	s.resolver.Override(id)
	s.trail.Record(fmt.Sprintf("Mute schedule overridden: %s", w.Name), activity.Warning)
	s.publish(eventbus.WindowOverridden, id)
	return w, nil
}

// RingNow requests an immediate ring of n tolls; n <= 0 uses the default.
func (s *Service) RingNow(ctx context.Context, n int) (bell.Outcome, error) {
	if n <= 0 {
		n = s.cfg.ManualDefaultRings
	}
	s.trail.Record(fmt.Sprintf("Manual ring requested (%d rings)", n), activity.Info)
	out, err := s.exec.RingAsync(ctx, n)
	if err != nil {
		s.log.Warn("manual ring failed", logx.Int("rings", n), logx.Err(err))
	}
	return out, err
}

// Logs returns the most recent limit activity entries, oldest first.
func (s *Service) Logs(limit int) []activity.Entry {
	return s.trail.Recent(limit)
}
