package scheduler

import (
	"context"
	"fmt"
	"time"

	"moodybell/internal/activity"
	"moodybell/internal/calendar"
	logx "moodybell/pkg/logx"
)

// Rebuild replaces every registered trigger with triggers. Callers serialize
// Rebuild with the record change that caused it.
func (s *Service) Rebuild(triggers []calendar.Trigger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.c != nil {
		for _, r := range s.triggers {
			s.c.Remove(r.entryID)
		}
	}
	s.triggers = make([]registered, 0, len(triggers))
	for _, t := range triggers {
		s.triggers = append(s.triggers, registered{trigger: t})
		if s.c != nil {
			s.addLocked(&s.triggers[len(s.triggers)-1])
		}
	}
	s.log.Debug("triggers rebuilt", logx.Int("count", len(triggers)))
}

// Triggers returns the registered triggers.
func (s *Service) Triggers() []calendar.Trigger {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]calendar.Trigger, len(s.triggers))
	for i, r := range s.triggers {
		out[i] = r.trigger
	}
	return out
}

// Fire handles one firing of t. A firing later than the grace period after
// its scheduled instant is recorded as missed and dropped.
func (s *Service) Fire(t calendar.Trigger) {
	now := s.clk.Now()
	grace := s.grace()
	if !t.Due(now, grace) {
		late := now.Sub(t.Prev(now))
		s.trail.Record(fmt.Sprintf("Scheduled ring missed (ID: %d, %d rings) - %s late", t.ScheduleID, t.NumRings, late.Round(time.Second)), activity.Warning)
		return
	}

	s.trail.Record(fmt.Sprintf("Scheduled ring triggered (ID: %d, %d rings)", t.ScheduleID, t.NumRings), activity.Info)

	ctx, cancel := context.WithTimeout(context.Background(), s.fireTimeout)
	defer cancel()
	out, err := s.ringer.RingAsync(ctx, t.NumRings)
	if err != nil {
		// already on the activity trail
		s.log.Warn("scheduled ring failed",
			logx.Int64("schedule_id", t.ScheduleID),
			logx.String("state", out.State.String()),
			logx.Err(err),
		)
		return
	}
	s.log.Debug("scheduled ring handled",
		logx.Int64("schedule_id", t.ScheduleID),
		logx.String("state", out.State.String()),
		logx.Bool("queued", out.Queued),
	)
}
