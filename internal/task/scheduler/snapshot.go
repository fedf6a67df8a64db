package scheduler

import "sort"

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Enabled:  s.cfg.Enabled,
		Running:  s.c != nil,
		Timezone: s.cfg.Timezone,
		Grace:    s.grace(),
	}
	regs := append([]registered(nil), s.triggers...)
	c := s.c
	loc := s.loc
	s.mu.Unlock()

	now := s.clk.Now()
	if loc != nil {
		now = now.In(loc)
	}
	if snap.Timezone == "" {
		snap.Timezone = now.Location().String()
	}

	snap.Triggers = make([]TriggerInfo, 0, len(regs))
	for _, r := range regs {
		t := r.trigger
		info := TriggerInfo{
			ScheduleID: t.ScheduleID,
			NumRings:   t.NumRings,
			DayOfWeek:  string(t.Day),
			Hour:       t.Hour,
			Minute:     t.Minute,
			Next:       t.Next(now),
		}
		if c != nil && r.entryID != 0 {
			e := c.Entry(r.entryID)
			if !e.Next.IsZero() {
				info.Next = e.Next
			}
			info.Prev = e.Prev
		}
		snap.Triggers = append(snap.Triggers, info)
	}
	sort.SliceStable(snap.Triggers, func(i, j int) bool {
		return snap.Triggers[i].Next.Before(snap.Triggers[j].Next)
	})
	return snap
}

// NextRings returns up to n upcoming fire times across all triggers.
func (s *Service) NextRings(n int) []TriggerInfo {
	tr := s.Snapshot().Triggers
	if n > 0 && len(tr) > n {
		tr = tr[:n]
	}
	return tr
}
