package control

import (
	"context"

	"moodybell/internal/model"
)

func (s *Service) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	return s.store.ListSchedules(ctx)
}

func (s *Service) GetSchedule(ctx context.Context, id int64) (model.Schedule, error) {
	return s.store.GetSchedule(ctx, id)
}

// CreateSchedule validates, stores and rebuilds triggers before returning.
func (s *Service) CreateSchedule(ctx context.Context, sc model.Schedule) (model.Schedule, error) {
	sc.DayOfWeek = sc.DayOfWeek.Normalize()
	if err := sc.Validate(); err != nil {
		return model.Schedule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	created, err := s.store.CreateSchedule(ctx, sc)
	if err != nil {
		return model.Schedule{}, err
	}
	if err := s.rebuildLocked(ctx); err != nil {
		return created, err
	}
	return created, nil
}

// UpdateSchedule applies patch to the stored schedule.
func (s *Service) UpdateSchedule(ctx context.Context, id int64, patch model.SchedulePatch) (model.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return model.Schedule{}, err
	}
	next := patch.Apply(cur)
	if err := next.Validate(); err != nil {
		return model.Schedule{}, err
	}
	if err := s.store.UpdateSchedule(ctx, next); err != nil {
		return model.Schedule{}, err
	}
	if err := s.rebuildLocked(ctx); err != nil {
		return next, err
	}
	return next, nil
}

func (s *Service) DeleteSchedule(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.DeleteSchedule(ctx, id); err != nil {
		return err
	}
	return s.rebuildLocked(ctx)
}
