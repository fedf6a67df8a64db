package control

import (
	"context"
	"fmt"
	"strings"

	"moodybell/internal/activity"
	"moodybell/internal/model"
)

func (s *Service) ListWindows(ctx context.Context) ([]model.MuteWindow, error) {
	return s.store.ListWindows(ctx)
}

func (s *Service) GetWindow(ctx context.Context, id int64) (model.MuteWindow, error) {
	return s.store.GetWindow(ctx, id)
}

func (s *Service) CreateWindow(ctx context.Context, w model.MuteWindow) (model.MuteWindow, error) {
	w.Name = strings.TrimSpace(w.Name)
	if err := w.Validate(); err != nil {
		return model.MuteWindow{}, err
	}

	s.mu.Lock()
	created, err := s.store.CreateWindow(ctx, w)
	s.mu.Unlock()
	if err != nil {
		return model.MuteWindow{}, err
	}
	s.trail.Record(fmt.Sprintf("Mute schedule created: %s", created.Name), activity.Info)
	return created, nil
}

func (s *Service) UpdateWindow(ctx context.Context, id int64, patch model.WindowPatch) (model.MuteWindow, error) {
	s.mu.Lock()
	cur, err := s.store.GetWindow(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return model.MuteWindow{}, err
	}
	next := patch.Apply(cur)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return model.MuteWindow{}, err
	}
	err = s.store.UpdateWindow(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return model.MuteWindow{}, err
	}
	s.trail.Record(fmt.Sprintf("Mute schedule updated: %s", next.Name), activity.Info)
	return next, nil
}

func (s *Service) DeleteWindow(ctx context.Context, id int64) error {
	s.mu.Lock()
	cur, err := s.store.GetWindow(ctx, id)
	if err == nil {
		err = s.store.DeleteWindow(ctx, id)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.trail.Record(fmt.Sprintf("Mute schedule deleted: %s", cur.Name), activity.Info)
	return nil
}
