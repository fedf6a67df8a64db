package storage

import (
	"context"
	"sort"
	"sync"

	"moodybell/internal/model"
)

// memStore keeps records in maps. Lists are returned ordered by id.
type memStore struct {
	mu sync.RWMutex

	schedules map[int64]model.Schedule
	windows   map[int64]model.MuteWindow
	nextSched int64
	nextWin   int64
}

// NewMemory returns an empty in-memory store.
func NewMemory() Store { return newMemStore() }

func newMemStore() *memStore {
	return &memStore{
		schedules: map[int64]model.Schedule{},
		windows:   map[int64]model.MuteWindow{},
	}
}

func (m *memStore) Close() error { return nil }

func (m *memStore) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetSchedule(ctx context.Context, id int64) (model.Schedule, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.schedules[id]
	if !ok {
		return model.Schedule{}, ErrNotFound
	}
	return s, nil
}

func (m *memStore) CreateSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSched++
	s.ID = m.nextSched
	m.schedules[s.ID] = s
	return s, nil
}

func (m *memStore) UpdateSchedule(ctx context.Context, s model.Schedule) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[s.ID]; !ok {
		return ErrNotFound
	}
	m.schedules[s.ID] = s
	return nil
}

func (m *memStore) DeleteSchedule(ctx context.Context, id int64) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return ErrNotFound
	}
	delete(m.schedules, id)
	return nil
}

func (m *memStore) CountSchedules(ctx context.Context) (int, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.schedules), nil
}

func (m *memStore) ListWindows(ctx context.Context) ([]model.MuteWindow, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.MuteWindow, 0, len(m.windows))
	for _, w := range m.windows {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetWindow(ctx context.Context, id int64) (model.MuteWindow, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.windows[id]
	if !ok {
		return model.MuteWindow{}, ErrNotFound
	}
	return w, nil
}

func (m *memStore) CreateWindow(ctx context.Context, w model.MuteWindow) (model.MuteWindow, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextWin++
	w.ID = m.nextWin
	m.windows[w.ID] = w
	return w, nil
}

func (m *memStore) UpdateWindow(ctx context.Context, w model.MuteWindow) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.windows[w.ID]; !ok {
		return ErrNotFound
	}
	m.windows[w.ID] = w
	return nil
}

func (m *memStore) DeleteWindow(ctx context.Context, id int64) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.windows[id]; !ok {
		return ErrNotFound
	}
	delete(m.windows, id)
	return nil
}

func (m *memStore) CountWindows(ctx context.Context) (int, error) {
	_ = ctx
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.windows), nil
}
