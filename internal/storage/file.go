package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"moodybell/internal/model"
	logx "moodybell/pkg/logx"
)

// fileStore is a dependency-free persistence backend.
//
// Records live in memory and the whole set is rewritten to <path> on every
// mutation (write to <path>.tmp, then rename).
type fileStore struct {
	log logx.Logger

	mu   sync.Mutex // serializes mutate+flush
	path string
	mem  *memStore
}

type fileSnapshot struct {
	NextScheduleID int64              `json:"next_schedule_id"`
	NextWindowID   int64              `json:"next_window_id"`
	Schedules      []model.Schedule   `json:"schedules"`
	Windows        []model.MuteWindow `json:"mute_windows"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	s := &fileStore{log: log, path: path, mem: newMemStore()}
	if err := s.load(cfg.Location); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

func (s *fileStore) load(loc *time.Location) error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var snap fileSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return err
	}
	for _, sc := range snap.Schedules {
		s.mem.schedules[sc.ID] = sc
		s.mem.nextSched = max(s.mem.nextSched, sc.ID)
	}
	for _, w := range snap.Windows {
		if loc != nil {
			w.Start, w.End = model.Wall(w.Start, loc), model.Wall(w.End, loc)
		}
		s.mem.windows[w.ID] = w
		s.mem.nextWin = max(s.mem.nextWin, w.ID)
	}
	s.mem.nextSched = max(s.mem.nextSched, snap.NextScheduleID)
	s.mem.nextWin = max(s.mem.nextWin, snap.NextWindowID)
	s.log.Debug("file store loaded",
		logx.String("path", s.path),
		logx.Int("schedules", len(snap.Schedules)),
		logx.Int("mute_windows", len(snap.Windows)),
	)
	return nil
}

func (s *fileStore) flushLocked(ctx context.Context) error {
	snap := fileSnapshot{}
	snap.Schedules, _ = s.mem.ListSchedules(ctx)
	snap.Windows, _ = s.mem.ListWindows(ctx)
	s.mem.mu.RLock()
	snap.NextScheduleID, snap.NextWindowID = s.mem.nextSched, s.mem.nextWin
	s.mem.mu.RUnlock()

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// mutate runs fn against the in-memory set and flushes on success.
func (s *fileStore) mutate(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	if err := s.flushLocked(ctx); err != nil {
		s.log.Error("file store flush failed", logx.String("path", s.path), logx.Err(err))
		return fmt.Errorf("flush %s: %w", s.path, err)
	}
	return nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	return s.mem.ListSchedules(ctx)
}

func (s *fileStore) GetSchedule(ctx context.Context, id int64) (model.Schedule, error) {
	return s.mem.GetSchedule(ctx, id)
}

func (s *fileStore) CountSchedules(ctx context.Context) (int, error) {
	return s.mem.CountSchedules(ctx)
}

func (s *fileStore) CreateSchedule(ctx context.Context, sc model.Schedule) (out model.Schedule, err error) {
	err = s.mutate(ctx, func() error {
		out, err = s.mem.CreateSchedule(ctx, sc)
		return err
	})
	return out, err
}

func (s *fileStore) UpdateSchedule(ctx context.Context, sc model.Schedule) error {
	return s.mutate(ctx, func() error { return s.mem.UpdateSchedule(ctx, sc) })
}

func (s *fileStore) DeleteSchedule(ctx context.Context, id int64) error {
	return s.mutate(ctx, func() error { return s.mem.DeleteSchedule(ctx, id) })
}

func (s *fileStore) ListWindows(ctx context.Context) ([]model.MuteWindow, error) {
	return s.mem.ListWindows(ctx)
}

func (s *fileStore) GetWindow(ctx context.Context, id int64) (model.MuteWindow, error) {
	return s.mem.GetWindow(ctx, id)
}

func (s *fileStore) CountWindows(ctx context.Context) (int, error) {
	return s.mem.CountWindows(ctx)
}

func (s *fileStore) CreateWindow(ctx context.Context, w model.MuteWindow) (out model.MuteWindow, err error) {
	err = s.mutate(ctx, func() error {
		out, err = s.mem.CreateWindow(ctx, w)
		return err
	})
	return out, err
}

func (s *fileStore) UpdateWindow(ctx context.Context, w model.MuteWindow) error {
	return s.mutate(ctx, func() error { return s.mem.UpdateWindow(ctx, w) })
}

func (s *fileStore) DeleteWindow(ctx context.Context, id int64) error {
	return s.mutate(ctx, func() error { return s.mem.DeleteWindow(ctx, id) })
}
