package storage

import (
	"context"
	"errors"
	"time"

	"moodybell/internal/model"
)

// ErrNotFound is returned for an unknown record id.
var ErrNotFound = errors.New("record not found")

// Config configures storage.
type Config struct {
	Driver      string
	Path        string        // sqlite and file
	DSN         string        // postgres
	BusyTimeout time.Duration // sqlite only; 0 means default

	// Location is attached to naive timestamps read back from disk. Their
	// wall clock is kept as written.
	Location *time.Location
}

type ScheduleStore interface {
	ListSchedules(ctx context.Context) ([]model.Schedule, error)
	GetSchedule(ctx context.Context, id int64) (model.Schedule, error)
	CreateSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error)
	UpdateSchedule(ctx context.Context, s model.Schedule) error
	DeleteSchedule(ctx context.Context, id int64) error
	CountSchedules(ctx context.Context) (int, error)
}

type WindowStore interface {
	ListWindows(ctx context.Context) ([]model.MuteWindow, error)
	GetWindow(ctx context.Context, id int64) (model.MuteWindow, error)
	CreateWindow(ctx context.Context, w model.MuteWindow) (model.MuteWindow, error)
	UpdateWindow(ctx context.Context, w model.MuteWindow) error
	DeleteWindow(ctx context.Context, id int64) error
	CountWindows(ctx context.Context) (int, error)
}

// Store is the full persistence API used by the control service.
type Store interface {
	ScheduleStore
	WindowStore
	Close() error
}
