package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"moodybell/internal/model"
	logx "moodybell/pkg/logx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// sqlStore backs both sqlite and postgres. Queries are written with '?'
// placeholders and rebound for the driver.
type sqlStore struct {
	db  *sqlx.DB
	log logx.Logger
	loc *time.Location
}

type windowRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	StartAt     string `db:"start_at"`
	EndAt       string `db:"end_at"`
	Enabled     bool   `db:"enabled"`
	IsRecurring bool   `db:"is_recurring"`
}

const (
	scheduleCols = `id, day_of_week, hour, minute, num_rings, enabled`
	windowCols   = `id, name, start_at, end_at, enabled, is_recurring`
)

func newSQLStore(db *sqlx.DB, loc *time.Location, log logx.Logger) *sqlStore {
	if loc == nil {
		loc = time.Local
	}
	return &sqlStore{db: db, log: log, loc: loc}
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := newSQLStore(db, cfg.Location, log)
	if err := st.migrate(context.Background(), "sqlite"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return st, nil
}

func openPostgres(cfg Config, log logx.Logger) (Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("storage.dsn is required for postgres driver")
	}

	const maxAttempts = 5
	const retryInterval = 2 * time.Second

	var db *sqlx.DB
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			break
		}
		log.Warn("postgres connect failed", logx.Int("attempt", attempt), logx.Err(err))
		if attempt < maxAttempts {
			time.Sleep(retryInterval)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect postgres after %d attempts: %w", maxAttempts, err)
	}

	st := newSQLStore(db, cfg.Location, log)
	if err := st.migrate(context.Background(), "postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	return st, nil
}

func (s *sqlStore) migrate(ctx context.Context, dialect string) error {
	b, err := migrationsFS.ReadFile("migrations/" + dialect + ".sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlStore) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	var out []model.Schedule
	q := `SELECT ` + scheduleCols + ` FROM schedules ORDER BY id`
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return out, nil
}

func (s *sqlStore) GetSchedule(ctx context.Context, id int64) (model.Schedule, error) {
	var out model.Schedule
	q := s.db.Rebind(`SELECT ` + scheduleCols + ` FROM schedules WHERE id = ?`)
	err := s.db.GetContext(ctx, &out, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Schedule{}, ErrNotFound
	}
	if err != nil {
		return model.Schedule{}, fmt.Errorf("get schedule %d: %w", id, err)
	}
	return out, nil
}

func (s *sqlStore) CreateSchedule(ctx context.Context, sc model.Schedule) (model.Schedule, error) {
	q := s.db.Rebind(`INSERT INTO schedules (day_of_week, hour, minute, num_rings, enabled)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := s.db.QueryRowxContext(ctx, q, string(sc.DayOfWeek), sc.Hour, sc.Minute, sc.NumRings, sc.Enabled).Scan(&sc.ID)
	if err != nil {
		return model.Schedule{}, fmt.Errorf("create schedule: %w", err)
	}
	return sc, nil
}

func (s *sqlStore) UpdateSchedule(ctx context.Context, sc model.Schedule) error {
	q := s.db.Rebind(`UPDATE schedules SET day_of_week = ?, hour = ?, minute = ?, num_rings = ?, enabled = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, string(sc.DayOfWeek), sc.Hour, sc.Minute, sc.NumRings, sc.Enabled, sc.ID)
	return affected(res, err, "update schedule", sc.ID)
}

func (s *sqlStore) DeleteSchedule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM schedules WHERE id = ?`), id)
	return affected(res, err, "delete schedule", id)
}

func (s *sqlStore) CountSchedules(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM schedules`); err != nil {
		return 0, fmt.Errorf("count schedules: %w", err)
	}
	return n, nil
}

func (s *sqlStore) ListWindows(ctx context.Context) ([]model.MuteWindow, error) {
	var rows []windowRow
	q := `SELECT ` + windowCols + ` FROM mute_windows ORDER BY id`
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("list mute windows: %w", err)
	}
	out := make([]model.MuteWindow, 0, len(rows))
	for _, r := range rows {
		w, err := s.fromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

func (s *sqlStore) GetWindow(ctx context.Context, id int64) (model.MuteWindow, error) {
	var r windowRow
	q := s.db.Rebind(`SELECT ` + windowCols + ` FROM mute_windows WHERE id = ?`)
	err := s.db.GetContext(ctx, &r, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MuteWindow{}, ErrNotFound
	}
	if err != nil {
		return model.MuteWindow{}, fmt.Errorf("get mute window %d: %w", id, err)
	}
	return s.fromRow(r)
}

func (s *sqlStore) CreateWindow(ctx context.Context, w model.MuteWindow) (model.MuteWindow, error) {
	q := s.db.Rebind(`INSERT INTO mute_windows (name, start_at, end_at, enabled, is_recurring)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := s.db.QueryRowxContext(ctx, q, w.Name,
		model.FormatLocal(w.Start, nil), model.FormatLocal(w.End, nil),
		w.Enabled, w.IsRecurring,
	).Scan(&w.ID)
	if err != nil {
		return model.MuteWindow{}, fmt.Errorf("create mute window: %w", err)
	}
	return w, nil
}

func (s *sqlStore) UpdateWindow(ctx context.Context, w model.MuteWindow) error {
	q := s.db.Rebind(`UPDATE mute_windows SET name = ?, start_at = ?, end_at = ?, enabled = ?, is_recurring = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, q, w.Name,
		model.FormatLocal(w.Start, nil), model.FormatLocal(w.End, nil),
		w.Enabled, w.IsRecurring, w.ID,
	)
	return affected(res, err, "update mute window", w.ID)
}

func (s *sqlStore) DeleteWindow(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM mute_windows WHERE id = ?`), id)
	return affected(res, err, "delete mute window", id)
}

func (s *sqlStore) CountWindows(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM mute_windows`); err != nil {
		return 0, fmt.Errorf("count mute windows: %w", err)
	}
	return n, nil
}

func (s *sqlStore) fromRow(r windowRow) (model.MuteWindow, error) {
	start, err := time.ParseInLocation(model.TimeLayout, r.StartAt, s.loc)
	if err != nil {
		return model.MuteWindow{}, fmt.Errorf("mute window %d start_at: %w", r.ID, err)
	}
	end, err := time.ParseInLocation(model.TimeLayout, r.EndAt, s.loc)
	if err != nil {
		return model.MuteWindow{}, fmt.Errorf("mute window %d end_at: %w", r.ID, err)
	}
	return model.MuteWindow{
		ID:          r.ID,
		Name:        r.Name,
		Start:       start,
		End:         end,
		Enabled:     r.Enabled,
		IsRecurring: r.IsRecurring,
	}, nil
}

func affected(res sql.Result, err error, op string, id int64) error {
	if err != nil {
		return fmt.Errorf("%s %d: %w", op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: %w", op, id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
