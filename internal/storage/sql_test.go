package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"moodybell/internal/model"
	logx "moodybell/pkg/logx"
)

func newMockStore(t *testing.T, driver string) (*sqlStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return newSQLStore(sqlx.NewDb(db, driver), cst, logx.Nop()), mock
}

func TestSQLListSchedules(t *testing.T) {
	st, mock := newMockStore(t, "sqlite")
	mock.ExpectQuery(`SELECT id, day_of_week, hour, minute, num_rings, enabled FROM schedules ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "day_of_week", "hour", "minute", "num_rings", "enabled"}).
			AddRow(1, "monday", 9, 0, 9, true).
			AddRow(2, "all", 12, 30, 1, false))

	got, err := st.ListSchedules(context.Background())
	if err != nil {
		t.Fatalf("ListSchedules: %v", err)
	}
	if len(got) != 2 || got[0].DayOfWeek != model.Monday || got[1].Enabled {
		t.Fatalf("ListSchedules = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLGetScheduleNotFound(t *testing.T) {
	st, mock := newMockStore(t, "sqlite")
	mock.ExpectQuery(`FROM schedules WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := st.GetSchedule(context.Background(), 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLCreateScheduleRebindsForPostgres(t *testing.T) {
	st, mock := newMockStore(t, "postgres")
	mock.ExpectQuery(`INSERT INTO schedules .* VALUES \(\$1, \$2, \$3, \$4, \$5\) RETURNING id`).
		WithArgs("friday", 15, 0, 3, true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	s, err := st.CreateSchedule(context.Background(), model.Schedule{DayOfWeek: model.Friday, Hour: 15, NumRings: 3, Enabled: true})
	if err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	if s.ID != 42 {
		t.Fatalf("id = %d, want 42", s.ID)
	}
}

func TestSQLUpdateMissingRow(t *testing.T) {
	st, mock := newMockStore(t, "sqlite")
	mock.ExpectExec(`UPDATE schedules SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.UpdateSchedule(context.Background(), model.Schedule{ID: 3, DayOfWeek: model.Monday, NumRings: 1})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLDeleteWrapsDriverError(t *testing.T) {
	st, mock := newMockStore(t, "sqlite")
	boom := errors.New("disk I/O error")
	mock.ExpectExec(`DELETE FROM mute_windows WHERE id = \?`).WillReturnError(boom)

	err := st.DeleteWindow(context.Background(), 1)
	if !errors.Is(err, boom) || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestSQLWindowTimestampsAreNaiveLocal(t *testing.T) {
	st, mock := newMockStore(t, "sqlite")
	start := time.Date(2024, 1, 1, 20, 0, 0, 0, cst)
	end := time.Date(2024, 1, 2, 6, 0, 0, 0, cst)

	mock.ExpectQuery(`INSERT INTO mute_windows`).
		WithArgs("Night", "2024-01-01T20:00:00", "2024-01-02T06:00:00", true, true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`FROM mute_windows ORDER BY id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "start_at", "end_at", "enabled", "is_recurring"}).
			AddRow(1, "Night", "2024-01-01T20:00:00", "2024-01-02T06:00:00", true, true))

	ctx := context.Background()
	// the wall clock is written as given, whatever zone it carries
	in := model.MuteWindow{
		Name:    "Night",
		Start:   time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC),
		End:     end,
		Enabled: true, IsRecurring: true,
	}
	if _, err := st.CreateWindow(ctx, in); err != nil {
		t.Fatalf("CreateWindow: %v", err)
	}
	ws, err := st.ListWindows(ctx)
	if err != nil {
		t.Fatalf("ListWindows: %v", err)
	}
	if len(ws) != 1 || !ws[0].Start.Equal(start) || !ws[0].End.Equal(end) {
		t.Fatalf("ListWindows = %+v", ws)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLBadTimestampSurfaces(t *testing.T) {
	st, mock := newMockStore(t, "sqlite")
	mock.ExpectQuery(`FROM mute_windows WHERE id = \?`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "start_at", "end_at", "enabled", "is_recurring"}).
			AddRow(1, "Broken", "yesterday", "2024-01-02T06:00:00", true, false))

	if _, err := st.GetWindow(context.Background(), 1); err == nil {
		t.Fatal("expected parse error")
	}
}
