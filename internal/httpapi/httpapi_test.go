package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moodybell/internal/activity"
	"moodybell/internal/bell"
	"moodybell/internal/calendar"
	"moodybell/internal/clock"
	"moodybell/internal/control"
	"moodybell/internal/eventbus"
	"moodybell/internal/hardware"
	"moodybell/internal/mute"
	"moodybell/internal/storage"
	"moodybell/internal/task/engine"
	"moodybell/internal/task/scheduler"
	logx "moodybell/pkg/logx"
)

func init() { gin.SetMode(gin.TestMode) }

type noTriggers struct{}

func (noTriggers) Rebuild([]calendar.Trigger)            {}
func (noTriggers) NextRings(int) []scheduler.TriggerInfo { return nil }

type capRunner struct {
	mu sync.Mutex
	n  int
}

func (c *capRunner) Enqueue(engine.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return nil
}

type harness struct {
	srv    *Server
	clk    *clock.Fake
	store  storage.Store
	trail  *activity.Log
	runner *capRunner
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	// Monday 2024-01-01 10:00
	clk := clock.NewFake(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	st := storage.NewMemory()
	trail := activity.New(100, clk, logx.Nop())
	res := mute.NewResolver(st)
	runner := &capRunner{}
	exec := bell.New(bell.Config{}, clk, hardware.NewSim(logx.Nop()), res, runner, trail, logx.Nop())
	bus := eventbus.New()
	svc := control.New(control.Config{}, control.Deps{
		Store: st, Resolver: res, Executor: exec, Triggers: noTriggers{},
		Trail: trail, Clock: clk, Bus: bus,
	})
	return &harness{srv: New(cfg, svc, bus, logx.Nop()), clk: clk, store: st, trail: trail, runner: runner}
}

func (h *harness) do(t *testing.T, method, path string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	h.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestScheduleRoutes(t *testing.T) {
	h := newHarness(t, Config{})

	w := h.do(t, http.MethodPost, "/api/schedules", map[string]any{
		"day_of_week": "Monday", "hour": 9, "minute": 0, "num_rings": 9,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created map[string]any
	decode(t, w, &created)
	assert.Equal(t, "monday", created["day_of_week"])
	assert.Equal(t, true, created["enabled"])
	id := int64(created["id"].(float64))

	w = h.do(t, http.MethodPut, "/api/schedules/"+itoa(id), map[string]any{"num_rings": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated map[string]any
	decode(t, w, &updated)
	assert.EqualValues(t, 3, updated["num_rings"])
	assert.EqualValues(t, 9, updated["hour"])

	w = h.do(t, http.MethodGet, "/api/schedules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	decode(t, w, &list)
	assert.Len(t, list, 1)

	w = h.do(t, http.MethodDelete, "/api/schedules/"+itoa(id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"deleted"}`, w.Body.String())

	w = h.do(t, http.MethodGet, "/api/schedules/"+itoa(id), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleValidation(t *testing.T) {
	h := newHarness(t, Config{})
	cases := map[string]map[string]any{
		"bad hour":    {"day_of_week": "monday", "hour": 24, "minute": 0, "num_rings": 1},
		"bad day":     {"day_of_week": "funday", "hour": 1, "minute": 0, "num_rings": 1},
		"zero rings":  {"day_of_week": "all", "hour": 1, "minute": 0, "num_rings": 0},
		"missing key": {"day_of_week": "all", "hour": 1},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := h.do(t, http.MethodPost, "/api/schedules", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	n, err := h.store.CountSchedules(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMuteWindowRoutesAndStatus(t *testing.T) {
	h := newHarness(t, Config{})

	w := h.do(t, http.MethodPost, "/api/mute-schedules", map[string]any{
		"name":           "Assembly",
		"start_datetime": "2024-01-01T09:00:00",
		"end_datetime":   "2024-01-01T11:00:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var win windowResponse
	decode(t, w, &win)
	assert.Equal(t, "2024-01-01T09:00:00", win.Start)
	assert.False(t, win.IsRecurring)

	w = h.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st statusResponse
	decode(t, w, &st)
	assert.True(t, st.MutedBySchedule)
	assert.Equal(t, bell.SuppressedSchedule.String(), st.State)
	require.Len(t, st.ActiveWindows, 1)
	assert.Equal(t, "2024-01-01T10:00:00", st.CurrentTime)
	assert.Equal(t, "sim", st.Hardware)

	w = h.do(t, http.MethodPost, "/api/mute-schedules/"+itoa(win.ID)+"/override", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, http.MethodGet, "/api/status", nil)
	decode(t, w, &st)
	assert.False(t, st.MutedBySchedule)
	assert.Equal(t, []int64{win.ID}, st.Overrides)

	w = h.do(t, http.MethodPost, "/api/mute-schedules/999/override", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(t, http.MethodDelete, "/api/mute-schedules/"+itoa(win.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMuteWindowDefaultsToOneTime(t *testing.T) {
	h := newHarness(t, Config{})

	w := h.do(t, http.MethodPost, "/api/mute-schedules", map[string]any{
		"name":           "Holiday",
		"start_datetime": "2023-12-31T09:00",
		"end_datetime":   "2023-12-31T11:00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var win windowResponse
	decode(t, w, &win)
	assert.False(t, win.IsRecurring)
	assert.True(t, win.Enabled)

	// the next day, inside the same wall-clock hours
	w = h.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st statusResponse
	decode(t, w, &st)
	assert.False(t, st.MutedBySchedule)
	assert.Empty(t, st.ActiveWindows)

	h.clk.Set(time.Date(2023, 12, 31, 10, 0, 0, 0, time.UTC))
	w = h.do(t, http.MethodGet, "/api/status", nil)
	decode(t, w, &st)
	assert.True(t, st.MutedBySchedule)

	w = h.do(t, http.MethodPost, "/api/mute-schedules", map[string]any{
		"name":           "Lunch",
		"start_datetime": "2024-01-01T12:00",
		"end_datetime":   "2024-01-01T13:00",
		"is_recurring":   true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &win)
	assert.True(t, win.IsRecurring)
}

func TestMuteAndRing(t *testing.T) {
	h := newHarness(t, Config{})

	w := h.do(t, http.MethodPost, "/api/mute", map[string]any{"muted": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(t, http.MethodPost, "/api/ring", map[string]any{"num_rings": 2})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"muted","state":"suppressed_manual","num_rings":2}`, w.Body.String())

	w = h.do(t, http.MethodPost, "/api/mute", map[string]any{"muted": false, "override_schedule": true})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodPost, "/api/ring", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]any
	decode(t, w, &out)
	assert.Equal(t, "ringing", out["status"])
	assert.EqualValues(t, control.DefaultManualRings, out["num_rings"])
	assert.Equal(t, 1, h.runner.n)

	w = h.do(t, http.MethodPost, "/api/ring", map[string]any{"num_rings": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPost, "/api/mute", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogsLimit(t *testing.T) {
	h := newHarness(t, Config{})
	for i := 0; i < 80; i++ {
		h.trail.Info("tick")
	}

	w := h.do(t, http.MethodGet, "/api/logs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []logEntry
	decode(t, w, &entries)
	assert.Len(t, entries, defaultLogLimit)
	assert.Equal(t, activity.Info, entries[0].Type)

	w = h.do(t, http.MethodGet, "/api/logs?limit=5", nil)
	decode(t, w, &entries)
	assert.Len(t, entries, 5)

	w = h.do(t, http.MethodGet, "/api/logs?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBearerToken(t *testing.T) {
	h := newHarness(t, Config{Token: "s3cret"})

	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/status", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/status", nil, "Authorization", "Bearer nope").Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/status", nil, "Authorization", "Bearer s3cret").Code)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/healthz", nil).Code)
}

func TestRingRateLimit(t *testing.T) {
	h := newHarness(t, Config{RingRate: 0.01, RingBurst: 2})

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, h.do(t, http.MethodPost, "/api/ring", map[string]any{"num_rings": 1}).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, h.do(t, http.MethodPost, "/api/ring", map[string]any{"num_rings": 1}).Code)
	// other routes are not limited
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/status", nil).Code)
}

func TestIPLimiterSweepsIdleBuckets(t *testing.T) {
	l := newIPLimiter(1, 1)
	now := time.Now()
	assert.True(t, l.allow("a", now))
	assert.False(t, l.allow("a", now))

	later := now.Add(2 * limiterIdle)
	assert.True(t, l.allow("b", later))
	l.mu.Lock()
	_, kept := l.ips["a"]
	l.mu.Unlock()
	assert.False(t, kept)
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestPprofMountedOnlyWhenEnabled(t *testing.T) {
	off := newHarness(t, Config{})
	assert.Equal(t, http.StatusNotFound, off.do(t, http.MethodGet, "/debug/pprof/", nil).Code)

	on := newHarness(t, Config{Token: "tok", Profile: ProfileConfig{Enabled: true}})
	assert.Equal(t, http.StatusUnauthorized, on.do(t, http.MethodGet, "/debug/pprof/", nil).Code)
	w := on.do(t, http.MethodGet, "/debug/pprof/cmdline", nil, "Authorization", "Bearer tok")
	assert.Equal(t, http.StatusOK, w.Code)
}
