package httpapi

import (
	"time"

	"moodybell/internal/activity"
	"moodybell/internal/control"
	"moodybell/internal/model"
	"moodybell/internal/task/scheduler"
)

type scheduleRequest struct {
	DayOfWeek *string `json:"day_of_week"`
	Hour      *int    `json:"hour"`
	Minute    *int    `json:"minute"`
	NumRings  *int    `json:"num_rings"`
	Enabled   *bool   `json:"enabled"`
}

func (r scheduleRequest) patch() model.SchedulePatch {
	p := model.SchedulePatch{Hour: r.Hour, Minute: r.Minute, NumRings: r.NumRings, Enabled: r.Enabled}
	if r.DayOfWeek != nil {
		d := model.Weekday(*r.DayOfWeek)
		p.DayOfWeek = &d
	}
	return p
}

// schedule builds a full record for create. Missing fields are validation
// errors except enabled, which defaults to true.
func (r scheduleRequest) schedule() (model.Schedule, *apiError) {
	if r.DayOfWeek == nil || r.Hour == nil || r.Minute == nil || r.NumRings == nil {
		return model.Schedule{}, badRequest("day_of_week, hour, minute and num_rings are required")
	}
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return model.Schedule{
		DayOfWeek: model.Weekday(*r.DayOfWeek),
		Hour:      *r.Hour,
		Minute:    *r.Minute,
		NumRings:  *r.NumRings,
		Enabled:   enabled,
	}, nil
}

type windowRequest struct {
	Name        *string `json:"name"`
	Start       *string `json:"start_datetime"`
	End         *string `json:"end_datetime"`
	Enabled     *bool   `json:"enabled"`
	IsRecurring *bool   `json:"is_recurring"`
}

func (r windowRequest) patch(loc *time.Location) (model.WindowPatch, *apiError) {
	p := model.WindowPatch{Name: r.Name, Enabled: r.Enabled, IsRecurring: r.IsRecurring}
	if r.Start != nil {
		t, err := model.ParseLocal(*r.Start, loc)
		if err != nil {
			return p, badRequest("invalid start_datetime")
		}
		p.Start = &t
	}
	if r.End != nil {
		t, err := model.ParseLocal(*r.End, loc)
		if err != nil {
			return p, badRequest("invalid end_datetime")
		}
		p.End = &t
	}
	return p, nil
}

func (r windowRequest) window(loc *time.Location) (model.MuteWindow, *apiError) {
	if r.Name == nil || r.Start == nil || r.End == nil {
		return model.MuteWindow{}, badRequest("name, start_datetime and end_datetime are required")
	}
	p, apiErr := r.patch(loc)
	if apiErr != nil {
		return model.MuteWindow{}, apiErr
	}
	w := model.MuteWindow{Enabled: true}
	return p.Apply(w), nil
}

type windowResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Start       string `json:"start_datetime"`
	End         string `json:"end_datetime"`
	Enabled     bool   `json:"enabled"`
	IsRecurring bool   `json:"is_recurring"`
}

// Window bounds go out as the wall clock they were stored with.
func newWindowResponse(w model.MuteWindow) windowResponse {
	return windowResponse{
		ID:          w.ID,
		Name:        w.Name,
		Start:       model.FormatLocal(w.Start, nil),
		End:         model.FormatLocal(w.End, nil),
		Enabled:     w.Enabled,
		IsRecurring: w.IsRecurring,
	}
}

func newWindowList(ws []model.MuteWindow) []windowResponse {
	out := make([]windowResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, newWindowResponse(w))
	}
	return out
}

type muteRequest struct {
	Muted            *bool `json:"muted"`
	OverrideSchedule bool  `json:"override_schedule"`
}

type ringRequest struct {
	NumRings *int `json:"num_rings"`
}

type nextRing struct {
	ScheduleID int64  `json:"schedule_id"`
	NumRings   int    `json:"num_rings"`
	DayOfWeek  string `json:"day_of_week"`
	At         string `json:"at"`
}

type statusResponse struct {
	Muted           bool             `json:"muted"`
	MutedBySchedule bool             `json:"muted_by_schedule"`
	State           string           `json:"state"`
	ActiveWindows   []windowResponse `json:"active_mute_schedules"`
	Overrides       []int64          `json:"overrides"`
	CurrentTime     string           `json:"current_time"`
	GPIOAvailable   bool             `json:"gpio_available"`
	Hardware        string           `json:"hardware"`
	Ringing         int              `json:"ringing"`
	NextRings       []nextRing       `json:"next_rings"`
}

func newStatusResponse(st control.Status, loc *time.Location) statusResponse {
	overrides := st.Overrides
	if overrides == nil {
		overrides = []int64{}
	}
	return statusResponse{
		Muted:           st.Muted,
		MutedBySchedule: st.MutedBySchedule,
		State:           st.State.String(),
		ActiveWindows:   newWindowList(st.ActiveWindows),
		Overrides:       overrides,
		CurrentTime:     model.FormatLocal(st.CurrentTime, loc),
		GPIOAvailable:   st.GPIOAvailable,
		Hardware:        st.Hardware,
		Ringing:         st.Ringing,
		NextRings:       newNextRings(st.NextRings, loc),
	}
}

func newNextRings(in []scheduler.TriggerInfo, loc *time.Location) []nextRing {
	out := make([]nextRing, 0, len(in))
	for _, ti := range in {
		out = append(out, nextRing{
			ScheduleID: ti.ScheduleID,
			NumRings:   ti.NumRings,
			DayOfWeek:  string(ti.DayOfWeek),
			At:         model.FormatLocal(ti.Next, loc),
		})
	}
	return out
}

type logEntry struct {
	Timestamp string            `json:"timestamp"`
	Message   string            `json:"message"`
	Type      activity.Severity `json:"type"`
}

func newLogEntries(in []activity.Entry, loc *time.Location) []logEntry {
	out := make([]logEntry, 0, len(in))
	for _, e := range in {
		out = append(out, logEntry{Timestamp: model.FormatLocal(e.Timestamp, loc), Message: e.Message, Type: e.Severity})
	}
	return out
}
