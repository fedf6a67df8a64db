// Package mute decides whether configured quiet windows suppress ringing at a
// given instant, and tracks per-window manual overrides.
package mute

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"moodybell/internal/model"
)

// WindowLister is the read side of the window store.
type WindowLister interface {
	ListWindows(ctx context.Context) ([]model.MuteWindow, error)
}

// Resolver evaluates windows fresh from the store on every call. The only
// state it holds is the override set.
type Resolver struct {
	windows WindowLister

	mu sync.Mutex
	// overrides maps a window id to the sequence number of its Override call.
	overrides map[int64]uint64
	seq       uint64
}

func NewResolver(windows WindowLister) *Resolver {
	return &Resolver{windows: windows, overrides: map[int64]uint64{}}
}

// Active reports whether an enabled window covers now. Bounds are inclusive
// and read as wall-clock times in now's zone.
func Active(w model.MuteWindow, now time.Time) bool {
	if !w.Enabled {
		return false
	}
	loc := now.Location()
	ws, we := model.Wall(w.Start, loc), model.Wall(w.End, loc)
	if !w.IsRecurring {
		return !now.Before(ws) && !now.After(we)
	}
	t := timeOfDay(now)
	start, end := timeOfDay(ws), timeOfDay(we)
	if start <= end {
		return start <= t && t <= end
	}
	return t >= start || t <= end
}

// ActiveWindows returns the windows muting the bell at now. Overrides whose
// window is no longer active are dropped first, then overridden windows are
// filtered out of the result. Overrides added while the store is being read
// are newer than the listing and survive the prune.
func (r *Resolver) ActiveWindows(ctx context.Context, now time.Time) ([]model.MuteWindow, error) {
	r.mu.Lock()
	listedAt := r.seq
	r.mu.Unlock()

	all, err := r.windows.ListWindows(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mute windows: %w", err)
	}

	active := make([]model.MuteWindow, 0, len(all))
	ids := make(map[int64]struct{}, len(all))
	for _, w := range all {
		if Active(w, now) {
			active = append(active, w)
			ids[w.ID] = struct{}{}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, seq := range r.overrides {
		if _, ok := ids[id]; !ok && seq <= listedAt {
			delete(r.overrides, id)
		}
	}
	out := active[:0]
	for _, w := range active {
		if _, ok := r.overrides[w.ID]; !ok {
			out = append(out, w)
		}
	}
	return out, nil
}

// IsMuted reports whether any non-overridden window is active at now.
func (r *Resolver) IsMuted(ctx context.Context, now time.Time) (bool, error) {
	ws, err := r.ActiveWindows(ctx, now)
	if err != nil {
		return false, err
	}
	return len(ws) > 0, nil
}

// Override cancels suppression by window id until that window stops being
// active. Any id is accepted; an id that is not active is pruned on the next
// evaluation.
func (r *Resolver) Override(id int64) {
	r.mu.Lock()
	r.seq++
	r.overrides[id] = r.seq
	r.mu.Unlock()
}

// Overrides returns the current override ids in ascending order.
func (r *Resolver) Overrides() []int64 {
	r.mu.Lock()
	out := make([]int64, 0, len(r.overrides))
	for id := range r.overrides {
		out = append(out, id)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func timeOfDay(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}
