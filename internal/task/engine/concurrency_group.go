package engine

import (
	"context"
	"strings"
	"sync"
)

// groupSemaphore is a channel-based semaphore used for concurrency groups.
// The limit is fixed for the life of the semaphore; later callers asking for
// a different limit on the same key get the first one.
type groupSemaphore struct {
	ch chan struct{}
}

func newGroupSemaphore(limit int) *groupSemaphore {
	if limit <= 0 {
		limit = 1
	}
	return &groupSemaphore{ch: make(chan struct{}, limit)}
}

// acquire blocks until a slot frees up or one of the done channels fires.
func (g *groupSemaphore) acquire(ctx context.Context, stopCh <-chan struct{}) bool {
	if g == nil {
		return true
	}
	select {
	case g.ch <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	case <-stopCh:
		return false
	}
}

func (g *groupSemaphore) release() {
	if g == nil {
		return
	}
	select {
	case <-g.ch:
	default:
	}
}

func groupKey(concurrencyKey, name string) string {
	k := strings.TrimSpace(concurrencyKey)
	if k == "" {
		k = strings.TrimSpace(name)
	}
	return k
}

type groupLimiterStore struct {
	mu     sync.Mutex
	groups map[string]*groupSemaphore
}

func (s *groupLimiterStore) get(key string, limit int) *groupSemaphore {
	if limit <= 0 || key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groups == nil {
		s.groups = make(map[string]*groupSemaphore)
	}
	gs := s.groups[key]
	if gs == nil {
		gs = newGroupSemaphore(limit)
		s.groups[key] = gs
	}
	return gs
}
