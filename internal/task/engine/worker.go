package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	rtsup "moodybell/internal/runtime/supervisor"
	logx "moodybell/pkg/logx"
)

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue chan queuedTask) {
	for {
		// A closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case qt := <-queue:
			gs := s.groups.get(groupKey(qt.task.ConcurrencyKey, qt.task.Name), qt.task.ConcurrencyLimit)
			if !gs.acquire(ctx, stopCh) {
				atomic.AddUint64(&s.dropped, 1)
				s.record(HistoryItem{ID: qt.task.ID, Name: qt.task.Name, Started: time.Now(), Error: "engine_stopped"})
				s.addPending(-1)
				return
			}
			atomic.AddInt32(&s.inFlight, 1)
			s.execOne(ctx, qt)
			atomic.AddInt32(&s.inFlight, -1)
			gs.release()
			s.addPending(-1)
		}
	}
}

func (s *Service) spawn(sup *rtsup.Supervisor, qt queuedTask) {
	s.addPending(1)
	atomic.AddInt32(&s.inFlight, 1)
	sup.Go0("task."+qt.task.Name, func(ctx context.Context) {
		defer s.addPending(-1)
		defer atomic.AddInt32(&s.inFlight, -1)
		s.execOne(ctx, qt)
	})
}

func (s *Service) execOne(ctx context.Context, qt queuedTask) {
	start := time.Now()
	queueDelay := max(start.Sub(qt.enqueuedAt), 0)
	name := qt.task.Name

	s.log.Debug("task.started", logx.String("task", name), logx.Duration("queue_delay", queueDelay))
	s.publish("task.started", start, TaskEvent{ID: qt.task.ID, Name: name, Started: start, QueueDelay: queueDelay})

	runCtx := ctx
	if qt.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, qt.timeout)
		defer cancel()
	}

	var err error
	// A panicking task must not take the worker with it.
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				s.log.Error("task.panic", logx.String("task", name), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			}
		}()
		err = qt.task.Run(runCtx)
	}()

	dur := time.Since(start)
	item := HistoryItem{ID: qt.task.ID, Name: name, Started: start, Duration: dur, QueueDelay: queueDelay}
	ev := TaskEvent{ID: qt.task.ID, Name: name, Started: start, QueueDelay: queueDelay, Duration: dur}
	if err != nil {
		item.Error, ev.Error = err.Error(), err.Error()
		s.log.Warn("task.failed", logx.String("task", name), logx.Err(err), logx.Duration("dur", dur))
		s.publish("task.failed", time.Now(), ev)
	} else {
		s.log.Debug("task.completed", logx.String("task", name), logx.Duration("queue_delay", queueDelay), logx.Duration("dur", dur))
		s.publish("task.finished", time.Now(), ev)
	}
	s.record(item)
}
