package telegram

import (
	"context"
	"sync"

	"coinkeeper/internal/bot"

	"golang.org/x/sync/semaphore"
)

// dispatcher runs at most one worker per user, so a user's events are
// handled in arrival order while different users proceed concurrently.
// dispatch must be called from a single goroutine.
type dispatcher struct {
	handler Handler
	ctx     context.Context
	sem     *semaphore.Weighted
	wg      sync.WaitGroup

	mu     sync.Mutex
	queues map[int64][]bot.Event // present while the user has a worker
}

func newDispatcher(ctx context.Context, handler Handler, sem *semaphore.Weighted) *dispatcher {
	return &dispatcher{
		handler: handler,
		ctx:     ctx,
		sem:     sem,
		queues:  make(map[int64][]bot.Event),
	}
}

// dispatch queues ev behind the user's pending events, or starts a worker
// once a slot is free. It fails only when ctx is cancelled while waiting.
func (d *dispatcher) dispatch(ctx context.Context, ev bot.Event) error {
	d.mu.Lock()
	if q, busy := d.queues[ev.UserID]; busy {
		d.queues[ev.UserID] = append(q, ev)
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	if err := d.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	d.mu.Lock()
	d.queues[ev.UserID] = nil
	d.mu.Unlock()

	d.wg.Add(1)
	go d.drain(ev)
	return nil
}

func (d *dispatcher) drain(ev bot.Event) {
	defer d.wg.Done()
	defer d.sem.Release(1)

	userID := ev.UserID
	for {
		d.handler.Handle(d.ctx, ev)

		d.mu.Lock()
		q := d.queues[userID]
		if len(q) == 0 {
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		ev = q[0]
		d.queues[userID] = q[1:]
		d.mu.Unlock()
	}
}

// wait blocks until every queued event has been handled.
func (d *dispatcher) wait() {
	d.wg.Wait()
}
