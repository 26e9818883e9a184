// Package poll runs view refreshes on a fixed interval.
package poll

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the refresh period of dashboard views.
const DefaultInterval = 15 * time.Second

// Every calls fn immediately and then once per interval until ctx is done.
// It returns after the last call has finished. A non-positive interval
// falls back to DefaultInterval.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if ctx.Err() != nil {
		return
	}
	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			fn(ctx)
		}
	}
}

// RepeatingTask runs a task in the background on a fixed interval.
type RepeatingTask struct {
	task     func(context.Context)
	interval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRepeating creates a repeating task. It does not run until Start.
func NewRepeating(task func(context.Context), interval time.Duration) *RepeatingTask {
	return &RepeatingTask{task: task, interval: interval}
}

// Start starts the task loop, running the task immediately.
// If the task is already running, this is a no-op.
func (t *RepeatingTask) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done
	t.running = true

	go func() {
		defer close(done)
		Every(ctx, t.interval, t.task)
	}()
}

// Stop stops the loop and waits for an in-progress run to finish.
// If the task is not running, this is a no-op.
// forceExec runs the task one last time after the loop has stopped.
func (t *RepeatingTask) Stop(forceExec bool) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.cancel()
	done := t.done
	t.running = false
	t.mu.Unlock()

	<-done
	if forceExec {
		t.task(context.Background())
	}
}

// Running reports whether the loop is active.
func (t *RepeatingTask) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
