package poll

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestEvery_RunsImmediatelyAndStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	done := make(chan struct{})
	go func() {
		defer close(done)
		Every(ctx, 10*time.Millisecond, func(context.Context) {
			if calls.Add(1) == 3 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Every did not return after cancel")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestEvery_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	Every(ctx, time.Millisecond, func(context.Context) { called = true })
	if called {
		t.Error("fn called with cancelled context")
	}
}

func TestEvery_FirstCallBeforeInterval(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	var first time.Duration
	Every(ctx, time.Hour, func(context.Context) {
		first = time.Since(start)
		cancel()
	})
	if first > time.Second {
		t.Errorf("first call after %v, want immediate", first)
	}
}

func TestRepeatingTask_StartStop(t *testing.T) {
	var calls atomic.Int32
	task := NewRepeating(func(context.Context) { calls.Add(1) }, 5*time.Millisecond)

	task.Start(context.Background())
	task.Start(context.Background()) // no-op
	if !task.Running() {
		t.Fatal("expected running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	task.Stop(false)
	if task.Running() {
		t.Error("expected stopped")
	}

	stopped := calls.Load()
	if stopped < 2 {
		t.Fatalf("calls = %d, want at least 2", stopped)
	}
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != stopped {
		t.Errorf("task ran after Stop: %d -> %d", stopped, got)
	}

	task.Stop(true) // not running: no-op, no forced run
	if got := calls.Load(); got != stopped {
		t.Errorf("Stop on stopped task ran it")
	}
}

func TestRepeatingTask_ForceExec(t *testing.T) {
	var calls atomic.Int32
	task := NewRepeating(func(context.Context) { calls.Add(1) }, time.Hour)
	task.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	task.Stop(true)
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2 (initial + forced)", got)
	}
}
