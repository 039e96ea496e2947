package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewPool_ZeroWorkers(t *testing.T) {
	pool := NewPool(0)
	if pool.Workers() != runtime.NumCPU() {
		t.Errorf("Expected %d workers, got %d", runtime.NumCPU(), pool.Workers())
	}
}

func TestPool_SubmitAndWait(t *testing.T) {
	pool := NewPool(2)
	pool.Start()
	defer pool.Close()

	var counter int64
	for i := 0; i < 25; i++ {
		if err := pool.Submit(context.Background(), func() {
			atomic.AddInt64(&counter, 1)
		}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	pool.Wait()

	if counter != 25 {
		t.Errorf("Expected counter to be 25, got %d", counter)
	}
}

func TestPool_CollectsResults(t *testing.T) {
	pool := NewPool(3)
	pool.Start()
	defer pool.Close()

	var mu sync.Mutex
	seen := make(map[int]bool)
	for i := 0; i < 10; i++ {
		value := i
		if err := pool.Submit(context.Background(), func() {
			mu.Lock()
			seen[value] = true
			mu.Unlock()
		}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	pool.Wait()

	if len(seen) != 10 {
		t.Errorf("Expected 10 distinct results, got %d", len(seen))
	}
}

func TestPool_SubmitCancelled(t *testing.T) {
	// Workers are not started, so the queue stays full once filled.
	pool := NewPool(1)
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < pool.workers*2; i++ {
		if err := pool.Submit(ctx, func() {}); err != nil {
			t.Fatalf("Submit should not fail while queue has room: %v", err)
		}
	}
	cancel()

	ran := false
	if err := pool.Submit(ctx, func() { ran = true }); err == nil {
		t.Fatal("Expected Submit to fail after cancellation")
	}

	pool.Start()
	pool.Wait()
	if ran {
		t.Error("Cancelled job must not run")
	}
}
