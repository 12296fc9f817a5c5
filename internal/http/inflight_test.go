package http

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// TestInFlightTracker_Concurrent verifies the count balances under concurrent requests.
func TestInFlightTracker_Concurrent(t *testing.T) {
	var tracker InFlightTracker
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Increment()
			tracker.Decrement()
		}()
	}
	wg.Wait()
	if got := tracker.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
}

// TestInFlightTracker_WaitForZero verifies shutdown waits for an open stream to end.
func TestInFlightTracker_WaitForZero(t *testing.T) {
	var tracker InFlightTracker
	tracker.Increment()

	go func() {
		time.Sleep(10 * time.Millisecond)
		tracker.Decrement()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tracker.WaitForZero(ctx, time.Millisecond); err != nil {
		t.Fatalf("WaitForZero() error = %v", err)
	}
}

func TestInFlightTracker_WaitForZero_Deadline(t *testing.T) {
	var tracker InFlightTracker
	tracker.Increment()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tracker.WaitForZero(ctx, time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForZero() error = %v, want DeadlineExceeded", err)
	}
	if got := tracker.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}
