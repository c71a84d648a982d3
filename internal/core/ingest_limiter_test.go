package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ============================================================================
// Ingest Limiter Tests
// ============================================================================

func TestIngestLimiterAcquireRelease(t *testing.T) {
	l := NewIngestLimiter(2, time.Second)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	if got := l.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
	if got := l.Available(); got != 0 {
		t.Errorf("Available = %d, want 0", got)
	}

	l.Release()
	l.Release()

	if got := l.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after release = %d, want 0", got)
	}
}

func TestIngestLimiterRejectsWhenFull(t *testing.T) {
	l := NewIngestLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	defer l.Release()

	err := l.Acquire(ctx)
	if !errors.Is(err, ErrTooManyIngests) {
		t.Errorf("error = %v, want ErrTooManyIngests", err)
	}
}

func TestIngestLimiterHonorsContextCancellation(t *testing.T) {
	l := NewIngestLimiter(1, time.Minute)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestIngestLimiterWaitForDrain(t *testing.T) {
	l := NewIngestLimiter(1, time.Second)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(150 * time.Millisecond)
		l.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := l.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain: %v", err)
	}
}

func TestIngestLimiterDefaults(t *testing.T) {
	l := NewIngestLimiter(0, 0)
	if got := cap(l.semaphore); got != DefaultMaxConcurrentIngests {
		t.Errorf("capacity = %d, want default %d", got, DefaultMaxConcurrentIngests)
	}
	if l.maxWait != DefaultMaxWaitTime {
		t.Errorf("maxWait = %v, want default %v", l.maxWait, DefaultMaxWaitTime)
	}
}
