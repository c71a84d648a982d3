package core

// ingest_limiter.go implements concurrency control for upload processing.
//
// The limiter uses a semaphore pattern to restrict parallel ingests to a
// configurable maximum, preventing memory exhaustion when several large
// files arrive at once. When all slots are occupied, new requests wait up
// to maxWait before failing with ErrTooManyIngests.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyIngests is returned when all ingest slots are occupied and
// the wait timeout expires. Clients should retry after a short delay.
var ErrTooManyIngests = errors.New("too many concurrent uploads, please try again later")

// DefaultMaxConcurrentIngests is the default limit for parallel ingests.
const DefaultMaxConcurrentIngests = 5

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// IngestLimiter controls concurrent ingest processing using a semaphore.
type IngestLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.RWMutex
	active int
}

// NewIngestLimiter creates a limiter that allows at most maxConcurrent
// simultaneous ingests. Requests that cannot acquire a slot within
// maxWait receive ErrTooManyIngests.
func NewIngestLimiter(maxConcurrent int, maxWait time.Duration) *IngestLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentIngests
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &IngestLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
	}
}

// Acquire attempts to acquire an ingest slot. Returns nil on success,
// ErrTooManyIngests if the timeout expires. The caller MUST call
// Release() when the ingest completes (use defer).
func (l *IngestLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil

	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyIngests
	}
}

// Release releases a previously acquired slot. Must be called exactly
// once for each successful Acquire.
func (l *IngestLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()

	<-l.semaphore
}

// ActiveCount returns the number of currently active ingests.
func (l *IngestLimiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of available slots.
func (l *IngestLimiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all active ingests complete or the context is
// cancelled. Used for graceful shutdown.
func (l *IngestLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}
