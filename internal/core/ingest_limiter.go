package core

// ingest_limiter.go bounds how many requests parse uploads at the same time.
//
// Files inside one request are read one after another; the limiter only
// caps parallel requests so a burst of large uploads cannot exhaust memory.
// When all slots are taken, callers wait up to maxWait before failing with
// ErrTooManyIngests.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyIngests is returned when no slot frees up within the wait time.
var ErrTooManyIngests = errors.New("too many uploads in progress")

const (
	DefaultMaxConcurrentIngests = 5
	DefaultMaxIngestWait        = 30 * time.Second
)

// IngestLimiter is a weighted semaphore with an active counter for status
// reporting and drain on shutdown.
type IngestLimiter struct {
	sem     *semaphore.Weighted
	max     int64
	maxWait time.Duration
	active  atomic.Int64
}

// NewIngestLimiter allows at most maxConcurrent ingests at once.
func NewIngestLimiter(maxConcurrent int, maxWait time.Duration) *IngestLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentIngests
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxIngestWait
	}
	return &IngestLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     int64(maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller must call Release exactly once on success.
func (l *IngestLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyIngests
	}
	l.active.Add(1)
	return nil
}

// Release frees a slot taken by Acquire.
func (l *IngestLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// WaitForDrain blocks until every slot is free or ctx ends. Holding all
// slots while returning would block new work, so they are released at once.
func (l *IngestLimiter) WaitForDrain(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, l.max); err != nil {
		return err
	}
	l.sem.Release(l.max)
	return nil
}

// IngestLimiterStatus is a snapshot for monitoring.
type IngestLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state.
func (l *IngestLimiter) Status() IngestLimiterStatus {
	active := int(l.active.Load())
	return IngestLimiterStatus{
		Active:        active,
		Available:     int(l.max) - active,
		MaxConcurrent: int(l.max),
	}
}
