package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIngestLimiter_AcquireRelease(t *testing.T) {
	l := NewIngestLimiter(2, 20*time.Millisecond)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}

	status := l.Status()
	if status.Active != 2 || status.Available != 0 || status.MaxConcurrent != 2 {
		t.Errorf("Status() = %+v", status)
	}

	if err := l.Acquire(ctx); !errors.Is(err, ErrTooManyIngests) {
		t.Errorf("Acquire() when full error = %v, want ErrTooManyIngests", err)
	}

	l.Release()
	l.Release()
	if got := l.Status(); got.Active != 0 || got.Available != 2 {
		t.Errorf("Status() after release = %+v", got)
	}
}

func TestIngestLimiter_CallerCancel(t *testing.T) {
	l := NewIngestLimiter(1, time.Minute)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestIngestLimiter_WaitForDrain(t *testing.T) {
	l := NewIngestLimiter(3, time.Second)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	short, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.WaitForDrain(short); err == nil {
		t.Error("WaitForDrain() should time out while a slot is held")
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		l.Release()
	}()

	ctx, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	if err := l.WaitForDrain(ctx); err != nil {
		t.Fatalf("WaitForDrain() error = %v", err)
	}
	if got := l.Status(); got.Active != 0 || got.Available != 3 {
		t.Errorf("Status() after drain = %+v", got)
	}
}

func TestIngestLimiter_Defaults(t *testing.T) {
	l := NewIngestLimiter(0, 0)
	if l.Status().MaxConcurrent != DefaultMaxConcurrentIngests {
		t.Errorf("MaxConcurrent = %d, want %d", l.Status().MaxConcurrent, DefaultMaxConcurrentIngests)
	}
	if l.maxWait != DefaultMaxIngestWait {
		t.Errorf("maxWait = %v, want %v", l.maxWait, DefaultMaxIngestWait)
	}
}
