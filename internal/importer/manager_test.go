package importer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestManager(maxSessions int, ttl time.Duration) *Manager {
	return NewManager(NewSessionLimiter(maxSessions, 50*time.Millisecond), ttl)
}

func TestManager_AcquireCreatesOnce(t *testing.T) {
	m := newTestManager(2, time.Minute)
	ctx := context.Background()

	first, err := m.Acquire(ctx, "user-1")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if got := m.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount = %d, want 1", got)
	}

	// Re-acquiring returns the same session without consuming a new slot.
	second, err := m.Acquire(ctx, "user-1")
	if err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if first != second {
		t.Error("Acquire created a second session for the same principal")
	}
	if got := m.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount after re-acquire = %d, want 1", got)
	}
}

func TestManager_GetMissing(t *testing.T) {
	m := newTestManager(2, time.Minute)

	if _, err := m.Get("nobody"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_LimitsConcurrentSessions(t *testing.T) {
	m := newTestManager(1, time.Minute)
	ctx := context.Background()

	if _, err := m.Acquire(ctx, "user-1"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if _, err := m.Acquire(ctx, "user-2"); !errors.Is(err, ErrTooManySessions) {
		t.Errorf("err = %v, want ErrTooManySessions", err)
	}

	// Dropping the first frees the slot for the second.
	if err := m.Drop("user-1"); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if _, err := m.Acquire(ctx, "user-2"); err != nil {
		t.Errorf("Acquire after Drop failed: %v", err)
	}
}

func TestManager_DropMissing(t *testing.T) {
	m := newTestManager(2, time.Minute)

	if err := m.Drop("nobody"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_ReapExpiresIdleSessions(t *testing.T) {
	m := newTestManager(2, 10*time.Millisecond)
	ctx := context.Background()

	if _, err := m.Acquire(ctx, "user-1"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	m.reap(time.Now().Add(time.Minute))

	if got := m.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after reap = %d, want 0", got)
	}
	if _, err := m.Get("user-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_ReapKeepsFreshSessions(t *testing.T) {
	m := newTestManager(2, time.Hour)
	ctx := context.Background()

	if _, err := m.Acquire(ctx, "user-1"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	m.reap(time.Now())

	if got := m.ActiveCount(); got != 1 {
		t.Errorf("ActiveCount after reap = %d, want 1", got)
	}
}
