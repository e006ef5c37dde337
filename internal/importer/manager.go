package importer

// manager.go tracks live sessions per principal. Only one session is active
// at a time per caller; finished sessions are reaped after a TTL so an
// abandoned browser tab does not pin memory forever.

import (
	"context"
	"sync"
	"time"
)

// DefaultSessionTTL is how long a completed or idle session is retained.
const DefaultSessionTTL = 30 * time.Minute

// Manager owns all live import sessions.
type Manager struct {
	limiter *SessionLimiter
	ttl     time.Duration

	mu          sync.RWMutex
	byPrincipal map[string]*Session
	lastTouched map[string]time.Time
}

// NewManager creates a session manager backed by the given limiter.
func NewManager(limiter *SessionLimiter, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{
		limiter:     limiter,
		ttl:         ttl,
		byPrincipal: make(map[string]*Session),
		lastTouched: make(map[string]time.Time),
	}
}

// Acquire returns the principal's active session, creating one if needed.
// Creating a session consumes a limiter slot, released when the session is
// dropped. An existing session is returned without consuming a new slot.
func (m *Manager) Acquire(ctx context.Context, principal string) (*Session, error) {
	m.mu.Lock()
	if sess, ok := m.byPrincipal[principal]; ok {
		m.lastTouched[principal] = time.Now()
		m.mu.Unlock()
		return sess, nil
	}
	m.mu.Unlock()

	if err := m.limiter.Acquire(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another request may have created the session while we waited.
	if sess, ok := m.byPrincipal[principal]; ok {
		m.limiter.Release()
		m.lastTouched[principal] = time.Now()
		return sess, nil
	}

	sess := NewSession(principal)
	m.byPrincipal[principal] = sess
	m.lastTouched[principal] = time.Now()
	return sess, nil
}

// Get returns the principal's active session without creating one.
func (m *Manager) Get(principal string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.byPrincipal[principal]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Touch refreshes the TTL clock for a principal's session.
func (m *Manager) Touch(principal string) {
	m.mu.Lock()
	if _, ok := m.byPrincipal[principal]; ok {
		m.lastTouched[principal] = time.Now()
	}
	m.mu.Unlock()
}

// Drop removes the principal's session and releases its limiter slot.
// Dropping is refused while a submission is in flight.
func (m *Manager) Drop(principal string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.byPrincipal[principal]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.State() == StateProcessing {
		return &TransitionError{From: StateProcessing, To: StateCollectingInput}
	}

	delete(m.byPrincipal, principal)
	delete(m.lastTouched, principal)
	m.limiter.Release()
	return nil
}

// ActiveCount returns the number of live sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byPrincipal)
}

// StartReaper runs TTL cleanup until ctx is cancelled.
func (m *Manager) StartReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reap(time.Now())
		}
	}
}

// reap drops sessions idle past the TTL, skipping in-flight submissions.
func (m *Manager) reap(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for principal, touched := range m.lastTouched {
		if now.Sub(touched) < m.ttl {
			continue
		}
		sess := m.byPrincipal[principal]
		if sess != nil && sess.State() == StateProcessing {
			continue
		}
		delete(m.byPrincipal, principal)
		delete(m.lastTouched, principal)
		m.limiter.Release()
	}
}
