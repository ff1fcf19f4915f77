package fulfillment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"templatefill-backend/internal/shared/auth"
	"templatefill-backend/internal/shared/metrics"
	"templatefill-backend/internal/shared/telemetry"
	"templatefill-backend/internal/templates"
)

const defaultIdleTimeout = 30 * time.Minute

// Manager keeps live sessions in memory, scoped to the principal that opened
// them. Sessions idle past the timeout are closed and forgotten.
type Manager struct {
	deps        Deps
	idleTimeout time.Duration
	Now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(deps Deps, idleTimeout time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}
	return &Manager{
		deps:        deps,
		idleTimeout: idleTimeout,
		Now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// Open starts a new session over tpl.
func (m *Manager) Open(p auth.Principal, tpl templates.Template) (*Session, error) {
	s, err := NewSession(uuid.NewString(), p, tpl, m.deps, m.Now)
	if err != nil {
		return nil, err
	}
	m.Sweep()

	m.mu.Lock()
	m.sessions[s.id] = s
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	telemetry.Info("session.opened", map[string]any{
		"session_id":   s.id,
		"template_id":  tpl.ID,
		"placeholders": len(tpl.Placeholders),
	})
	return s, nil
}

// Get returns the caller's session. Sessions owned by someone else are
// reported as missing.
func (m *Manager) Get(p auth.Principal, id string) (*Session, error) {
	m.Sweep()

	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok || s.principal.UserID != p.UserID {
		return nil, ErrSessionNotFound
	}
	s.touch()
	return s, nil
}

// Close ends and forgets the caller's session.
func (m *Manager) Close(p auth.Principal, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok || s.principal.UserID != p.UserID {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	metrics.ActiveSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	s.Close()
	telemetry.Info("session.closed", map[string]any{"session_id": id, "reason": "user"})
	return nil
}

// Sweep closes sessions idle longer than the timeout and returns how many
// were removed. Busy sessions are never swept.
func (m *Manager) Sweep() int {
	now := m.Now()

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.idleSince(now) > m.idleTimeout {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	if len(expired) > 0 {
		metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
		telemetry.Info("session.closed", map[string]any{"session_id": s.id, "reason": "idle"})
	}
	return len(expired)
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
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
			m.Sweep()
		}
	}
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
