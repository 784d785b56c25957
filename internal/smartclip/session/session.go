// Package session keeps the per-conversation state of the chat service: the
// agent transcript and the confirmation machine, keyed by session ID, with
// idle expiry.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Liu-design-beep/smartclip/internal/smartclip/agent"
	"github.com/Liu-design-beep/smartclip/internal/smartclip/confirm"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = time.Hour

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "smartclip",
	Subsystem: "session",
	Name:      "active",
	Help:      "Sessions currently held in memory.",
})

// Session is one conversation. Callers hold Lock for the whole turn so that
// transcript turns are appended in request order and at most one pending
// action exists.
type Session struct {
	ID         string
	Recognizer *agent.Recognizer
	Machine    *confirm.Machine

	mu       sync.Mutex
	lastSeen time.Time
}

// New assembles a session.
func New(id string, rec *agent.Recognizer, m *confirm.Machine) *Session {
	return &Session{ID: id, Recognizer: rec, Machine: m}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// Factory builds the state for a new session ID.
type Factory func(id string) *Session

// NewID returns an identifier of the form session_<16 hex digits>.
func NewID() string {
	return "session_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Manager maps session IDs to sessions.
type Manager struct {
	factory Factory
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a manager creating sessions with factory. ttl <= 0
// uses DefaultTTL.
func NewManager(factory Factory, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{factory: factory, ttl: ttl, now: time.Now, sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for id, creating it when id is unknown.
// An empty id gets a freshly generated one. created reports whether a new
// session was made.
func (m *Manager) GetOrCreate(id string) (s *Session, created bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = NewID()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.lastSeen = m.now()
		return s, false
	}
	s = m.factory(id)
	s.ID = id
	s.lastSeen = m.now()
	m.sessions[id] = s
	activeSessions.Set(float64(len(m.sessions)))
	slog.Debug("session: created", "session_id", id)
	return s, true
}

// Get returns an existing session without creating one.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.lastSeen = m.now()
	}
	return s, ok
}

// Delete drops a session. It reports whether it existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	activeSessions.Set(float64(len(m.sessions)))
	return ok
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed. A session in the middle of a turn is left alone.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.ttl)
	n := 0
	for id, s := range m.sessions {
		if !s.lastSeen.Before(cutoff) {
			continue
		}
		if !s.mu.TryLock() {
			continue
		}
		delete(m.sessions, id)
		s.mu.Unlock()
		n++
	}
	activeSessions.Set(float64(len(m.sessions)))
	return n
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.ttl / 4
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				slog.Info("session: expired idle sessions", "count", n, "remaining", m.Len())
			}
		}
	}
}
