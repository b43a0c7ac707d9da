package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matst80/slask-audience/pkg/reconcile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ErrNotFound = errors.New("session not found")

var activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "slaskaudience_sessions_active",
	Help: "The number of open authoring sessions",
})

type entry struct {
	session  *Session
	lastUsed time.Time
}

// Manager owns the open sessions and evicts the ones left idle.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*entry
	reconciler *reconcile.Reconciler
	ttl        time.Duration
	now        func() time.Time
}

func NewManager(r *reconcile.Reconciler, ttl time.Duration) *Manager {
	return &Manager{
		sessions:   make(map[string]*entry),
		reconciler: r,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (m *Manager) Create(ctx context.Context) *Session {
	s := newSession(ctx, uuid.New().String(), m.reconciler)
	m.mu.Lock()
	m.sessions[s.ID] = &entry{session: s, lastUsed: m.now()}
	activeSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
	log.Printf("session %s created", s.ID)
	return s
}

// Get returns an open session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastUsed = m.now()
	return e.session, nil
}

func (m *Manager) Close(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		activeSessions.Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	e.session.Close()
	return nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) open() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]*Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		ret = append(ret, e.session)
	}
	return ret
}

// EvictIdle closes sessions unused for longer than the ttl.
func (m *Manager) EvictIdle() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)
	m.mu.Lock()
	evicted := make([]*Session, 0)
	for id, e := range m.sessions {
		if e.lastUsed.Before(cutoff) {
			evicted = append(evicted, e.session)
			delete(m.sessions, id)
		}
	}
	activeSessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()
	for _, s := range evicted {
		s.Close()
	}
	if len(evicted) > 0 {
		log.Printf("evicted %d idle sessions", len(evicted))
	}
	return len(evicted)
}

// Run evicts idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	interval := m.ttl / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.EvictIdle()
		}
	}
}

// ReconcileAll re-runs reconciliation on every open session, used once new
// indexes are in place.
func (m *Manager) ReconcileAll(ctx context.Context) {
	for _, s := range m.open() {
		if _, err := s.EnsureReconciled(ctx); err != nil && !errors.Is(err, ErrSessionClosed) {
			log.Printf("reconcile session %s failed: %v", s.ID, err)
		}
	}
}

// WatchIndexes hooks ReconcileAll into index loads.
func (m *Manager) WatchIndexes(idx interface{ OnLoad(func()) }) {
	idx.OnLoad(func() {
		m.ReconcileAll(context.Background())
	})
}

// CloseAll closes every session, used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*entry)
	activeSessions.Set(0)
	m.mu.Unlock()
	for _, e := range all {
		e.session.Close()
	}
}
