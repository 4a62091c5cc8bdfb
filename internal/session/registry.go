package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/callerwork/callerd/internal/metrics"
)

// Registry is the keyed store of active sessions. It is shared between the
// HTTP webhook handlers and the per-call stream loops, so every access goes
// through its mutex; compound per-session mutations additionally hold the
// session's own lock via Mutate.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger.With().Str("component", "session-registry").Logger(),
	}
}

// Create installs a fresh session for phone, replacing any existing one.
func (r *Registry) Create(phone, dialNumber string) *Session {
	s := New(phone, dialNumber)
	r.mu.Lock()
	r.sessions[phone] = s
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()
	r.logger.Debug().Str("phone", phone).Msg("session created")
	return s
}

// Get returns the session for phone, if present. An absent session is not an
// error; callers treat it as a logically fresh one.
func (r *Registry) Get(phone string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[phone]
	return s, ok
}

// Mutate applies fn atomically to the session for phone. It reports whether
// the session existed.
func (r *Registry) Mutate(phone string, fn func(*Session)) bool {
	s, ok := r.Get(phone)
	if !ok {
		return false
	}
	s.Do(fn)
	return true
}

// Remove evicts the session for phone.
func (r *Registry) Remove(phone string) {
	r.mu.Lock()
	delete(r.sessions, phone)
	metrics.ActiveSessions.Set(float64(len(r.sessions)))
	r.mu.Unlock()
}

// Len returns the number of stored sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than ttl and returns how many were
// removed. Sessions are kept after a call ends for follow-up bookkeeping, so
// the sweep is what bounds the registry.
func (r *Registry) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for phone, s := range r.sessions {
		s.mu.Lock()
		idle := s.LastActivity.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(r.sessions, phone)
			evicted++
		}
	}
	if evicted > 0 {
		metrics.ActiveSessions.Set(float64(len(r.sessions)))
		r.logger.Info().Int("evicted", evicted).Msg("swept idle sessions")
	}
	return evicted
}

// RunJanitor sweeps at the given interval until stop is closed.
func (r *Registry) RunJanitor(ttl, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.Sweep(ttl)
		}
	}
}
