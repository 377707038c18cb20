// Package sessions tracks logged-in users and detects silent disconnects.
package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Session is one logged-in user bound to its connection.
type Session struct {
	ID         string
	Name       string
	Code       string
	Channel    *Channel
	LoggedInAt time.Time
}

func NewSession(name, code string, ch *Channel, now time.Time) *Session {
	return &Session{
		ID:         uuid.NewString(),
		Name:       name,
		Code:       code,
		Channel:    ch,
		LoggedInAt: now,
	}
}

// Registry is the ordered set of active sessions, at most one per name.
// A single mutex guards every read and write; no method does I/O while
// holding it.
type Registry struct {
	mu       sync.Mutex
	sessions []*Session
	gauge    prometheus.Gauge
}

type Option func(*Registry)

// WithActiveGauge keeps g equal to the number of sessions.
func WithActiveGauge(g prometheus.Gauge) Option {
	return func(r *Registry) { r.gauge = g }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Add inserts s unless a session for s.Name already exists.
func (r *Registry) Add(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(s.Name) >= 0 {
		return false
	}
	r.sessions = append(r.sessions, s)
	r.updateGaugeLocked()
	return true
}

func (r *Registry) Contains(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.indexLocked(name) >= 0
}

func (r *Registry) Get(name string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.indexLocked(name); i >= 0 {
		return r.sessions[i], true
	}
	return nil, false
}

// Remove deletes the session for name and returns it, or nil if absent.
func (r *Registry) Remove(name string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(name)
	if i < 0 {
		return nil
	}
	s := r.sessions[i]
	r.deleteLocked(i)
	return s
}

// RemoveSession deletes s only if it is still the registered session for
// its name. A newer login under the same name is left alone.
func (r *Registry) RemoveSession(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(s.Name)
	if i < 0 || r.sessions[i].ID != s.ID {
		return false
	}
	r.deleteLocked(i)
	return true
}

// Snapshot copies the sessions in login order.
func (r *Registry) Snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) indexLocked(name string) int {
	for i, s := range r.sessions {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func (r *Registry) deleteLocked(i int) {
	copy(r.sessions[i:], r.sessions[i+1:])
	r.sessions[len(r.sessions)-1] = nil
	r.sessions = r.sessions[:len(r.sessions)-1]
	r.updateGaugeLocked()
}

func (r *Registry) updateGaugeLocked() {
	if r.gauge != nil {
		r.gauge.Set(float64(len(r.sessions)))
	}
}
