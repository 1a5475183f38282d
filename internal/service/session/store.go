package session

import (
	"sync"
	"time"

	"github.com/kirayalabs/kiraya/backend/internal/model/conversation"
)

// DefaultTTL is how long an idle session survives between turns.
const DefaultTTL = 15 * time.Minute

// Store keeps dialogue state in memory, keyed by session id. Idle sessions
// are evicted lazily: every access sweeps entries whose last activity is
// older than the TTL.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*conversation.SessionState
	lastSeen map[string]time.Time
	now      func() time.Time
}

// NewStore builds a store with the given TTL. Non-positive values fall back
// to DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]*conversation.SessionState),
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Get returns the live session and refreshes its idle timer.
func (s *Store) Get(id string) (*conversation.SessionState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	state, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastSeen[id] = s.now()
	return state, true
}

// Save stores the session under its own id and marks it active.
func (s *Store) Save(state *conversation.SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	s.sessions[state.ID] = state
	s.lastSeen[state.ID] = s.now()
}

// Clear drops the session immediately, ending the conversation.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	delete(s.lastSeen, id)
}

// Active reports how many sessions are currently live.
func (s *Store) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	return len(s.sessions)
}

// sweep removes sessions idle beyond the TTL. Callers must hold the lock.
func (s *Store) sweep() {
	cutoff := s.now()
	for id, seen := range s.lastSeen {
		if cutoff.Sub(seen) > s.ttl {
			delete(s.sessions, id)
			delete(s.lastSeen, id)
		}
	}
}
