package correlation

import (
	"sync"

	"github.com/nshruti113/url-risk-dashboard/internal/models"
)

// Observation is one analysed event entering a session.
type Observation struct {
	Event    models.Event
	Label    string
	RuleHits []models.RuleID
	ML       models.MLInfo
	// Sequence is the event's position in the batch.
	Sequence int
}

// SessionStore groups observations by source identity for one batch. It
// must not be shared between batches.
type SessionStore struct {
	mu       sync.RWMutex
	order    []string
	sessions map[string][]Observation
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string][]Observation)}
}

// Add appends obs to its identity's session. Events without an identity are
// grouped under models.UnknownIdentity.
func (s *SessionStore) Add(obs Observation) {
	id := obs.Event.Identity()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		s.order = append(s.order, id)
	}
	s.sessions[id] = append(s.sessions[id], obs)
}

// Events returns a copy of identity's observations in arrival order.
func (s *SessionStore) Events(identity string) []Observation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Observation(nil), s.sessions[identity]...)
}

// Identities lists identities in first-seen order.
func (s *SessionStore) Identities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Len is the total number of observations held.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, obs := range s.sessions {
		n += len(obs)
	}
	return n
}

// Reset drops every session.
func (s *SessionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.sessions = make(map[string][]Observation)
}
