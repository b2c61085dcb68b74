// Package state keeps per-user conversation sessions in memory.
package state

import "sync"

// Sessions maps a user key to its session, creating sessions on first contact.
// Sessions live for the lifetime of the process.
type Sessions[K comparable, S any] struct {
	mu       sync.RWMutex
	sessions map[K]S
	create   func(K) S
}

// NewSessions returns an empty registry; create builds the session for a new key.
func NewSessions[K comparable, S any](create func(K) S) *Sessions[K, S] {
	return &Sessions[K, S]{
		sessions: make(map[K]S),
		create:   create,
	}
}

// Get returns the session for key, creating it when absent.
func (s *Sessions[K, S]) Get(key K) S {
	s.mu.RLock()
	sess, ok := s.sessions[key]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key]; ok {
		return sess
	}
	sess = s.create(key)
	s.sessions[key] = sess
	return sess
}

// Lookup returns the session for key without creating one.
func (s *Sessions[K, S]) Lookup(key K) (S, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[key]
	return sess, ok
}

// Len reports the number of live sessions.
func (s *Sessions[K, S]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
