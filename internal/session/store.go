// Package session holds the single active conversation session.
//
// The store owns the canonical Session. Get hands out copies, and every
// change goes through Update, so no caller ever holds a second mutable
// reference to the shared session.
package session

import (
	"sync"

	"github.com/eldtechnologies/talkbridge/internal/models"
)

// Store is a single-slot session holder.
type Store struct {
	mu      sync.RWMutex
	current *models.Session
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the active session.
func (s *Store) Set(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &sess
}

// Get returns a copy of the active session and whether one is set.
func (s *Store) Get() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.Session{}, false
	}
	return *s.current, true
}

// Update applies fn to the active session. It reports false, without
// calling fn, when no session is set.
func (s *Store) Update(fn func(sess *models.Session)) (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.Session{}, false
	}
	fn(s.current)
	return *s.current, true
}

// Clear drops the active session.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}
