package session

import "sync"

// Store owns the mutually exclusive pair (completed user session, pending
// challenge). The constructing Client is the only writer; concurrent readers
// are safe and always receive copies.
type Store struct {
	mu        sync.RWMutex
	user      *User
	challenge *Challenge
}

func NewStore() *Store {
	return &Store{}
}

// SetUser installs a completed session. Any pending challenge is discarded.
func (s *Store) SetUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
	s.challenge = nil
}

// SetChallenge installs a pending challenge. Any completed session is
// discarded first, so the store never holds both.
func (s *Store) SetChallenge(c Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenge = &c
	s.user = nil
}

// ClearChallenge drops the pending challenge, if any. The back-edge from
// 2fa-verify to credentials lands here.
func (s *Store) ClearChallenge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenge = nil
}

// ClearUser drops the completed session, if any.
func (s *Store) ClearUser() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

// Reset drops both the session and the challenge.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.challenge = nil
}

// User returns a copy of the completed session identity, or nil.
func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Challenge returns a copy of the pending challenge, or nil.
func (s *Store) Challenge() *Challenge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.challenge == nil {
		return nil
	}
	c := *s.challenge
	return &c
}
