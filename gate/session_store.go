package gate

import "sync"

// SessionStore is a thread-safe in-memory map from session token to
// Session. Each pipeline owns exactly one store; sessions are lost on
// restart, matching the gateway being simulated. Expiry is checked lazily
// by callers via Session.HasExpired; there is no background sweep.
type SessionStore struct {
	mu   sync.RWMutex
	data map[string]Session
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{data: make(map[string]Session)}
}

// Create stores the session under its token, replacing any previous entry.
func (s *SessionStore) Create(session Session) {
	s.mu.Lock()
	s.data[session.SessionID] = session
	s.mu.Unlock()
}

// Get retrieves a session by token.
func (s *SessionStore) Get(id string) (Session, bool) {
	s.mu.RLock()
	session, ok := s.data[id]
	s.mu.RUnlock()
	return session, ok
}

// Remove deletes a session by token. Removing a missing token is a no-op.
func (s *SessionStore) Remove(id string) {
	s.mu.Lock()
	delete(s.data, id)
	s.mu.Unlock()
}

// FindByUserName scans for a live session belonging to the named user.
// Used to enforce the one-live-session-per-user rule on login.
func (s *SessionStore) FindByUserName(name string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, session := range s.data {
		if session.User.Name == name {
			return session, true
		}
	}
	return Session{}, false
}

// Len reports the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
