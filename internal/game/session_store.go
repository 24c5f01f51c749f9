// internal/game/session_store.go
package game

import (
	"sync"

	"github.com/google/uuid"
)

// SessionStore keeps live sessions in memory, keyed by session ID.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*DareSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*DareSession),
	}
}

func (s *SessionStore) Add(sess *DareSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

func (s *SessionStore) Get(id uuid.UUID) (*DareSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, exists := s.sessions[id]
	return sess, exists
}

// Delete discards a session. Called once its standings have been consumed;
// there is no resume.
func (s *SessionStore) Delete(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}
