package auth

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayush/exam-bank/backend/internal/models"
)

const (
	SessionTTL    = 7 * 24 * time.Hour
	SessionCookie = "authToken"
)

// SessionStore keeps login sessions and cached profiles in process memory.
// Nothing survives a restart.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]int64
	profiles map[int64]models.Profile
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]int64),
		profiles: make(map[int64]models.Profile),
	}
}

// Create stores a new session mapping token -> userID. Existing sessions
// of the same user are left alone.
func (s *SessionStore) Create(userID int64) string {
	token := uuid.NewString()

	s.mu.Lock()
	s.sessions[token] = userID
	s.mu.Unlock()
	return token
}

// Get returns the user id for a session token.
func (s *SessionStore) Get(token string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.sessions[token]
	return id, ok
}

// Delete removes a session. Unknown tokens are ignored.
func (s *SessionStore) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// DropUser removes every session of userID and its cached profile. It
// returns the number of sessions removed.
func (s *SessionStore) DropUser(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for token, id := range s.sessions {
		if id == userID {
			delete(s.sessions, token)
			n++
		}
	}
	delete(s.profiles, userID)
	return n
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) SetProfile(p models.Profile) {
	s.mu.Lock()
	s.profiles[p.ID] = p
	s.mu.Unlock()
}

func (s *SessionStore) Profile(userID int64) (models.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	return p, ok
}
