package conversation

import (
	"sync"

	"github.com/hray3182/planbot/internal/models"
)

type sessionEntry struct {
	mu      sync.Mutex
	session *models.Session
}

// SessionStore owns every user's session. Access to one session is
// serialized; different users never contend beyond the map lookup.
type SessionStore struct {
	mu      sync.Mutex
	entries map[int64]*sessionEntry
}

func NewSessionStore() *SessionStore {
	return &SessionStore{entries: make(map[int64]*sessionEntry)}
}

func (s *SessionStore) entry(userID int64) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		e = &sessionEntry{session: models.NewSession(userID)}
		s.entries[userID] = e
	}
	return e
}

// With runs fn with exclusive access to the user's session, creating an idle
// session on first contact.
func (s *SessionStore) With(userID int64, fn func(*models.Session)) {
	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.session)
}

// State returns the user's current state.
func (s *SessionStore) State(userID int64) models.State {
	var state models.State
	s.With(userID, func(sess *models.Session) { state = sess.State })
	return state
}
