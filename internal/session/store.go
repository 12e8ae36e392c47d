package session

import (
	"fmt"
	"sync"
	"time"

	"chatbot-client/internal/chat"
)

// Store holds the known sessions and the active one. Only the Controller
// mutates it; every read returns a copy.
type Store struct {
	mu       sync.RWMutex
	sessions []*chat.Session
	activeID string
	now      func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		sessions: []*chat.Session{},
		now:      time.Now,
	}
}

// List returns all sessions in insertion order
func (s *Store) List() []*chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*chat.Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	return out
}

// Get returns the session with the given id
func (s *Store) Get(id string) (*chat.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess := s.find(id); sess != nil {
		return sess.Clone(), true
	}
	return nil, false
}

// Active returns the active session, or nil
func (s *Store) Active() *chat.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.activeID == "" {
		return nil
	}
	return s.find(s.activeID).Clone()
}

// ActiveID returns the id of the active session, or ""
func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Add appends sess, replacing an existing session with the same id
func (s *Store) Add(sess chat.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(sess)
}

// ReplaceAll swaps the session list for a freshly fetched one. The active
// session survives even when the listing does not include it yet.
func (s *Store) ReplaceAll(list []chat.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active *chat.Session
	if s.activeID != "" {
		active = s.find(s.activeID)
	}

	s.sessions = make([]*chat.Session, 0, len(list))
	for _, sess := range list {
		if active != nil && sess.ID == active.ID {
			// The listing carries no messages; keep the loaded history.
			sess.Messages = active.Messages
		}
		s.sessions = append(s.sessions, sess.Clone())
	}
	if active != nil && s.find(active.ID) == nil {
		s.sessions = append(s.sessions, active)
	}
}

// SetActive installs sess as the active session, adding it if needed
func (s *Store) SetActive(sess chat.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(sess)
	s.activeID = sess.ID
}

// ClearActive leaves the session list untouched
func (s *Store) ClearActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = ""
}

// Remove deletes the session and reports whether it was active
func (s *Store) Remove(id string) (wasActive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, sess := range s.sessions {
		if sess.ID == id {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			break
		}
	}
	if s.activeID == id {
		s.activeID = ""
		return true
	}
	return false
}

// Rename updates the display name of a session
func (s *Store) Rename(id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.find(id)
	if sess == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Name = name
	sess.Touch(s.now())
	return nil
}

// AppendMessage adds msg to the end of a session and returns its index.
// Messages are never removed, so the index stays valid.
func (s *Store) AppendMessage(sessionID string, msg chat.Message) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.find(sessionID)
	if sess == nil {
		return -1, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	sess.Messages = append(sess.Messages, msg)
	sess.Touch(s.now())
	return len(sess.Messages) - 1, nil
}

// SetMessageID replaces the id of the message at index, typically the
// pending id of a user message once the backend confirmed it
func (s *Store) SetMessageID(sessionID string, index int, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.find(sessionID)
	if sess == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if index < 0 || index >= len(sess.Messages) {
		return fmt.Errorf("message index %d out of range for session %s", index, sessionID)
	}
	sess.Messages[index].ID = id
	return nil
}

// SetFeedback records a vote on the message with the given id, whichever
// session holds it
func (s *Store) SetFeedback(messageID string, fb chat.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		for i := range sess.Messages {
			if sess.Messages[i].ID == messageID {
				sess.Messages[i].Feedback = &fb
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %s", ErrMessageNotFound, messageID)
}

// find must be called with the lock held
func (s *Store) find(id string) *chat.Session {
	for _, sess := range s.sessions {
		if sess.ID == id {
			return sess
		}
	}
	return nil
}

// upsertLocked must be called with the write lock held
func (s *Store) upsertLocked(sess chat.Session) {
	cp := sess.Clone()
	for i := range s.sessions {
		if s.sessions[i].ID == cp.ID {
			s.sessions[i] = cp
			return
		}
	}
	s.sessions = append(s.sessions, cp)
}
