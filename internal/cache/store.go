package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/casestrength/internal/session"
)

// ErrSessionNotFound is returned for unknown or expired session ids
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps serialized sessions in a Cache.
// Every Get decodes a fresh value, so concurrent requests never share a *Session.
type SessionStore struct {
	cache Cache
	ttl   time.Duration
}

// NewSessionStore creates a store whose entries expire ttl after their last write
func NewSessionStore(c Cache, ttl time.Duration) *SessionStore {
	return &SessionStore{cache: c, ttl: ttl}
}

// Put saves the session, replacing any earlier version
func (s *SessionStore) Put(sess *session.Session) error {
	data, err := sess.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID(), err)
	}
	if err := s.cache.Set(SessionKey(sess.ID()), data, s.ttl); err != nil {
		return fmt.Errorf("store session %s: %w", sess.ID(), err)
	}
	return nil
}

// Get loads a session by id
func (s *SessionStore) Get(id string) (*session.Session, error) {
	data, ok := s.cache.Get(SessionKey(id))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	sess, err := session.Restore(data)
	if err != nil {
		// Unreadable entries are dropped so the id reads as missing from now on
		_ = s.cache.Delete(SessionKey(id))
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return sess, nil
}

// Delete discards a session
func (s *SessionStore) Delete(id string) error {
	return s.cache.Delete(SessionKey(id))
}
