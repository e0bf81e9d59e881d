// Package session holds the per-user state that bridges a probe and the
// quality choice that follows it, plus the volatile credential store.
// Nothing here survives a restart.
package session

import (
	"errors"
	"sync"
	"time"

	"crunchbot/internal/media"
)

var ErrNoSession = errors.New("no pending download for you, send the link again")

// Session is one probed URL waiting on a quality decision. The cookie
// snapshot is taken at probe time so a /cookies clear between probe and
// selection doesn't change what the download uses.
type Session struct {
	URL       string
	Info      media.Info
	Cookies   []Cookie
	CreatedAt time.Time
}

// Store keeps at most one Session per user. A new probe overwrites the
// previous session; selection consumes it.
type Store struct {
	mu     sync.Mutex
	byUser map[string]Session
}

func NewStore() *Store {
	return &Store{byUser: make(map[string]Session)}
}

func (s *Store) Put(userID string, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUser[userID] = sess
}

// Take removes and returns userID's session. Single-use: a second Take
// for the same probe fails with ErrNoSession.
func (s *Store) Take(userID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byUser[userID]
	if !ok {
		return Session{}, ErrNoSession
	}
	delete(s.byUser, userID)
	return sess, nil
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser)
}
