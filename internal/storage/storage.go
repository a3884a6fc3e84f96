package storage

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sandwich-alignment/alignment/internal/board"
)

const (
	DefaultSessionTTL  = 24 * time.Hour
	DefaultMaxSessions = 10000
)

type sessionEntry struct {
	session  *board.Session
	lastUsed atomic.Int64 // unix nanoseconds
}

// SessionStore holds in-progress board sessions keyed by id. Sessions idle
// longer than TTL expire, and Create evicts the least recently used session
// once MaxSessions are held. A zero TTL or MaxSessions disables that limit.
type SessionStore struct {
	TTL         time.Duration
	MaxSessions int

	sessions map[string]*sessionEntry
	mu       sync.RWMutex
	now      func() time.Time
}

func New() *SessionStore {
	return &SessionStore{
		TTL:         DefaultSessionTTL,
		MaxSessions: DefaultMaxSessions,
		sessions:    make(map[string]*sessionEntry),
		now:         time.Now,
	}
}

// Create stores a session under a new id
func (s *SessionStore) Create(session *board.Session) string {
	id := uuid.New().String()
	s.Set(id, session)
	return id
}

func (s *SessionStore) Get(sessionID string) (*board.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, exists := s.lookup(sessionID)
	if !exists {
		return nil, false
	}
	return entry.session, true
}

func (s *SessionStore) Set(sessionID string, session *board.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sessionID]; !exists {
		s.prune()
	}
	entry := &sessionEntry{session: session}
	entry.lastUsed.Store(s.now().UnixNano())
	s.sessions[sessionID] = entry
}

// Update runs fn on a session while holding the store lock, so mutations
// of one session never overlap
func (s *SessionStore) Update(sessionID string, fn func(*board.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.lookup(sessionID)
	if !exists {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return fn(entry.session)
}

// View runs fn on a session under the read lock
func (s *SessionStore) View(sessionID string, fn func(*board.Session) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.lookup(sessionID)
	if !exists {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return fn(entry.session)
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// lookup finds a live session and marks it used. Callers hold s.mu.
func (s *SessionStore) lookup(sessionID string) (*sessionEntry, bool) {
	entry, exists := s.sessions[sessionID]
	if !exists {
		return nil, false
	}
	now := s.now().UnixNano()
	if s.TTL > 0 && now-entry.lastUsed.Load() > int64(s.TTL) {
		return nil, false
	}
	entry.lastUsed.Store(now)
	return entry, true
}

// prune drops expired sessions and makes room for one more. Callers hold the write lock.
func (s *SessionStore) prune() {
	now := s.now().UnixNano()
	if s.TTL > 0 {
		for id, entry := range s.sessions {
			if now-entry.lastUsed.Load() > int64(s.TTL) {
				delete(s.sessions, id)
			}
		}
	}

	for s.MaxSessions > 0 && len(s.sessions) >= s.MaxSessions {
		var oldestID string
		oldest := int64(0)
		for id, entry := range s.sessions {
			if used := entry.lastUsed.Load(); oldestID == "" || used < oldest {
				oldestID, oldest = id, used
			}
		}
		delete(s.sessions, oldestID)
		slog.Debug("Evicted board session", "board", oldestID, "sessions", len(s.sessions))
	}
}
