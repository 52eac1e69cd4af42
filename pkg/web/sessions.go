package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"igpicker/pkg/selection"
)

// SessionCookie names the cookie carrying the browser session ID
const SessionCookie = "igpicker_session"

// BrowserState is what one browser sees between requests: the last
// submitted usernames and the session produced by the last fetch.
type BrowserState struct {
	Usernames string
	Session   *selection.Session
	Saved     bool

	lastSeen time.Time
}

// SessionStore keeps browser state in memory, keyed by cookie ID. Entries
// idle for longer than ttl are evicted.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*BrowserState
}

// NewSessionStore creates an empty store
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*BrowserState),
	}
}

// Get returns a snapshot of the state for id, creating a fresh one under a new ID when
// id is unknown or expired. The returned ID is the one to set as cookie.
func (s *SessionStore) Get(id string) (string, BrowserState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if st, ok := s.entries[id]; ok && now.Sub(st.lastSeen) <= s.ttl {
		st.lastSeen = now
		return id, *st
	}

	delete(s.entries, id)
	id = uuid.NewString()
	st := &BrowserState{Usernames: DefaultUsernames, lastSeen: now}
	s.entries[id] = st
	return id, *st
}

// Lookup returns the state for id without creating one
func (s *SessionStore) Lookup(id string) (BrowserState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.entries[id]
	if !ok || s.now().Sub(st.lastSeen) > s.ttl {
		return BrowserState{}, false
	}
	st.lastSeen = s.now()
	return *st, true
}

// Replace installs a new fetch result for id; the previous session is dropped
func (s *SessionStore) Replace(id, usernames string, session *selection.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[id] = &BrowserState{
		Usernames: usernames,
		Session:   session,
		lastSeen:  s.now(),
	}
}

// MarkSaved records that the selection was saved at least once
func (s *SessionStore) MarkSaved(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.entries[id]; ok {
		st.Saved = true
	}
}

// Len returns the number of live entries
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Evict removes expired entries and returns how many were dropped
func (s *SessionStore) Evict() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	n := 0
	for id, st := range s.entries {
		if st.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// RunCleanup evicts expired entries every interval until stop is closed
func (s *SessionStore) RunCleanup(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Evict()
		case <-stop:
			return
		}
	}
}
