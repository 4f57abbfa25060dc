// Package session keeps short conversational context per session so
// follow-up questions can reference earlier exchanges.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// exchange is one completed user query and its assistant answer.
type exchange struct {
	query  string
	answer string
}

// record is one session's bounded exchange window.
type record struct {
	mu        sync.Mutex
	exchanges []exchange
}

// Store is an in-memory session store. Each session retains at most
// maxHistory of its most recent exchanges; older ones are evicted
// oldest first.
type Store struct {
	mu         sync.RWMutex
	sessions   map[string]*record
	maxHistory int
}

// NewStore creates a Store retaining maxHistory exchanges per session.
func NewStore(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = 2
	}
	return &Store{
		sessions:   make(map[string]*record),
		maxHistory: maxHistory,
	}
}

// GetOrCreate returns the session id to use for a query. An empty id
// yields a fresh session; a caller-supplied id is adopted, creating
// the session on first use.
func (s *Store) GetOrCreate(id string) string {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	if _, ok := s.sessions[id]; !ok {
		s.sessions[id] = &record{}
	}
	s.mu.Unlock()
	return id
}

// Append records one completed exchange, evicting the oldest when the
// window is full. Appending to an unknown id creates the session.
func (s *Store) Append(id, query, answer string) {
	s.mu.Lock()
	rec, ok := s.sessions[id]
	if !ok {
		rec = &record{}
		s.sessions[id] = rec
	}
	s.mu.Unlock()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.exchanges = append(rec.exchanges, exchange{query: query, answer: answer})
	if len(rec.exchanges) > s.maxHistory {
		rec.exchanges = rec.exchanges[len(rec.exchanges)-s.maxHistory:]
	}
}

// History formats the session's retained exchanges oldest first, one
// "User:" and "Assistant:" line pair per exchange. Unknown or empty
// sessions yield "".
func (s *Store) History(id string) string {
	s.mu.RLock()
	rec, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return ""
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.exchanges) == 0 {
		return ""
	}

	lines := make([]string, 0, len(rec.exchanges))
	for _, ex := range rec.exchanges {
		lines = append(lines, fmt.Sprintf("User: %s\nAssistant: %s", ex.query, ex.answer))
	}
	return strings.Join(lines, "\n")
}
