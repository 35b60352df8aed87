// Package conversation holds the in-memory message history for one
// assistant session.
package conversation

import (
	"sync"

	"github.com/vantagecrm/guru/domain"
)

// Store is the ordered, append-only message list for a session.
// Appends from concurrent sends are safe; order follows arrival.
type Store struct {
	mu       sync.Mutex
	messages []domain.Message
	isOpen   bool
}

// NewStore creates an empty, closed conversation store.
func NewStore() *Store {
	return &Store{}
}

// OpenWith marks the conversation open and, if the history is empty,
// appends the given welcome message. Repeated opens never add a second
// welcome. Returns whether the welcome was appended.
func (s *Store) OpenWith(welcome domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.isOpen = true
	if len(s.messages) > 0 {
		return false
	}
	s.messages = append(s.messages, welcome)
	return true
}

// Close hides the conversation without touching history.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isOpen = false
}

// Append adds a message at the end of the history.
func (s *Store) Append(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Clear empties the history. Open state is unaffected.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
}

// Messages returns a copy of the history in arrival order.
func (s *Store) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// IsOpen reports whether the conversation is currently open.
func (s *Store) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isOpen
}
