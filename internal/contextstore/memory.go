package contextstore

import (
	"context"
	"sync"
)

// MemoryStore is the in-process context store: a keyed map guarded by one
// lock, entries newest-first per conversation.
type MemoryStore struct {
	window Window

	mu      sync.Mutex
	history map[string][]Entry
}

// NewMemory creates an in-memory context store.
func NewMemory(window Window) *MemoryStore {
	if window.Capacity == 0 {
		window = DefaultWindow()
	}
	return &MemoryStore{
		window:  window,
		history: make(map[string][]Entry),
	}
}

func key(customerID, businessID string) string {
	return customerID + ":" + businessID
}

// Get returns the windowed context for a conversation, oldest-first.
func (s *MemoryStore) Get(_ context.Context, customerID, businessID string, asOf int64) []string {
	s.mu.Lock()
	entries := s.history[key(customerID, businessID)]
	s.mu.Unlock()
	return windowed(entries, s.window, asOf)
}

// Record appends a message to the conversation's history.
func (s *MemoryStore) Record(_ context.Context, customerID, businessID, text string, ts int64) {
	k := key(customerID, businessID)
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append([]Entry{{Text: text, Timestamp: ts}}, s.history[k]...)
	if len(entries) > maxStored {
		entries = entries[:maxStored]
	}
	s.history[k] = entries
}

// Clear removes all stored entries for the conversation.
func (s *MemoryStore) Clear(_ context.Context, customerID, businessID string) {
	s.mu.Lock()
	delete(s.history, key(customerID, businessID))
	s.mu.Unlock()
}
