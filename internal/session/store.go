// ABOUTME: In-memory per-sender session store for conversation state.
// ABOUTME: Sessions are created implicitly and replaced wholesale from dialog replies.

package session

import (
	"sync"
)

// Session holds the conversational state for one sender. ConversationID and
// ClientID are opaque handles issued by the dialog engine; both are empty
// until the first reply. ClassifierID, when non-empty, names the trained
// classifier that should screen this sender's next utterances.
type Session struct {
	SenderID       string
	ConversationID string
	ClientID       string
	ClassifierID   string
}

// Store keeps one Session per sender for the lifetime of the process.
// It is safe for concurrent use. There is no persistence; a restart
// starts every sender over, which the dialog engine treats as a new
// conversation.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns a copy of the sender's session, creating an empty one
// if the sender has never been seen. Creation is idempotent.
func (s *Store) GetOrCreate(senderID string) Session {
	s.mu.RLock()
	if sess, ok := s.sessions[senderID]; ok {
		copied := *sess
		s.mu.RUnlock()
		return copied
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the write lock; another goroutine may have created it.
	if sess, ok := s.sessions[senderID]; ok {
		return *sess
	}
	sess := &Session{SenderID: senderID}
	s.sessions[senderID] = sess
	return *sess
}

// Reset clears every field of the sender's session except the sender
// identity itself. Resetting an unknown or already-empty session is a no-op
// that still leaves an empty session in place.
func (s *Store) Reset(senderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[senderID] = &Session{SenderID: senderID}
}

// Update replaces the conversation handles and classifier id wholesale with
// the values from the latest dialog-engine reply. An empty classifierID
// explicitly clears any previously active classifier; fields are never
// merged.
func (s *Store) Update(senderID, conversationID, clientID, classifierID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[senderID] = &Session{
		SenderID:       senderID,
		ConversationID: conversationID,
		ClientID:       clientID,
		ClassifierID:   classifierID,
	}
}

// Len returns the number of known senders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
