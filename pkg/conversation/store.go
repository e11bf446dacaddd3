// Package conversation holds per-conversation state: message history and
// the current view. In-memory only; unbounded growth is an accepted
// limitation of the deployment, not a correctness issue.
package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetlens/mrrpv-engine/pkg/llm"
	"github.com/fleetlens/mrrpv-engine/pkg/metrics"
)

// Conversation is one conversation's stored state. CurrentView is the
// last-applied query parameters; it is updated only after a successful
// query, so a failed turn never corrupts it.
type Conversation struct {
	ID          string
	Messages    []llm.ChatMessage
	CurrentView *metrics.QueryParams
	UpdatedAt   time.Time
}

// Store is an in-memory conversation map with get-or-create semantics.
// Concurrent turns on the same conversation have last-write-wins semantics
// on the history, which is acceptable for a conversational (not
// transactional) workload; the lock exists for memory safety only.
type Store struct {
	mu    sync.RWMutex
	byID  map[string]*Conversation
	clock func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byID:  make(map[string]*Conversation),
		clock: time.Now,
	}
}

// GetOrCreate returns the conversation for id, creating it if absent. An
// empty id allocates a fresh conversation with a generated id.
func (s *Store) GetOrCreate(id string) *Conversation {
	if id == "" {
		id = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.byID[id]
	if !ok {
		conv = &Conversation{ID: id, UpdatedAt: s.clock()}
		s.byID[id] = conv
	}
	return conv
}

// History returns a copy of the conversation's messages.
func (s *Store) History(id string) []llm.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.byID[id]
	if !ok {
		return nil
	}
	return append([]llm.ChatMessage(nil), conv.Messages...)
}

// Append adds messages to the conversation's history.
func (s *Store) Append(id string, messages ...llm.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.byID[id]
	if !ok {
		conv = &Conversation{ID: id}
		s.byID[id] = conv
	}
	conv.Messages = append(conv.Messages, messages...)
	conv.UpdatedAt = s.clock()
}

// View returns a copy of the conversation's current view, or nil when no
// query has succeeded yet.
func (s *Store) View(id string) *metrics.QueryParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.byID[id]
	if !ok || conv.CurrentView == nil {
		return nil
	}
	view := conv.CurrentView.Clone()
	return &view
}

// SetView records the last-applied parameters as the current view.
func (s *Store) SetView(id string, view metrics.QueryParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.byID[id]
	if !ok {
		conv = &Conversation{ID: id}
		s.byID[id] = conv
	}
	v := view.Clone()
	conv.CurrentView = &v
	conv.UpdatedAt = s.clock()
}
