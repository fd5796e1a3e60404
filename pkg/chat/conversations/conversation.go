package conversations

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EphemeralPrefix namespaces conversation ids that exist only in client
// state, before the backend has acknowledged the conversation.
const EphemeralPrefix = "temp-"

// PlaceholderTitle labels a conversation whose real title is still being
// generated server-side.
const PlaceholderTitle = "New Conversation"

// Conversation is one sidebar entry. Its id starts out ephemeral for new
// chats and is rewritten in place, exactly once, when the backend issues the
// persisted id.
type Conversation struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	UpdatedAt        time.Time `json:"updated_at"`
	IsStreamingTitle bool      `json:"isStreamingTitle,omitempty"`
}

func NewEphemeralID() string {
	return EphemeralPrefix + uuid.NewString()
}

func IsEphemeral(id string) bool {
	return strings.HasPrefix(id, EphemeralPrefix)
}

// List is an immutable snapshot of the conversation sidebar, most recently
// active first.
type List []Conversation

func (l List) Clone() List {
	out := make(List, len(l))
	copy(out, l)
	return out
}

func (l List) index(id string) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}

// Store holds the current conversation list under the same snapshot-replace
// discipline as the transcript store.
type Store struct {
	mu   sync.Mutex
	list List
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Snapshot() List {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list
}

func (s *Store) Update(fn func(List) List) List {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = fn(s.list)
	return s.list
}

func (s *Store) Replace(list List) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.list = list
}
