package transcript

import (
	"fmt"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one entry of a conversation transcript.
//
// Content is append-only: during streaming, incoming text accumulates in
// Partial, and exactly one finalize merges the trimmed buffer into Content
// and ends the streaming state. Messages are plain values; published
// snapshots are never mutated in place.
type Message struct {
	ID          string `json:"id"`
	Sender      Sender `json:"sender"`
	Content     string `json:"content"`
	Partial     string `json:"partial,omitempty"`
	IsStreaming bool   `json:"isStreaming,omitempty"`

	// server-side metadata, passed through untouched
	TokensUsed int    `json:"tokens_used,omitempty"`
	ModelName  string `json:"model_name,omitempty"`
	Feedback   string `json:"feedback,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// Text returns what the message currently displays as: finalized content
// plus any in-flight partial text.
func (m Message) Text() string {
	return m.Content + m.Partial
}

func NewUserMessage(query string) Message {
	return Message{
		ID:      uuid.NewString(),
		Sender:  SenderUser,
		Content: query,
	}
}

// NewAssistantPlaceholder creates the empty streaming message that deltas
// will accumulate into.
func NewAssistantPlaceholder() Message {
	return Message{
		ID:          uuid.NewString(),
		Sender:      SenderAssistant,
		IsStreaming: true,
	}
}

// HistoryMessage is the wire shape of a persisted message as returned by the
// history endpoint. The id is left untyped because the backend has returned
// both strings and numbers for it.
type HistoryMessage struct {
	ID         any    `json:"id"`
	Sender     Sender `json:"sender"`
	Content    string `json:"content"`
	TokensUsed int    `json:"tokens_used,omitempty"`
	ModelName  string `json:"model_name,omitempty"`
	Feedback   string `json:"feedback,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// FromHistory normalizes a newest-first history listing into an oldest-first
// snapshot: ids are stringified (or freshly generated when absent) and all
// streaming state is cleared.
func FromHistory(history []HistoryMessage) Snapshot {
	out := make(Snapshot, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		h := history[i]
		id := ""
		if h.ID != nil {
			id = fmt.Sprint(h.ID)
		}
		if id == "" {
			id = uuid.NewString()
		}
		out = append(out, Message{
			ID:         id,
			Sender:     h.Sender,
			Content:    h.Content,
			TokensUsed: h.TokensUsed,
			ModelName:  h.ModelName,
			Feedback:   h.Feedback,
			CreatedAt:  h.CreatedAt,
		})
	}
	return out
}
