package conversations

import (
	"time"

	"github.com/rs/zerolog/log"
)

// InsertPlaceholder prepends the optimistic entry for a new ephemeral
// conversation. Inserting an id that is already present is a no-op, so a
// session restart does not duplicate the entry.
func InsertPlaceholder(prev List, ephemeralID string, now time.Time) List {
	if prev.index(ephemeralID) >= 0 {
		return prev
	}
	next := make(List, 0, len(prev)+1)
	next = append(next, Conversation{
		ID:               ephemeralID,
		Title:            PlaceholderTitle,
		UpdatedAt:        now,
		IsStreamingTitle: true,
	})
	return append(next, prev...)
}

// Promote rewrites the ephemeral entry's id to the persisted one, in place
// (same list slot), and reports whether a rewrite happened. An absent
// ephemeral id makes it a no-op, which is what keeps a duplicate
// conversation_metadata event from rewriting twice.
func Promote(prev List, ephemeralID string, persistedID string, title string, updatedAt time.Time) (List, bool) {
	idx := prev.index(ephemeralID)
	if idx < 0 {
		log.Debug().
			Str("ephemeral_id", ephemeralID).
			Str("persisted_id", persistedID).
			Msg("promotion target not found, ignoring")
		return prev, false
	}
	next := prev.Clone()
	next[idx].ID = persistedID
	next[idx].Title = title
	next[idx].UpdatedAt = updatedAt
	return next, true
}

// UpdateTitle sets the persisted conversation's title and marks title
// generation as done. Title updates may arrive after or independent of the
// id transition; an unknown id is dropped.
func UpdateTitle(prev List, persistedID string, title string) List {
	idx := prev.index(persistedID)
	if idx < 0 {
		log.Debug().Str("conversation_id", persistedID).Msg("title update for unknown conversation, dropping")
		return prev
	}
	next := prev.Clone()
	next[idx].Title = title
	next[idx].IsStreamingTitle = false
	return next
}

// Touch refreshes the last-activity timestamp of a conversation.
func Touch(prev List, id string, now time.Time) List {
	idx := prev.index(id)
	if idx < 0 {
		return prev
	}
	next := prev.Clone()
	next[idx].UpdatedAt = now
	return next
}
