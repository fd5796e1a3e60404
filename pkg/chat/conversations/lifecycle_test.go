package conversations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

func TestInsertPlaceholderPrepends(t *testing.T) {
	prev := List{{ID: "c-old", Title: "Old chat"}}
	tempID := NewEphemeralID()

	next := InsertPlaceholder(prev, tempID, now)
	require.Len(t, next, 2)
	assert.Equal(t, tempID, next[0].ID)
	assert.Equal(t, PlaceholderTitle, next[0].Title)
	assert.True(t, next[0].IsStreamingTitle)
	assert.Equal(t, "c-old", next[1].ID)
}

func TestInsertPlaceholderIsIdempotent(t *testing.T) {
	tempID := NewEphemeralID()
	next := InsertPlaceholder(nil, tempID, now)
	again := InsertPlaceholder(next, tempID, now)
	assert.Equal(t, next, again)
}

func TestPromoteRewritesInPlace(t *testing.T) {
	tempID := NewEphemeralID()
	prev := List{
		{ID: "c-other", Title: "Other"},
		{ID: tempID, Title: PlaceholderTitle, IsStreamingTitle: true},
	}

	next, ok := Promote(prev, tempID, "c-42", "CMC basics", now)
	require.True(t, ok)
	require.Len(t, next, len(prev))
	// same slot, new identity
	assert.Equal(t, "c-42", next[1].ID)
	assert.Equal(t, "CMC basics", next[1].Title)
	assert.Equal(t, now, next[1].UpdatedAt)
	assert.Equal(t, "c-other", next[0].ID)
}

func TestPromoteTwiceIsNoop(t *testing.T) {
	tempID := NewEphemeralID()
	prev := List{{ID: tempID, Title: PlaceholderTitle}}

	next, ok := Promote(prev, tempID, "c-42", "T", now)
	require.True(t, ok)

	again, ok := Promote(next, tempID, "c-43", "Other", now)
	assert.False(t, ok)
	assert.Equal(t, next, again)
}

func TestUpdateTitleClearsStreamingFlag(t *testing.T) {
	prev := List{{ID: "c-42", Title: PlaceholderTitle, IsStreamingTitle: true}}
	next := UpdateTitle(prev, "c-42", "Refined title")
	assert.Equal(t, "Refined title", next[0].Title)
	assert.False(t, next[0].IsStreamingTitle)
}

func TestUpdateTitleUnknownIDIsNoop(t *testing.T) {
	prev := List{{ID: "c-42", Title: "T"}}
	assert.Equal(t, prev, UpdateTitle(prev, "c-99", "X"))
}

func TestIsEphemeral(t *testing.T) {
	assert.True(t, IsEphemeral(NewEphemeralID()))
	assert.False(t, IsEphemeral("e89c8a82-cf8c-4680-87cc-cba97feee36d"))
	assert.False(t, IsEphemeral(""))
}

func TestTransformsDoNotMutateInput(t *testing.T) {
	tempID := NewEphemeralID()
	prev := List{{ID: tempID, Title: PlaceholderTitle, IsStreamingTitle: true}}
	frozen := prev.Clone()

	_, _ = Promote(prev, tempID, "c-42", "T", now)
	_ = UpdateTitle(prev, tempID, "X")
	_ = Touch(prev, tempID, now)

	assert.Equal(t, frozen, prev)
}
