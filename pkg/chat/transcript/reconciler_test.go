package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/figaro/pkg/chat/events"
)

func streamingPair() Snapshot {
	return Snapshot{
		NewUserMessage("What is CMC?"),
		NewAssistantPlaceholder(),
	}
}

func TestAppendDeltaAccumulatesInArrivalOrder(t *testing.T) {
	s := streamingPair()
	for _, delta := range []string{"CMC ", "stands ", "for..."} {
		s = AppendDelta(s, delta)
	}
	require.Equal(t, "CMC stands for...", s[1].Partial)
	assert.Empty(t, s[1].Content)
	assert.True(t, s[1].IsStreaming)
}

func TestAppendDeltaWithoutStreamingMessageIsNoop(t *testing.T) {
	s := Snapshot{NewUserMessage("hi")}
	next := AppendDelta(s, "orphan")
	assert.Equal(t, s, next)
}

func TestStartMessageReplacesPlaceholderID(t *testing.T) {
	s := streamingPair()
	placeholderID := s[1].ID

	s = AppendDelta(s, "before ")
	s = StartMessage(s, "m1")
	s = AppendDelta(s, "after")

	require.Equal(t, "m1", s[1].ID)
	assert.NotEqual(t, placeholderID, s[1].ID)
	// deltas before and after the id swap land in the same message
	assert.Equal(t, "before after", s[1].Partial)
}

func TestFinalizeMergesTrimmedPartialExactlyOnce(t *testing.T) {
	s := streamingPair()
	s = AppendDelta(s, "  CMC stands for...  ")

	s, merged := Finalize(s)
	require.True(t, merged)
	assert.Equal(t, "CMC stands for...", s[1].Content)
	assert.Empty(t, s[1].Partial)
	assert.False(t, s[1].IsStreaming)

	again, merged := Finalize(s)
	assert.False(t, merged)
	assert.Equal(t, s, again)
}

func TestFailDiscardsPartialText(t *testing.T) {
	s := streamingPair()
	s = AppendDelta(s, "Hel")
	s = AppendDelta(s, "lo")

	s = Fail(s)
	require.Equal(t, ErrorText, s[1].Content)
	assert.Empty(t, s[1].Partial)
	assert.False(t, s[1].IsStreaming)
}

func TestRawTextFallbackMatchesDelta(t *testing.T) {
	viaDelta := Apply(streamingPair(), events.ClassifyFrame(`{"choices":[{"delta":{"content":"hello"}}]}`))
	viaFallback := Apply(streamingPair(), events.ClassifyFrame("hello"))
	assert.Equal(t, viaDelta[1].Partial, viaFallback[1].Partial)
}

func TestTransformsDoNotMutatePublishedSnapshots(t *testing.T) {
	before := streamingPair()
	frozen := before.Clone()

	after := AppendDelta(before, "delta")
	require.NotEqual(t, frozen[1].Partial, after[1].Partial)
	assert.Equal(t, frozen, before)

	final, _ := Finalize(after)
	assert.Empty(t, after[1].Content)
	assert.NotEmpty(t, final[1].Content)
}

func TestApplyDispatch(t *testing.T) {
	s := streamingPair()
	s = Apply(s, events.ClassifyFrame(`{"event":"message_start","message_id":"m1"}`))
	s = Apply(s, events.ClassifyFrame(`{"choices":[{"delta":{"content":"CMC "}}]}`))
	s = Apply(s, events.ClassifyFrame(`{"choices":[{"delta":{"content":"stands for..."}}]}`))
	s = Apply(s, events.ClassifyFrame(`{"choices":[{"delta":{},"finish_reason":"stop"}]}`))

	require.Len(t, s, 2)
	assert.Equal(t, "m1", s[1].ID)
	assert.Equal(t, "CMC stands for...", s[1].Content)
	assert.Empty(t, s[1].Partial)
	assert.False(t, s[1].IsStreaming)
}

func TestFromHistoryReversesAndNormalizes(t *testing.T) {
	history := []HistoryMessage{
		{ID: 3, Sender: SenderAssistant, Content: "newest"},
		{ID: "m2", Sender: SenderUser, Content: "middle"},
		{Sender: SenderUser, Content: "oldest"},
	}
	s := FromHistory(history)
	require.Len(t, s, 3)
	assert.Equal(t, "oldest", s[0].Content)
	assert.Equal(t, "newest", s[2].Content)
	assert.Equal(t, "m2", s[1].ID)
	assert.Equal(t, "3", s[2].ID)
	assert.NotEmpty(t, s[0].ID)
	for _, m := range s {
		assert.False(t, m.IsStreaming)
		assert.Empty(t, m.Partial)
	}
}

func TestStoreUpdateIsReadModifyWrite(t *testing.T) {
	store := NewStore()
	store.Replace(streamingPair())

	store.Update(func(prev Snapshot) Snapshot { return AppendDelta(prev, "a") })
	store.Update(func(prev Snapshot) Snapshot { return AppendDelta(prev, "b") })

	assert.Equal(t, "ab", store.Snapshot()[1].Partial)
}
