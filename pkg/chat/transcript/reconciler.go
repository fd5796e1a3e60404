package transcript

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/figaro/pkg/chat/events"
)

// ErrorText replaces the assistant message when the transport fails
// mid-stream. Partial text is discarded, not kept.
const ErrorText = "Sorry, something went wrong."

// AppendDelta appends text to the partial buffer of the streaming message.
// A delta with no streaming message is a protocol violation and is dropped.
func AppendDelta(prev Snapshot, text string) Snapshot {
	idx := prev.Streaming()
	if idx < 0 {
		if text != "" {
			log.Debug().Str("text", text).Msg("delta with no streaming message, dropping")
		}
		return prev
	}
	next := prev.Clone()
	next[idx].Partial += text
	return next
}

// StartMessage replaces the client-generated id of the streaming placeholder
// with the server-issued one. Later deltas keep addressing the message
// through its streaming flag, so id replacement cannot race delta arrival.
func StartMessage(prev Snapshot, messageID string) Snapshot {
	idx := prev.Streaming()
	if idx < 0 {
		log.Debug().Str("message_id", messageID).Msg("message_start with no streaming message, dropping")
		return prev
	}
	next := prev.Clone()
	next[idx].ID = messageID
	return next
}

// Finalize merges the trimmed partial buffer into content and ends the
// streaming state. It reports whether a merge happened; with no streaming
// message it is a no-op, which makes a second stop (or a stream end after a
// stop) idempotent.
func Finalize(prev Snapshot) (Snapshot, bool) {
	idx := prev.Streaming()
	if idx < 0 {
		return prev, false
	}
	next := prev.Clone()
	next[idx].Content += strings.TrimSpace(next[idx].Partial)
	next[idx].Partial = ""
	next[idx].IsStreaming = false
	return next, true
}

// Fail moves the streaming message to its errored terminal state: fixed
// apology text, partial discarded, streaming ended.
func Fail(prev Snapshot) Snapshot {
	idx := prev.Streaming()
	if idx < 0 {
		return prev
	}
	next := prev.Clone()
	next[idx].Content = ErrorText
	next[idx].Partial = ""
	next[idx].IsStreaming = false
	return next
}

// Apply dispatches a classified wire event to the matching transform.
// Lifecycle events are not transcript concerns and pass through unchanged.
func Apply(prev Snapshot, e events.Event) Snapshot {
	switch ev := e.(type) {
	case *events.EventDelta:
		return AppendDelta(prev, ev.Text)
	case *events.EventRawText:
		return AppendDelta(prev, ev.Text)
	case *events.EventMessageStart:
		return StartMessage(prev, ev.MessageID)
	case *events.EventStop:
		next, _ := Finalize(prev)
		return next
	default:
		return prev
	}
}
