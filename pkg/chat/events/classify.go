package events

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// wireHeader is the minimal envelope of the backend's named events.
type wireHeader struct {
	Event          string `json:"event"`
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	UpdatedAt      string `json:"updated_at"`
	MessageID      string `json:"message_id"`
}

// ClassifyFrame turns one protocol frame into exactly one typed event. It
// never fails: frames that cannot be parsed as structured data degrade to a
// raw-text fallback, and structured frames of an unknown kind degrade to an
// empty delta, so an evolving or non-conformant backend never stalls the
// session.
func ClassifyFrame(frame string) Event {
	var hdr wireHeader
	if err := json.Unmarshal([]byte(frame), &hdr); err != nil {
		return NewRawTextEvent(frame)
	}

	switch hdr.Event {
	case "conversation_metadata":
		return NewConversationMetadataEvent(frame, hdr.ConversationID, hdr.Title, parseUpdatedAt(hdr.UpdatedAt))
	case "conversation_title_update":
		return NewConversationTitleUpdateEvent(frame, hdr.ConversationID, hdr.Title)
	case "message_start":
		return NewMessageStartEvent(frame, hdr.MessageID)
	case "":
		// completion chunk, OpenAI stream shape
		var chunk openai.ChatCompletionStreamResponse
		if err := json.Unmarshal([]byte(frame), &chunk); err == nil && len(chunk.Choices) > 0 {
			choice := chunk.Choices[0]
			if choice.Delta.Content != "" {
				return NewDeltaEvent(frame, choice.Delta.Content)
			}
			if choice.FinishReason == openai.FinishReasonStop {
				return NewStopEvent(frame)
			}
		}
		log.Debug().Str("frame", frame).Msg("structured frame without choices, ignoring")
		return NewDeltaEvent(frame, "")
	default:
		log.Debug().Str("event", hdr.Event).Msg("unknown wire event, ignoring")
		return NewDeltaEvent(frame, "")
	}
}

func parseUpdatedAt(s string) time.Time {
	if s == "" {
		return time.Now()
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		log.Debug().Str("updated_at", s).Msg("unparseable timestamp in conversation metadata")
		return time.Now()
	}
	return t
}
