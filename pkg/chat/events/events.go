package events

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type EventType string

const (
	// Wire-level events decoded from protocol frames
	EventTypeConversationMetadata    EventType = "conversation_metadata"
	EventTypeConversationTitleUpdate EventType = "conversation_title_update"
	EventTypeMessageStart            EventType = "message_start"
	EventTypeDelta                   EventType = "delta"
	EventTypeStop                    EventType = "stop"
	EventTypeRawText                 EventType = "raw-text"

	// Session-level events published to observers
	EventTypePartial  EventType = "partial"
	EventTypeFinal    EventType = "final"
	EventTypeError    EventType = "error"
	EventTypeNavigate EventType = "navigate"
)

// Event is one typed occurrence in a streaming chat session: either a wire
// event classified from a protocol frame, or a session event emitted by the
// stream controller for observers.
type Event interface {
	Type() EventType
	// Raw returns the protocol frame the event was decoded from, empty for
	// session-level events.
	Raw() string
}

type EventImpl struct {
	Type_ EventType `json:"type"`
	raw   string
}

func (e *EventImpl) Type() EventType {
	return e.Type_
}

func (e *EventImpl) Raw() string {
	return e.raw
}

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
}

var _ Event = &EventImpl{}

// EventConversationMetadata signals the ephemeral-to-persisted transition of
// the active conversation.
type EventConversationMetadata struct {
	EventImpl
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewConversationMetadataEvent(raw string, conversationID string, title string, updatedAt time.Time) *EventConversationMetadata {
	return &EventConversationMetadata{
		EventImpl:      EventImpl{Type_: EventTypeConversationMetadata, raw: raw},
		ConversationID: conversationID,
		Title:          title,
		UpdatedAt:      updatedAt,
	}
}

func (e EventConversationMetadata) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("conversation_id", e.ConversationID).Str("title", e.Title).Time("updated_at", e.UpdatedAt)
}

var _ Event = &EventConversationMetadata{}

// EventConversationTitleUpdate is a later title refinement, independent of
// the id transition.
type EventConversationTitleUpdate struct {
	EventImpl
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
}

func NewConversationTitleUpdateEvent(raw string, conversationID string, title string) *EventConversationTitleUpdate {
	return &EventConversationTitleUpdate{
		EventImpl:      EventImpl{Type_: EventTypeConversationTitleUpdate, raw: raw},
		ConversationID: conversationID,
		Title:          title,
	}
}

func (e EventConversationTitleUpdate) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("conversation_id", e.ConversationID).Str("title", e.Title)
}

var _ Event = &EventConversationTitleUpdate{}

// EventMessageStart carries the durable server-issued id of the in-flight
// assistant message.
type EventMessageStart struct {
	EventImpl
	MessageID string `json:"message_id"`
}

func NewMessageStartEvent(raw string, messageID string) *EventMessageStart {
	return &EventMessageStart{
		EventImpl: EventImpl{Type_: EventTypeMessageStart, raw: raw},
		MessageID: messageID,
	}
}

func (e EventMessageStart) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("message_id", e.MessageID)
}

var _ Event = &EventMessageStart{}

// EventDelta is an incremental fragment of assistant text.
type EventDelta struct {
	EventImpl
	Text string `json:"text"`
}

func NewDeltaEvent(raw string, text string) *EventDelta {
	return &EventDelta{
		EventImpl: EventImpl{Type_: EventTypeDelta, raw: raw},
		Text:      text,
	}
}

func (e EventDelta) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("text", e.Text)
}

var _ Event = &EventDelta{}

// EventStop signals that the assistant message is complete.
type EventStop struct {
	EventImpl
}

func NewStopEvent(raw string) *EventStop {
	return &EventStop{EventImpl: EventImpl{Type_: EventTypeStop, raw: raw}}
}

var _ Event = &EventStop{}

// EventRawText is the fallback for frames that cannot be parsed as
// structured data. Its text is treated as a delta downstream, which keeps a
// non-conformant backend from stalling the session.
type EventRawText struct {
	EventImpl
	Text string `json:"text"`
}

func NewRawTextEvent(raw string) *EventRawText {
	return &EventRawText{
		EventImpl: EventImpl{Type_: EventTypeRawText, raw: raw},
		Text:      raw,
	}
}

func (e EventRawText) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("text", e.Text)
}

var _ Event = &EventRawText{}

// EventPartial is published after every applied delta with the accumulated
// completion so far.
type EventPartial struct {
	EventImpl
	Delta      string `json:"delta"`
	Completion string `json:"completion"`
}

func NewPartialEvent(delta string, completion string) *EventPartial {
	return &EventPartial{
		EventImpl:  EventImpl{Type_: EventTypePartial},
		Delta:      delta,
		Completion: completion,
	}
}

func (e EventPartial) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("delta", e.Delta).Str("completion", e.Completion)
}

var _ Event = &EventPartial{}

// EventFinal is published exactly once when the assistant message is
// finalized.
type EventFinal struct {
	EventImpl
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

func NewFinalEvent(messageID string, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{Type_: EventTypeFinal},
		MessageID: messageID,
		Text:      text,
	}
}

func (e EventFinal) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("message_id", e.MessageID).Str("text", e.Text)
}

var _ Event = &EventFinal{}

// EventError is published when a transport failure terminates the session.
type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewErrorEvent(err error) *EventError {
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeError},
		ErrorString: err.Error(),
	}
}

func (e EventError) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("error", e.ErrorString)
}

var _ Event = &EventError{}

// EventNavigate is published once after finalize when the session's
// conversation was promoted mid-stream, so observers can switch to the
// persisted conversation without tearing an in-progress render.
type EventNavigate struct {
	EventImpl
	ConversationID string `json:"conversation_id"`
}

func NewNavigateEvent(conversationID string) *EventNavigate {
	return &EventNavigate{
		EventImpl:      EventImpl{Type_: EventTypeNavigate},
		ConversationID: conversationID,
	}
}

func (e EventNavigate) MarshalZerologObject(ev *zerolog.Event) {
	e.EventImpl.MarshalZerologObject(ev)
	ev.Str("conversation_id", e.ConversationID)
}

var _ Event = &EventNavigate{}

// NewEventFromJSON rebuilds a typed event from a serialized payload, as
// published by the PublisherManager.
func NewEventFromJSON(b []byte) (Event, error) {
	var hdr struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(b, &hdr); err != nil {
		return nil, errors.Wrap(err, "could not parse event header")
	}

	switch hdr.Type {
	case EventTypeConversationMetadata:
		return toTypedEvent[EventConversationMetadata](b)
	case EventTypeConversationTitleUpdate:
		return toTypedEvent[EventConversationTitleUpdate](b)
	case EventTypeMessageStart:
		return toTypedEvent[EventMessageStart](b)
	case EventTypeDelta:
		return toTypedEvent[EventDelta](b)
	case EventTypeStop:
		return toTypedEvent[EventStop](b)
	case EventTypeRawText:
		return toTypedEvent[EventRawText](b)
	case EventTypePartial:
		return toTypedEvent[EventPartial](b)
	case EventTypeFinal:
		return toTypedEvent[EventFinal](b)
	case EventTypeError:
		return toTypedEvent[EventError](b)
	case EventTypeNavigate:
		return toTypedEvent[EventNavigate](b)
	}

	return nil, errors.Errorf("unknown event type %q", hdr.Type)
}

func toTypedEvent[T any](b []byte) (*T, error) {
	var ret *T
	if err := json.Unmarshal(b, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}
