package session

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/figaro/pkg/chat/client"
	"github.com/go-go-golems/figaro/pkg/chat/conversations"
	"github.com/go-go-golems/figaro/pkg/chat/events"
	"github.com/go-go-golems/figaro/pkg/chat/frames"
	"github.com/go-go-golems/figaro/pkg/chat/transcript"
)

// DefaultCollection is the document collection queried when none is
// configured.
const DefaultCollection = "cmc_docs"

var ErrSessionBusy = errors.New("a streaming session is already in flight")

// Session drives one conversation view: it owns the transcript and
// conversation-list stores, opens one streaming connection per outgoing
// query, and feeds the decoded frames through classification and
// reconciliation in arrival order.
//
// The cross-callback state the stream needs — the id of the assistant
// message being filled, the pending persisted-conversation id, the liveness
// flag — lives here as explicit fields rather than in captured variables, so
// a session can be exercised without a live network.
type Session struct {
	client     *client.Client
	tokens     client.TokenProvider
	collection string

	transcript    *transcript.Store
	conversations *conversations.Store
	publisher     *events.PublisherManager
	logger        zerolog.Logger

	// alive gates all state mutation after the consuming view is torn down
	alive atomic.Bool

	mu             sync.Mutex
	conversationID string
	assistantID    string
	pendingID      string
	running        bool
	finalized      bool
}

type Option func(*Session)

func WithCollection(collection string) Option {
	return func(s *Session) {
		s.collection = collection
	}
}

// WithConversationID resumes an existing persisted conversation instead of
// starting an ephemeral one.
func WithConversationID(id string) Option {
	return func(s *Session) {
		s.conversationID = id
	}
}

func WithTranscriptStore(store *transcript.Store) Option {
	return func(s *Session) {
		s.transcript = store
	}
}

func WithConversationStore(store *conversations.Store) Option {
	return func(s *Session) {
		s.conversations = store
	}
}

func WithPublisherManager(publisher *events.PublisherManager) Option {
	return func(s *Session) {
		s.publisher = publisher
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

func New(c *client.Client, tokens client.TokenProvider, options ...Option) *Session {
	ret := &Session{
		client:        c,
		tokens:        tokens,
		collection:    DefaultCollection,
		transcript:    transcript.NewStore(),
		conversations: conversations.NewStore(),
		publisher:     events.NewPublisherManager(),
		logger:        log.Logger,
	}
	for _, o := range options {
		o(ret)
	}
	if ret.conversationID == "" {
		ret.conversationID = conversations.NewEphemeralID()
	}
	ret.alive.Store(true)
	return ret
}

// Close marks the consuming view as torn down. Any in-flight network read
// keeps draining, but no further state mutation or event publishing occurs.
func (s *Session) Close() {
	s.alive.Store(false)
}

func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Session) ConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationID
}

func (s *Session) Transcript() *transcript.Store {
	return s.transcript
}

func (s *Session) Conversations() *conversations.Store {
	return s.conversations
}

// Send issues one query: it inserts the optimistic user message and
// streaming assistant placeholder, opens the streaming connection, and
// consumes it to completion on the calling goroutine.
//
// A blank query or a missing credential is a no-op. A connection-phase
// failure is returned (and the placeholder moved to its errored state); a
// mid-stream failure is reported solely through the errored message.
func (s *Session) Send(ctx context.Context, query string) error {
	if strings.TrimSpace(query) == "" {
		s.logger.Debug().Msg("blank query, ignoring")
		return nil
	}
	if token, err := s.tokens.Token(); err != nil || token == "" {
		s.logger.Debug().Err(err).Msg("no credential available, ignoring send")
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	s.running = true
	s.finalized = false
	s.pendingID = ""
	convID := s.conversationID
	s.mu.Unlock()

	placeholder := transcript.NewAssistantPlaceholder()
	s.mu.Lock()
	s.assistantID = placeholder.ID
	s.mu.Unlock()

	s.transcript.Update(func(prev transcript.Snapshot) transcript.Snapshot {
		next := prev.Clone()
		return append(next, transcript.NewUserMessage(query), placeholder)
	})

	if conversations.IsEphemeral(convID) {
		s.conversations.Update(func(prev conversations.List) conversations.List {
			return conversations.InsertPlaceholder(prev, convID, time.Now())
		})
	} else {
		s.conversations.Update(func(prev conversations.List) conversations.List {
			return conversations.Touch(prev, convID, time.Now())
		})
	}

	req := client.QueryRequest{
		Query:          query,
		CollectionName: s.collection,
	}
	if !conversations.IsEphemeral(convID) {
		req.ConversationID = convID
	}

	body, err := s.client.QueryStream(ctx, req)
	if err != nil {
		s.fail(err)
		return errors.Wrap(err, "could not open stream")
	}
	defer func() {
		_ = body.Close()
	}()

	if err := s.Consume(ctx, body); err != nil {
		s.fail(err)
		return nil
	}
	s.finalize()
	return nil
}

// Consume drains one frame stream into the session. Exposed separately from
// Send so the reconciliation path is testable against any reader.
func (s *Session) Consume(ctx context.Context, r io.Reader) error {
	return frames.DecodeStream(ctx, r, func(frame string) error {
		s.apply(events.ClassifyFrame(frame))
		return nil
	})
}

func (s *Session) apply(e events.Event) {
	if !s.alive.Load() {
		return
	}

	switch ev := e.(type) {
	case *events.EventConversationMetadata:
		s.promote(ev)
	case *events.EventConversationTitleUpdate:
		s.conversations.Update(func(prev conversations.List) conversations.List {
			return conversations.UpdateTitle(prev, ev.ConversationID, ev.Title)
		})
		s.publisher.PublishBlind(ev)
	case *events.EventMessageStart:
		s.transcript.Update(func(prev transcript.Snapshot) transcript.Snapshot {
			return transcript.StartMessage(prev, ev.MessageID)
		})
		s.mu.Lock()
		s.assistantID = ev.MessageID
		s.mu.Unlock()
	case *events.EventDelta:
		s.appendDelta(ev.Text)
	case *events.EventRawText:
		s.appendDelta(ev.Text)
	case *events.EventStop:
		s.finalize()
	}
}

func (s *Session) appendDelta(text string) {
	if text == "" {
		return
	}
	snap := s.transcript.Update(func(prev transcript.Snapshot) transcript.Snapshot {
		return transcript.AppendDelta(prev, text)
	})
	if idx := snap.Streaming(); idx >= 0 {
		s.publisher.PublishBlind(events.NewPartialEvent(text, snap[idx].Text()))
	}
}

func (s *Session) promote(ev *events.EventConversationMetadata) {
	s.mu.Lock()
	if s.pendingID != "" || !conversations.IsEphemeral(s.conversationID) {
		s.mu.Unlock()
		s.logger.Debug().Str("conversation_id", ev.ConversationID).
			Msg("duplicate or unexpected conversation metadata, ignoring")
		return
	}
	ephemeralID := s.conversationID
	s.pendingID = ev.ConversationID
	s.mu.Unlock()

	s.conversations.Update(func(prev conversations.List) conversations.List {
		next, _ := conversations.Promote(prev, ephemeralID, ev.ConversationID, ev.Title, ev.UpdatedAt)
		return next
	})
	s.publisher.PublishBlind(ev)
}

// finalize merges partial text into content exactly once and, if the
// conversation was promoted mid-stream, announces the deferred navigation
// target after the finalize so observers never tear an in-progress render.
func (s *Session) finalize() {
	if !s.alive.Load() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	if s.finalized {
		s.mu.Unlock()
		return
	}
	s.finalized = true
	s.running = false
	pending := s.pendingID
	s.pendingID = ""
	if pending != "" {
		s.conversationID = pending
	}
	assistantID := s.assistantID
	s.mu.Unlock()

	snap := s.transcript.Update(func(prev transcript.Snapshot) transcript.Snapshot {
		next, _ := transcript.Finalize(prev)
		return next
	})

	finalText := ""
	for i := range snap {
		if snap[i].ID == assistantID {
			finalText = snap[i].Content
			break
		}
	}
	s.publisher.PublishBlind(events.NewFinalEvent(assistantID, finalText))
	if pending != "" {
		s.publisher.PublishBlind(events.NewNavigateEvent(pending))
	}
}

func (s *Session) fail(err error) {
	s.logger.Warn().Err(err).Msg("stream failed")

	s.mu.Lock()
	alreadyDone := s.finalized
	s.finalized = true
	s.running = false
	s.pendingID = ""
	s.mu.Unlock()

	if alreadyDone || !s.alive.Load() {
		return
	}

	s.transcript.Update(transcript.Fail)
	s.publisher.PublishBlind(events.NewErrorEvent(err))
}

// SwitchConversation makes another conversation active and loads its
// history. The backend returns history newest first; the transcript wants
// oldest first. An empty id starts a fresh ephemeral conversation.
// Switching is refused while a stream is in flight.
func (s *Session) SwitchConversation(ctx context.Context, id string) error {
	if id == "" {
		id = conversations.NewEphemeralID()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	s.conversationID = id
	s.mu.Unlock()

	if conversations.IsEphemeral(id) {
		s.transcript.Replace(nil)
		return nil
	}

	history, err := s.client.ListMessages(ctx, id)
	if err != nil {
		return errors.Wrap(err, "could not load history")
	}
	if !s.alive.Load() {
		return nil
	}
	s.transcript.Replace(transcript.FromHistory(history))
	return nil
}

// RefreshConversations reloads the sidebar listing from the backend.
func (s *Session) RefreshConversations(ctx context.Context) error {
	list, err := s.client.ListConversations(ctx)
	if err != nil {
		return errors.Wrap(err, "could not refresh conversations")
	}
	if !s.alive.Load() {
		return nil
	}
	s.conversations.Replace(list)
	return nil
}
