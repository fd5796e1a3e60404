package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/figaro/pkg/chat/conversations"
	"github.com/go-go-golems/figaro/pkg/chat/transcript"
)

// TokenProvider supplies the bearer credential for backend calls. Token
// acquisition and storage live outside this engine; an empty token blocks
// sending.
type TokenProvider interface {
	Token() (string, error)
}

// StaticToken is a TokenProvider for a fixed credential.
type StaticToken string

func (t StaticToken) Token() (string, error) {
	return string(t), nil
}

// Client talks to the chat backend: one streaming query endpoint plus the
// plain listing endpoints for conversations and message history.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenProvider
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL string, tokens TokenProvider, options ...ClientOption) *Client {
	ret := &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		tokens:     tokens,
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

// QueryRequest is the body of a streaming query. ConversationID is omitted
// for ephemeral conversations; the backend then creates a persisted one and
// announces it mid-stream.
type QueryRequest struct {
	Query          string `json:"query"`
	CollectionName string `json:"collection_name"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ErrorResponse is the backend's error body shape.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func (c *Client) setHeaders(req *http.Request) error {
	token, err := c.tokens.Token()
	if err != nil {
		return errors.Wrap(err, "could not get token")
	}
	if token == "" {
		return errors.New("no token available")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return nil
}

// QueryStream opens the streaming connection and returns the raw chunked
// body. The caller owns closing it; frame decoding happens upstream.
func (c *Client) QueryStream(ctx context.Context, req QueryRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	req_, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/query_stream", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	if err := c.setHeaders(req_); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req_)
	if err != nil {
		return nil, errors.Wrap(err, "query stream request failed")
	}

	if resp.StatusCode != http.StatusOK {
		defer func(Body io.ReadCloser) {
			_ = Body.Close()
		}(resp.Body)
		return nil, decodeError(resp, "query failed")
	}

	return resp.Body, nil
}

type wireConversation struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UpdatedAt string `json:"updated_at"`
}

// ListConversations fetches the sidebar listing, most recently active first.
func (c *Client) ListConversations(ctx context.Context) (conversations.List, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/chat/conversations", nil)
	if err != nil {
		return nil, err
	}
	if err := c.setHeaders(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "could not list conversations")
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp, "could not list conversations")
	}

	var payload struct {
		Conversations []wireConversation `json:"conversations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "could not decode conversations")
	}

	out := make(conversations.List, 0, len(payload.Conversations))
	for _, wc := range payload.Conversations {
		updatedAt, err := time.Parse(time.RFC3339, wc.UpdatedAt)
		if err != nil {
			log.Debug().Str("conversation_id", wc.ID).Str("updated_at", wc.UpdatedAt).
				Msg("unparseable conversation timestamp")
		}
		out = append(out, conversations.Conversation{
			ID:        wc.ID,
			Title:     wc.Title,
			UpdatedAt: updatedAt,
		})
	}
	return out, nil
}

// ListMessages fetches a conversation's history, newest first as the
// backend returns it. Use transcript.FromHistory for the display order.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]transcript.HistoryMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/chat/"+conversationID+"/messages", nil)
	if err != nil {
		return nil, err
	}
	if err := c.setHeaders(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "could not list messages")
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp, "could not list messages")
	}

	var payload struct {
		Messages []transcript.HistoryMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "could not decode messages")
	}
	return payload.Messages, nil
}

func decodeError(resp *http.Response, msg string) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Errorf("%s: status %d", msg, resp.StatusCode)
	}
	var errorResp ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Detail != "" {
		return errors.Errorf("%s: %s", msg, errorResp.Detail)
	}
	return errors.Errorf("%s: status %d", msg, resp.StatusCode)
}
