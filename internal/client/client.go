// Package client talks to a roomchat server over its /rpc endpoints and
// renders a room in a terminal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vovakirdan/roomchat-server/internal/chat"
)

// Client is an RPC client for one server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends a Bearer token with every call.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the server at baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateRoom creates a room and returns its token.
func (c *Client) CreateRoom(ctx context.Context, name string) (*chat.CreateRoomOutput, error) {
	var out chat.CreateRoomOutput
	if err := c.call(ctx, http.MethodPost, "chat.createRoom", nil, chat.CreateRoomInput{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRoom resolves a room token.
func (c *Client) GetRoom(ctx context.Context, roomID string) (*chat.RoomView, error) {
	var out chat.RoomView
	query := url.Values{"roomId": {roomID}}
	if err := c.call(ctx, http.MethodGet, "chat.getRoom", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage posts a message to a room.
func (c *Client) SendMessage(ctx context.Context, in chat.SendMessageInput) (*chat.SendMessageOutput, error) {
	var out chat.SendMessageOutput
	if err := c.call(ctx, http.MethodPost, "chat.sendMessage", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMessages lists messages of a room. A zero limit uses the server default;
// a non-nil afterID only returns messages newer than it.
func (c *Client) GetMessages(ctx context.Context, roomID string, limit int, afterID *int64) ([]chat.MessageView, error) {
	query := url.Values{"roomId": {roomID}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if afterID != nil {
		query.Set("afterId", strconv.FormatInt(*afterID, 10))
	}

	var out []chat.MessageView
	if err := c.call(ctx, http.MethodGet, "chat.getMessages", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteMessage removes a message. Requires a token.
func (c *Client) DeleteMessage(ctx context.Context, messageID int64) error {
	var out chat.DeleteMessageOutput
	return c.call(ctx, http.MethodPost, "chat.deleteMessage", nil, chat.DeleteMessageInput{MessageID: messageID}, &out)
}

type envelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    chat.Code `json:"code"`
		Message string    `json:"message"`
	} `json:"error"`
}

// call invokes /rpc/<procedure>. Server-side failures come back as *chat.Error.
func (c *Client) call(ctx context.Context, method, procedure string, query url.Values, body, out any) error {
	endpoint := c.baseURL + "/rpc/" + procedure
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", procedure, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", procedure, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", procedure, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s: decode response (status %d): %w", procedure, resp.StatusCode, err)
	}
	if env.Error != nil {
		return chat.NewError(env.Error.Code, env.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: unexpected status %d", procedure, resp.StatusCode)
	}

	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", procedure, err)
		}
	}
	return nil
}
