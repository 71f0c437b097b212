// Package api is a client for the board REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matt-steen/todo-board/pkg/board"
	"github.com/rs/zerolog/log"
)

const (
	defaultTimeout = 10 * time.Second
	// maxErrorBody caps how much of a failed response is kept for the error message.
	maxErrorBody = 512
)

// StatusError is returned for any response outside the 2xx range.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
	if e.Body != "" {
		msg += ": " + e.Body
	}

	return msg
}

// Client talks to the board backend. It implements board.Backend.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
}

var _ board.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithToken sends the token as a bearer Authorization header.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout sets the per-request timeout. A client passed to WithHTTPClient is copied rather
// than changed.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// New creates a Client for the backend rooted at baseURL, e.g. http://localhost:8080/api/kanban.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
	}

	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.http == nil:
		c.http = &http.Client{Timeout: defaultTimeout}
		if c.timeout > 0 {
			c.http.Timeout = c.timeout
		}
	case c.timeout > 0:
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}

	return c
}

// Snapshot fetches every list and card of the board.
func (c *Client) Snapshot(ctx context.Context) (*board.Snapshot, error) {
	var snap board.Snapshot

	if err := c.do(ctx, http.MethodGet, "/board", nil, &snap); err != nil {
		return nil, err
	}

	if snap.Lists == nil {
		snap.Lists = []board.List{}
	}

	if snap.Cards == nil {
		snap.Cards = []board.Card{}
	}

	return &snap, nil
}

// MoveRequest is the body sent when a card changes list or position.
type MoveRequest struct {
	ListID   board.ID `json:"listId"`
	Position int      `json:"position"`
}

// MoveCard stores a card's list and position. Only those two fields are sent.
func (c *Client) MoveCard(ctx context.Context, cardID, listID board.ID, position int) error {
	body := MoveRequest{ListID: listID, Position: position}

	return c.do(ctx, http.MethodPatch, taskPath(cardID), body, nil)
}

// CardUpdate holds the editable payload fields of a card; nil fields are left unchanged.
type CardUpdate struct {
	Text  *string    `json:"text,omitempty"`
	Done  *bool      `json:"done,omitempty"`
	DueAt *time.Time `json:"dueAt,omitempty"`
}

// UpdateCard edits a card's text, done flag or due date.
func (c *Client) UpdateCard(ctx context.Context, cardID board.ID, update CardUpdate) error {
	return c.do(ctx, http.MethodPatch, taskPath(cardID), update, nil)
}

// NewCard is the body sent to create a card.
type NewCard struct {
	ListID board.ID   `json:"listId"`
	Text   string     `json:"text"`
	DueAt  *time.Time `json:"dueAt,omitempty"`
}

// CreateCard adds a card at the end of a list.
func (c *Client) CreateCard(ctx context.Context, card NewCard) (*board.Card, error) {
	var created board.Card

	if err := c.do(ctx, http.MethodPost, "/tasks", card, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// DeleteCard removes a card.
func (c *Client) DeleteCard(ctx context.Context, cardID board.ID) error {
	return c.do(ctx, http.MethodDelete, taskPath(cardID), nil, nil)
}

type listBody struct {
	Title string `json:"title"`
}

// CreateList adds a list after the existing ones.
func (c *Client) CreateList(ctx context.Context, title string) (*board.List, error) {
	var created board.List

	if err := c.do(ctx, http.MethodPost, "/lists", listBody{Title: title}, &created); err != nil {
		return nil, err
	}

	return &created, nil
}

// RenameList changes a list's title.
func (c *Client) RenameList(ctx context.Context, listID board.ID, title string) error {
	return c.do(ctx, http.MethodPatch, listPath(listID), listBody{Title: title}, nil)
}

// DeleteList removes a list and its cards.
func (c *Client) DeleteList(ctx context.Context, listID board.ID) error {
	return c.do(ctx, http.MethodDelete, listPath(listID), nil, nil)
}

func taskPath(id board.ID) string {
	return "/tasks/" + url.PathEscape(string(id))
}

func listPath(id board.ID) string {
	return "/lists/" + url.PathEscape(string(id))
}

// do sends a JSON request and decodes a JSON response into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return fmt.Errorf("error encoding %s %s: %w", method, path, err)
		}

		body = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("error building %s %s: %w", method, path, err)
	}

	req.Header.Set("Accept", "application/json")

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	log.Debug().Str("method", method).Str("path", path).Msg("sending request")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error sending %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding %s %s: %w", method, path, err)
	}

	return nil
}
