// Package client is the Go SDK for the mdbridge queue server. The tm CLI is
// built on it, and external producers can use it directly.
//
// # Quick start
//
//	c := client.New("http://localhost:3000", client.WithToken("secret"))
//
//	// Queue a note for the editor
//	id, err := c.Enqueue(ctx, client.EnqueueRequest{Content: "# Hello"})
//
//	// Drain one item (consumers normally use /stream instead)
//	item, err := c.Pending(ctx)
//	if item == nil {
//	    // queue empty — a normal outcome, not an error
//	}
//
// # Error handling
//
// All methods return an *APIError when the server responds with a non-2xx
// status code. Check errors.As to inspect the HTTP status and server message.
//
// # Connection reuse
//
// Client is safe for concurrent use. It shares a single http.Client internally
// so connections are reused across goroutines.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ─── Error type ───────────────────────────────────────────────────────────────

// APIError is returned when the server responds with a non-2xx status.
type APIError struct {
	StatusCode int    // HTTP status code
	Message    string // "error" field from the JSON response body
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mdbridge: server returned %d: %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether the error is a 401 from the server.
func IsUnauthorized(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusUnauthorized
}

// ─── Client options ───────────────────────────────────────────────────────────

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent in the Authorization header.
// Required unless the server runs with auth disabled.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client.
// Use this to configure TLS, proxies, or request tracing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout. The default is 30 seconds.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// ─── Client ───────────────────────────────────────────────────────────────────

// Client is the mdbridge API client. It is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a Client that connects to the mdbridge server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ─── Wire types ───────────────────────────────────────────────────────────────

// EnqueueRequest is one content submission.
type EnqueueRequest struct {
	Content    string `json:"content"`
	Action     string `json:"action,omitempty"`
	Collection string `json:"collection,omitempty"`
	Title      string `json:"title,omitempty"`
}

// Item is one delivered queue item.
type Item struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Markdown   string    `json:"markdown"` // legacy mirror of Content
	Action     string    `json:"action"`
	Collection string    `json:"collection,omitempty"`
	Title      string    `json:"title,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Text returns the payload, preferring the current field name and falling
// back to the legacy one.
func (it *Item) Text() string {
	if it.Content != "" {
		return it.Content
	}
	return it.Markdown
}

// PeekResult is the non-destructive queue snapshot.
type PeekResult struct {
	Count int    `json:"count"`
	Items []Item `json:"items"`
}

// ─── Operations ───────────────────────────────────────────────────────────────

// Enqueue submits one content item and returns its assigned ID.
func (c *Client) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	var resp struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/queue", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Pending removes and returns the oldest queued item.
// It returns (nil, nil) when the queue is empty.
func (c *Client) Pending(ctx context.Context) (*Item, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, "/pending", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var item Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("mdbridge: decode item: %w", err)
	}
	return &item, nil
}

// Peek returns the current queue contents without removing anything.
func (c *Client) Peek(ctx context.Context) (*PeekResult, error) {
	var out PeekResult
	if err := c.do(ctx, http.MethodGet, "/peek", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks server liveness. It needs no token.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// ─── Plumbing ─────────────────────────────────────────────────────────────────

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("mdbridge: encode request: %w", err)
		}
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("mdbridge: decode response: %w", err)
	}
	return nil
}

// apiError builds an *APIError from a non-2xx response, falling back to the
// raw body when it is not the usual {"error": …} shape.
func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
