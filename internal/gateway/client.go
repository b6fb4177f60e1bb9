// Package gateway is the REST client for the shared data store. It owns no
// state; every call is a single round trip.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"termfolio/internal/model"
)

var ErrNotConfigured = errors.New("data store not configured")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("data store: status %d", e.StatusCode)
	}
	return fmt.Sprintf("data store: status %d: %s", e.StatusCode, e.Message)
}

func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    hc,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	u := c.baseURL + "/rest/v1/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &payload) != nil || payload.Error == "" {
			payload.Error = strings.TrimSpace(string(raw))
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: payload.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) UpsertPresence(ctx context.Context, p model.Presence) error {
	return c.do(ctx, http.MethodPost, "presence", nil, p, nil)
}

func (c *Client) RemovePresence(ctx context.Context, sessionID string) error {
	err := c.do(ctx, http.MethodDelete, "presence/"+url.PathEscape(sessionID), nil, nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// ListOnline returns presence records the server saw within window, newest
// first. The server applies the window with its own clock.
func (c *Client) ListOnline(ctx context.Context, window time.Duration) ([]model.Presence, error) {
	q := url.Values{}
	q.Set("window", window.String())
	var resp struct {
		Presence []model.Presence `json:"presence"`
	}
	if err := c.do(ctx, http.MethodGet, "presence", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Presence, nil
}

func (c *Client) AddGuestbookEntry(ctx context.Context, e model.GuestbookEntry) (model.GuestbookEntry, error) {
	var resp struct {
		Entry model.GuestbookEntry `json:"entry"`
	}
	if err := c.do(ctx, http.MethodPost, "guestbook", nil, e, &resp); err != nil {
		return model.GuestbookEntry{}, err
	}
	return resp.Entry, nil
}

func (c *Client) ListGuestbook(ctx context.Context, limit int) ([]model.GuestbookEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Entries []model.GuestbookEntry `json:"entries"`
	}
	if err := c.do(ctx, http.MethodGet, "guestbook", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *Client) PutPixel(ctx context.Context, px model.Pixel) error {
	return c.do(ctx, http.MethodPost, "canvas_pixels", nil, px, nil)
}

func (c *Client) ListPixels(ctx context.Context) ([]model.Pixel, error) {
	var resp struct {
		Pixels []model.Pixel `json:"pixels"`
	}
	if err := c.do(ctx, http.MethodGet, "canvas_pixels", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Pixels, nil
}

// ClearPixels blanks every pixel currently owned by owner.
func (c *Client) ClearPixels(ctx context.Context, owner string) error {
	q := url.Values{}
	q.Set("owner", owner)
	return c.do(ctx, http.MethodPatch, "canvas_pixels", q, map[string]any{"char": " "}, nil)
}

func (c *Client) UpsertVisitor(ctx context.Context, v model.Visitor) (model.Visitor, error) {
	var resp struct {
		Visitor model.Visitor `json:"visitor"`
	}
	if err := c.do(ctx, http.MethodPost, "visitors", nil, v, &resp); err != nil {
		return model.Visitor{}, err
	}
	return resp.Visitor, nil
}

// GetVisitor reports ok=false when the session has no visitor record.
func (c *Client) GetVisitor(ctx context.Context, sessionID string) (model.Visitor, bool, error) {
	var resp struct {
		Visitor model.Visitor `json:"visitor"`
	}
	err := c.do(ctx, http.MethodGet, "visitors/"+url.PathEscape(sessionID), nil, nil, &resp)
	if IsNotFound(err) {
		return model.Visitor{}, false, nil
	}
	if err != nil {
		return model.Visitor{}, false, err
	}
	return resp.Visitor, true, nil
}
