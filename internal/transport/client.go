// Package transport is the HTTP client of the content API. It implements
// autosave.Persister and loads the page data editors are built from.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cramkle/app/internal/autosave"
	"cramkle/app/internal/content"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4096
)

var ErrUnknownSlot = errors.New("transport: unknown target slot")

// APIError is returned for every non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// NotFound reports whether the API answered 404.
func (e *APIError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

type Client struct {
	baseURL string
	http    *http.Client
	headers http.Header
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithHeader adds a header to every request, e.g. X-Cramkle-Author.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers.Add(key, value) }
}

// New creates a client for the API rooted at baseURL, e.g.
// http://localhost:3000/_c.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		headers: make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type contentBody struct {
	Content content.Raw `json:"content"`
}

type savedContent struct {
	ID      string          `json:"id"`
	Content json.RawMessage `json:"content"`
}

// Persist saves raw to the slot of target and returns the persisted content.
func (c *Client) Persist(ctx context.Context, target autosave.Target, raw content.Raw) (content.Raw, error) {
	path, err := persistPath(target)
	if err != nil {
		return content.Raw{}, err
	}
	var saved savedContent
	if err := c.do(ctx, http.MethodPut, path, contentBody{Content: raw}, &saved); err != nil {
		return content.Raw{}, err
	}
	return content.Parse(saved.Content), nil
}

func persistPath(target autosave.Target) (string, error) {
	id := url.PathEscape(target.ID)
	switch target.Slot {
	case autosave.SlotFieldValue:
		return "/api/field-values/" + id, nil
	case autosave.SlotTemplateFront:
		return "/api/templates/" + id + "/front", nil
	case autosave.SlotTemplateBack:
		return "/api/templates/" + id + "/back", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSlot, target.Slot)
}

func (c *Client) GetNote(ctx context.Context, noteID string) (Note, error) {
	var note Note
	if err := c.do(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(noteID), nil, &note); err != nil {
		return Note{}, err
	}
	return note, nil
}

func (c *Client) GetModel(ctx context.Context, modelID string) (Model, error) {
	var model Model
	if err := c.do(ctx, http.MethodGet, "/api/models/"+url.PathEscape(modelID), nil, &model); err != nil {
		return Model{}, err
	}
	return model, nil
}

// Health calls the liveness endpoint of the API.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for key, values := range c.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}

	var payload struct {
		Code    string `json:"code"`
		Error   string `json:"error"`
		Details any    `json:"details"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && (payload.Code != "" || payload.Error != "") {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Error
		apiErr.Details = payload.Details
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(data))
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
