// Package client is an HTTP client for the pack server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/TimurManjosov/packgenie/internal/engine"
	"github.com/TimurManjosov/packgenie/internal/selection"
	"github.com/TimurManjosov/packgenie/internal/store"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap maps 404 and 409 to the store sentinels so callers can share
// error handling between local and remote catalogues.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return store.ErrPackNotFound
	case http.StatusConflict:
		return store.ErrPackExists
	}
	return nil
}

// Client is an HTTP client for the pack API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// UpsertResult is the server's answer to a save.
type UpsertResult struct {
	Created  bool              `json:"created"`
	ETag     string            `json:"etag"`
	Warnings map[string]string `json:"warnings"`
}

// SelectResult is a selection run plus the snapshot it ran against.
type SelectResult struct {
	ETag string `json:"etag"`
	selection.Result
}

// ListPacks retrieves the whole catalogue in order
func (c *Client) ListPacks(ctx context.Context) ([]store.Pack, error) {
	var result struct {
		Packs []store.Pack `json:"packs"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/packs", nil, &result); err != nil {
		return nil, err
	}
	return result.Packs, nil
}

// GetPack retrieves a single pack by id
func (c *Client) GetPack(ctx context.Context, id string) (*store.Pack, error) {
	var pack store.Pack
	if err := c.do(ctx, http.MethodGet, "/v1/packs/"+url.PathEscape(id), nil, &pack); err != nil {
		return nil, err
	}
	return &pack, nil
}

// UpsertPack creates or replaces a pack
func (c *Client) UpsertPack(ctx context.Context, pack store.Pack) (*UpsertResult, error) {
	var result UpsertResult
	if err := c.do(ctx, http.MethodPost, "/v1/packs", pack, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeletePack deletes a pack
func (c *Client) DeletePack(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/packs/"+url.PathEscape(id), nil, nil)
}

// ClonePack copies a pack to "<id>_copy"
func (c *Client) ClonePack(ctx context.Context, id string) (*store.Pack, error) {
	var result struct {
		Pack store.Pack `json:"pack"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/packs/"+url.PathEscape(id)+"/clone", nil, &result); err != nil {
		return nil, err
	}
	return &result.Pack, nil
}

// Export downloads the catalogue
func (c *Client) Export(ctx context.Context) (store.PackFile, error) {
	var file store.PackFile
	err := c.do(ctx, http.MethodGet, "/v1/packs/export", nil, &file)
	return file, err
}

// Import replaces the server's catalogue
func (c *Client) Import(ctx context.Context, file store.PackFile) error {
	return c.do(ctx, http.MethodPost, "/v1/packs/import", file, nil)
}

// Evaluate tests a saved pack against a job context
func (c *Client) Evaluate(ctx context.Context, id string, jobCtx engine.Context) (engine.Verdict, error) {
	var verdict engine.Verdict
	body := map[string]any{"context": jobCtx}
	err := c.do(ctx, http.MethodPost, "/v1/packs/"+url.PathEscape(id)+"/evaluate", body, &verdict)
	return verdict, err
}

// Select evaluates the server's catalogue against a job context
func (c *Client) Select(ctx context.Context, jobCtx engine.Context, includeDisabled bool) (*SelectResult, error) {
	var result SelectResult
	body := map[string]any{"context": jobCtx, "includeDisabled": includeDisabled}
	if err := c.do(ctx, http.MethodPost, "/v1/select", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		bodyBytes, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(bodyBytes, apiErr) != nil {
			apiErr.Message = string(bytes.TrimSpace(bodyBytes))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
