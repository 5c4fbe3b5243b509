package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/docsapi/pkg/api"
	"github.com/platinummonkey/docsapi/pkg/httputil"
)

// Comparison is the highest-version answer for a project
type Comparison struct {
	Project   *api.VersionResource `json:"project"`
	Version   *string              `json:"version"`
	IsHighest bool                 `json:"is_highest"`
	URL       string               `json:"url,omitempty"`
	Slug      string               `json:"slug,omitempty"`
}

// BuildHandle reports whether a build was queued
type BuildHandle struct {
	Building bool `json:"building"`
}

// Error is a non-2xx API response
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("docsapi: %d %s", e.StatusCode, e.Message)
}

// Client talks to the docs API
type Client struct {
	baseURL  string
	http     *http.Client
	username string
	password string
}

// Option configures a Client
type Option func(*Client)

// WithCredentials sets HTTP Basic credentials, required for writes
func WithCredentials(username, password string) Option {
	return func(c *Client) {
		c.username, c.password = username, password
	}
}

// WithHTTPClient replaces the traced default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for the server at baseURL, e.g. http://localhost:8000
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Highest compares base against the project's highest version. An empty
// base asks for the highest version only.
func (c *Client) Highest(ctx context.Context, project, base string) (*Comparison, error) {
	path := "/version/" + url.PathEscape(project) + "/highest/"
	if base != "" {
		path += url.PathEscape(base) + "/"
	}
	var out Comparison
	if err := c.do(ctx, http.MethodGet, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TriggerBuild queues a docs build of project at version. It POSTs when
// credentials are set and falls back to the anonymous GET form otherwise.
func (c *Client) TriggerBuild(ctx context.Context, project, version string) (*BuildHandle, error) {
	method := http.MethodGet
	if c.username != "" {
		method = http.MethodPost
	}
	path := "/version/" + url.PathEscape(project) + "/" + url.PathEscape(version) + "/build"
	var out BuildHandle
	if err := c.do(ctx, method, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+api.APIPrefix+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload httputil.ErrorResponse
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
