// Package api provides the client for the dashboard's candidate and
// deployment endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fleetdeck/fleetdeck/internal/common"
	"github.com/fleetdeck/fleetdeck/internal/service"
)

// maxTriggerBatch is the server-side cap on items per update-trigger call.
const maxTriggerBatch = 10

// Config holds API client configuration.
type Config struct {
	Tokens  service.TokenProvider
	BaseURL string
	Timeout time.Duration
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("API base URL is required: %w", common.ErrMissingConfig)
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid API base URL: %w", common.ErrInvalidConfig)
	}
	if c.Tokens == nil {
		return fmt.Errorf("token provider is required: %w", common.ErrMissingConfig)
	}
	return nil
}

// Client implements the CandidateSource interface over HTTP.
type Client struct {
	http      *http.Client
	tokens    service.TokenProvider
	logger    *slog.Logger
	baseURL   string
	retryOpts service.RetryOptions
}

// NewClient creates a new API client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		http:    &http.Client{Timeout: timeout},
		tokens:  cfg.Tokens,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  slog.Default().With("component", "api"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// FetchError is a non-2xx response outside the permission and transport
// taxonomies. It carries the server's human-readable message; callers report
// it rather than crash.
type FetchError struct {
	Op      string
	Message string
	Status  int
}

func (e *FetchError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
}

// errorEnvelope is the structured error body returned by the API.
type errorEnvelope struct {
	Error struct {
		Code       string `json:"code"`
		Permission string `json:"permission"`
		Message    string `json:"message"`
	} `json:"error"`
}

// get performs an authorized GET and decodes the response into out, retrying
// transport and 5xx failures. Mutating calls go through post, which never
// retries.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	return common.WithRetry(ctx, func() error {
		return c.do(ctx, op, http.MethodGet, path, query, nil, out)
	}, c.retryOpts)
}

// post performs an authorized POST with a JSON body. It is not retried:
// replaying a half-applied mutation is worse than reporting it failed.
func (c *Client) post(ctx context.Context, op, path string, body, out any) error {
	return c.do(ctx, op, http.MethodPost, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, marshalErr)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &common.NetworkError{Op: op, Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
			return fmt.Errorf("%s: failed to decode response: %w", op, decodeErr)
		}
		return nil
	}

	return c.mapErrorResponse(op, resp)
}

// mapErrorResponse turns a non-2xx response into the error taxonomy: a 403
// with a named permission becomes a PermissionError, 5xx becomes a retryable
// NetworkError, anything else a FetchError with the server message.
func (c *Client) mapErrorResponse(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var envelope errorEnvelope
	_ = json.Unmarshal(data, &envelope)

	if resp.StatusCode == http.StatusForbidden && envelope.Error.Permission != "" {
		c.logger.Warn("API call rejected for missing permission",
			"op", op,
			"permission", envelope.Error.Permission)
		return &common.PermissionError{
			Permission: envelope.Error.Permission,
			Err:        fmt.Errorf("%s: %s", op, envelope.Error.Message),
		}
	}

	if resp.StatusCode >= 500 {
		return &common.NetworkError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", firstNonEmpty(envelope.Error.Message, strings.TrimSpace(string(data)), "server error")),
		}
	}

	return &FetchError{
		Op:      op,
		Status:  resp.StatusCode,
		Message: firstNonEmpty(envelope.Error.Message, strings.TrimSpace(string(data))),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Ensure Client implements the CandidateSource interface.
var _ service.CandidateSource = (*Client)(nil)
