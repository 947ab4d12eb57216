// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package anthropic provides the HTTP client for the Anthropic messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the API client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeAuth
	ErrTypeForbidden
	ErrTypeRateLimited
	ErrTypeTimeout
	ErrTypeServer
	ErrTypeConnection
	ErrTypeInvalidResponse
	ErrTypeExhausted
)

// Sentinel errors for easy checking.
var (
	ErrInvalidAPIKey = &ClientError{Type: ErrTypeAuth, Message: "Invalid API key"}
	ErrForbidden     = &ClientError{Type: ErrTypeForbidden, Message: "API access forbidden"}
	ErrRateLimited   = &ClientError{Type: ErrTypeRateLimited, Message: "rate limited"}
	ErrTimeout       = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
)

// IsAuthError reports whether err is a credential failure, which is
// never worth retrying.
func IsAuthError(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type == ErrTypeAuth || ce.Type == ErrTypeForbidden
	}
	return false
}

// IsRateLimited reports whether err was a rate-limit rejection.
func IsRateLimited(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeRateLimited
}

// IsTimeout reports whether err was a request timeout.
func IsTimeout(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeTimeout
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the API client.
type ClientConfig struct {
	// BaseURL is the API base URL (default: https://api.anthropic.com)
	BaseURL string

	// APIVersion is sent in the anthropic-version header.
	APIVersion string

	// Timeout for a single non-streaming request attempt.
	Timeout time.Duration

	// MaxRetries is the total number of attempts (default: 3)
	MaxRetries int

	// RetryBaseDelay is doubled on each successive retry (default: 1s)
	RetryBaseDelay time.Duration

	// RequestsPerMinute enables a client-side rate limiter when > 0.
	RequestsPerMinute int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        "https://api.anthropic.com",
		APIVersion:     "2023-06-01",
		Timeout:        300 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 1 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the Anthropic messages API.
// It retries transient failures with exponential backoff and never
// retries credential errors. Safe for concurrent use.
type Client struct {
	config *ClientConfig
	apiKey string
	logger zerolog.Logger

	httpClient *http.Client
	// streamClient has no overall timeout since a live stream can
	// legitimately outlast any fixed deadline; the transport still bounds
	// dialing and the wait for response headers.
	streamClient *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a client for the given API key. A nil config uses
// defaults.
func NewClient(apiKey string, config *ClientConfig, logger zerolog.Logger) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	var limiter *rate.Limiter
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), 1)
	}

	return &Client{
		config:     config,
		apiKey:     apiKey,
		logger:     logger,
		httpClient: &http.Client{Timeout: config.Timeout},
		streamClient: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 30 * time.Second}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: config.Timeout,
			},
		},
		limiter: limiter,
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", c.config.APIVersion)
}

// Complete performs a non-streaming messages call.
func (c *Client) Complete(ctx context.Context, request Request) (*Response, error) {
	request.Stream = false

	resp, err := c.doWithRetry(ctx, request, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to read response", Cause: err}
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to parse response", Cause: err}
	}
	return &result, nil
}

// Stream performs a streaming messages call, invoking onDelta for each
// text fragment as it arrives. It returns the full accumulated text.
func (c *Client) Stream(ctx context.Context, request Request, onDelta func(string)) (string, error) {
	request.Stream = true

	resp, err := c.doWithRetry(ctx, request, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	reader := NewStreamReader(resp.Body, c.logger)
	if err := reader.Process(ctx, onDelta); err != nil {
		return reader.Accumulated(), err
	}
	return reader.Accumulated(), nil
}

// =============================================================================
// RETRY LOOP
// =============================================================================

// doWithRetry runs the request with exponential backoff. The caller owns
// the response body on success.
func (c *Client) doWithRetry(ctx context.Context, request Request, streaming bool) (*http.Response, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to encode request", Cause: err}
	}

	url := c.config.BaseURL + "/v1/messages"
	client := c.httpClient
	if streaming {
		client = c.streamClient
	}

	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.config.RetryBaseDelay * (1 << (attempt - 1))
			c.logger.Warn().
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Err(lastErr).
				Msg("retrying API request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, &ClientError{Type: ErrTypeUnknown, Message: "failed to build request", Cause: err}
		}
		c.setHeaders(req)

		resp, err := client.Do(req)
		if err != nil {
			if isTimeout(err) {
				lastErr = &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
			} else {
				lastErr = &ClientError{Type: ErrTypeConnection, Message: "connection failed", Cause: err}
			}
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, ErrInvalidAPIKey
		case resp.StatusCode == http.StatusForbidden:
			return nil, ErrForbidden
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = &ClientError{Type: ErrTypeRateLimited, Message: "rate limited by API"}
			continue
		case resp.StatusCode >= 500:
			lastErr = &ClientError{
				Type:    ErrTypeServer,
				Message: fmt.Sprintf("server error (HTTP %d)", resp.StatusCode),
			}
			continue
		default:
			return nil, &ClientError{
				Type:    ErrTypeUnknown,
				Message: fmt.Sprintf("API error (HTTP %d): %s", resp.StatusCode, apiErrorMessage(body)),
			}
		}
	}

	return nil, &ClientError{
		Type:    ErrTypeExhausted,
		Message: fmt.Sprintf("Failed to complete API request after %d attempts", c.config.MaxRetries),
		Cause:   lastErr,
	}
}

// apiErrorMessage pulls the human-readable message out of an API error
// body, falling back to the raw body.
func apiErrorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return msg.String()
	}
	return string(body)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
