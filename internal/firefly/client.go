// Package firefly is a client for the Firefly III compatible ledger API the
// bot writes transactions to. It is consumed only: every call returns typed
// records or fails with an *APIError.
package firefly

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

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/m3rciful/ledgerbot/core/logger"
	"log/slog"
)

const (
	apiPrefix        = "/api/v1"
	defaultTimeout   = 30 * time.Second
	defaultMaxRetry  = 3
	initialBackoff   = 500 * time.Millisecond
	maxBackoffPeriod = 5 * time.Second
)

// Client talks to one ledger instance with one user's access token.
// Construct it per call site from the user's stored settings.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a ledger client for the given base URL and access token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do executes one API call with capped exponential backoff on transient
// failures. body and out may be nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ledger: marshal request: %w", err)
		}
	}

	endpoint := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	start := time.Now()
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("ledger: build request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Trace-Id", uuid.NewString())
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("ledger: do request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			apiErr := &APIError{StatusCode: resp.StatusCode, Message: readAPIMessage(resp.Body)}
			if apiErr.Transient() {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("ledger: decode response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newExponential(), defaultMaxRetry),
		ctx,
	)
	err := backoff.Retry(operation, policy)

	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", apiPrefix + path),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			attrs = append(attrs, slog.Int("http_status", apiErr.StatusCode))
		}
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.FF.LogAttrs(ctx, slog.LevelWarn, "ledger.call", attrs...)
		return err
	}
	logger.FF.LogAttrs(ctx, slog.LevelDebug, "ledger.call", attrs...)
	return nil
}

func newExponential() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff
	bo.MaxInterval = maxBackoffPeriod
	return bo
}

func readAPIMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return ""
	}
	return body.Message
}

// CurrentUser fetches the authenticated ledger user. Used as the
// connectivity check during settings setup.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var resp struct {
		Data struct {
			ID         string `json:"id"`
			Attributes struct {
				Email string `json:"email"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/about/user", nil, nil, &resp); err != nil {
		return User{}, err
	}
	return User{ID: resp.Data.ID, Email: resp.Data.Attributes.Email}, nil
}
