// Package httpclient is the JSON-over-HTTP transport shared by the vendor
// clients (standardizer, TEST suite, QSAR services). It owns request ids,
// retries and the mapping of transport failures onto broker error codes.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CTS-Broker/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/CTS-Broker/pkg/errors"
)

const userAgent = "cts-broker/1.0"

// maxErrorBody bounds how much of a failed response is kept on StatusError.
const maxErrorBody = 512

// StatusError is the cause attached when a service answers with a non-2xx
// status.
type StatusError struct {
	StatusCode int
	Body       string
	RequestID  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d [request_id=%s]: %s", e.StatusCode, e.RequestID, e.Body)
}

// StatusCode returns the HTTP status carried in err's chain, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if stderrors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Config configures a Client.
type Config struct {
	// Service names the upstream in logs and metrics.
	Service      string
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// UnavailableCode is the error code for exhausted retries. Defaults to
	// ErrCodeServiceUnavailable.
	UnavailableCode errors.ErrorCode
}

// Client posts JSON to one upstream.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     logging.Logger
	metrics    *prometheus.BrokerMetrics
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *prometheus.BrokerMetrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New creates a Client.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = 200 * time.Millisecond
	}
	if cfg.RetryWaitMax < cfg.RetryWaitMin {
		cfg.RetryWaitMax = 5 * time.Second
		if cfg.RetryWaitMax < cfg.RetryWaitMin {
			cfg.RetryWaitMax = cfg.RetryWaitMin
		}
	}
	if cfg.UnavailableCode == "" {
		cfg.UnavailableCode = errors.ErrCodeServiceUnavailable
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logging.NewNopLogger(),
		metrics:    prometheus.NewNopBrokerMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named(cfg.Service)
	return c
}

// BaseURL returns the upstream base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// PostJSON posts body to path and decodes the response into out. op labels
// the call in metrics.
func (c *Client) PostJSON(ctx context.Context, op, path string, body, out interface{}) error {
	start := time.Now()
	err := c.do(ctx, http.MethodPost, path, body, out)
	prometheus.RecordServiceCall(c.metrics, c.cfg.Service, op, time.Since(start), err)
	return err
}

// do performs an HTTP request with retry logic.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	fullURL := c.cfg.BaseURL + path
	log := c.logger.WithContext(ctx)

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal request body")
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			log.Debug("retrying request",
				logging.Int("attempt", attempt), logging.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return c.unavailable(ctx.Err(), path)
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader(payload))
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
		}

		requestID := logging.RequestIDFromContext(ctx)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("X-Request-ID", requestID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Warn("request failed", logging.String("url", fullURL), logging.Err(err))
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		log.Debug("response received",
			logging.String("url", fullURL), logging.Int("status", resp.StatusCode))

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: truncate(respBody), RequestID: requestID}
			if shouldRetry(resp.StatusCode) {
				continue
			}
			return c.unavailable(lastErr, path)
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return errors.Wrap(err, errors.ErrCodeMalformedResponse, "failed to decode "+c.cfg.Service+" response").
					WithDetail("path=" + path)
			}
		}
		return nil
	}
	return c.unavailable(lastErr, path)
}

func (c *Client) unavailable(cause error, path string) error {
	return errors.Wrap(cause, c.cfg.UnavailableCode, c.cfg.Service+" request failed").
		WithDetail("path=" + path)
}

func shouldRetry(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.cfg.RetryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.cfg.RetryWaitMax {
		backoff = c.cfg.RetryWaitMax
	}
	// jitter 0-25%
	if q := int64(backoff / 4); q > 0 {
		backoff += time.Duration(rand.Int63n(q))
	}
	return backoff
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody])
	}
	return string(b)
}
