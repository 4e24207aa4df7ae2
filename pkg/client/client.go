// Package client provides the typed forum API client with session handling,
// error classification, and structured logging. The session token is an
// explicit configuration value passed in at construction; there is no
// process-wide credential singleton.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for forum API operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circle_api_requests_total",
		Help: "Total forum API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "circle_api_request_duration_seconds",
		Help:    "Forum API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circle_api_errors_total",
		Help: "Total forum API errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the forum API, without trailing slash.
	BaseURL string

	// Token is the session token. Endpoints that require authentication
	// fail with ErrNotLoggedIn when empty.
	Token string

	// UserAgent sent with every request.
	UserAgent string

	// Timeout is the HTTP client timeout. The batch pool applies its own
	// per-task timeout via context on top of this.
	Timeout time.Duration

	// Retry is the transport-level retry policy. Defaults to one attempt.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, token string) Config {
	return Config{
		BaseURL:   baseURL,
		Token:     token,
		UserAgent: "circle-batch-client/0.1.0",
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// envelope is the uniform forum API response shape.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// Client is the forum API client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a forum API client. Configuration errors fail fast.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "forum-client").Logger(),
	}, nil
}

// Token returns the configured session token.
func (c *Client) Token() string {
	return c.config.Token
}

// WithToken returns a copy of the client using a different session token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.config.Token = token
	return &clone
}

// post sends a JSON POST to an API endpoint and decodes the response
// envelope. The envelope is returned even for business-level rejections
// (code != 1); only transport and protocol failures produce an error.
func (c *Client) post(ctx context.Context, endpoint string, body any, authed bool) (*envelope, error) {
	if authed && c.config.Token == "" {
		return nil, ErrNotLoggedIn
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var env *envelope
	retryErr := retryWithBackoff(ctx, c.config.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.config.BaseURL+endpoint, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "*/*")
		req.Header.Set("User-Agent", c.config.UserAgent)
		if authed {
			req.Header.Set("token", c.config.Token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			return &APIError{Class: ErrorClassNetwork, Message: "request failed", Err: err}
		}
		defer resp.Body.Close()

		requestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode != http.StatusOK {
			errorsTotal.WithLabelValues(string(ErrorClassProtocol)).Inc()
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Msg("Forum API request error")
			return &APIError{
				Class:      ErrorClassProtocol,
				StatusCode: resp.StatusCode,
				Message:    resp.Status,
			}
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return &APIError{Class: ErrorClassNetwork, Message: "read response", Err: err}
		}

		var decoded envelope
		if err := json.Unmarshal(data, &decoded); err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassProtocol)).Inc()
			return &APIError{
				Class:      ErrorClassProtocol,
				StatusCode: resp.StatusCode,
				Message:    "malformed response body",
				Err:        err,
			}
		}

		env = &decoded
		return nil
	})
	if retryErr != nil {
		return nil, retryErr
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Int("code", env.Code).
		Msg("Forum API response")

	return env, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
