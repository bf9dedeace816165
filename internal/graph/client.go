package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/teamsgraph/internal/auth"
	"github.com/teamsgraph/internal/retry"
)

// DefaultBaseURL is the standard v1.0 Microsoft Graph endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

const (
	defaultRequestTimeout = 10 * time.Second
	defaultBackoffFactor  = 0.5
	maxErrorBodyBytes     = 4096
)

// Config carries everything needed to construct a Client. Build the value
// once and pass it to New; the client never mutates it afterwards.
type Config struct {
	// BaseURL is the root for all constructed request URLs. Defaults to
	// DefaultBaseURL when empty.
	BaseURL string

	// Tokens supplies the bearer token injected on every request.
	Tokens auth.TokenSource

	// MaxRetries is the transient-failure retry budget for GET requests.
	// Zero disables retries.
	MaxRetries int

	// BackoffFactor scales the exponential backoff base delay, in seconds.
	// Defaults to 0.5.
	BackoffFactor float64

	// RequestTimeout is the per-request timeout. Defaults to 10s.
	RequestTimeout time.Duration

	// RequestsPerSecond caps the outbound request rate. Zero means no
	// limit. Graph throttles aggressively, so batch jobs may want this.
	RequestsPerSecond float64

	// Logger receives diagnostic output. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Client talks to the Microsoft Graph REST API. It holds no business
// state across calls; only the underlying HTTP connection pool is reused.
// A Client is safe for sequential reuse but individual calls perform
// blocking, serialized I/O.
type Client struct {
	baseURL string
	tokens  auth.TokenSource
	client  *http.Client
	retry   retry.Config
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New builds a Client from the given configuration.
func New(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	backoff := cfg.BackoffFactor
	if backoff <= 0 {
		backoff = defaultBackoffFactor
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	tokens := cfg.Tokens
	if tokens == nil {
		tokens = auth.StaticToken("")
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	retryConfig := retry.DefaultConfig()
	retryConfig.MaxRetries = cfg.MaxRetries
	retryConfig.BaseDelay = time.Duration(backoff * float64(time.Second))

	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		client:  &http.Client{Timeout: timeout},
		retry:   retryConfig,
		limiter: limiter,
		logger:  logger,
	}
}

// getJSON performs an authenticated GET against requestURL and decodes
// the JSON response into out, retrying transient failures up to the
// configured budget. what names the resource for diagnostics.
func (c *Client) getJSON(ctx context.Context, requestURL, what string, out any) error {
	return retry.Do(ctx, c.retry, c.logger, func() retry.Attempt {
		return c.tryGetJSON(ctx, requestURL, what, out)
	})
}

func (c *Client) tryGetJSON(ctx context.Context, requestURL, what string, out any) retry.Attempt {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Attempt{Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return retry.Attempt{Err: fmt.Errorf("failed to create request for %s: %w", what, err)}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return retry.Attempt{Err: fmt.Errorf("failed to obtain access token: %w", err)}
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	// Correlation id Graph echoes back in error responses.
	req.Header.Set("client-request-id", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		// Network-level failures (resets, timeouts) are worth retrying on
		// an idempotent GET.
		return retry.Attempt{
			Err:       fmt.Errorf("request for %s failed: %w", what, err),
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		statusErr := &StatusError{
			URL:        requestURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}

		if retry.RetryableStatus(resp.StatusCode) {
			c.logger.Warn().
				Str("context", what).
				Int("status", resp.StatusCode).
				Msg("transient error from graph")
			return retry.Attempt{
				Err:        statusErr,
				Retryable:  true,
				RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}

		c.logger.Error().
			Str("context", what).
			Int("status", resp.StatusCode).
			Msg("failed to fetch from graph")
		return retry.Attempt{Err: statusErr}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error().
			Str("context", what).
			Err(err).
			Msg("invalid JSON in graph response")
		return retry.Attempt{Err: &DecodeError{URL: requestURL, Err: err}}
	}

	return retry.Attempt{}
}
