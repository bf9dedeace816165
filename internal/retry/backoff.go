package retry

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Config configures retry behavior with exponential backoff
type Config struct {
	MaxRetries int           `json:"max_retries"` // Maximum number of retry attempts (default: 3)
	BaseDelay  time.Duration `json:"base_delay"`  // Base delay between retries (default: 500ms)
	MaxDelay   time.Duration `json:"max_delay"`   // Maximum delay between retries (default: 30s)
	Multiplier float64       `json:"multiplier"`  // Exponential backoff multiplier (default: 2.0)
	Jitter     bool          `json:"jitter"`      // Add random jitter to prevent thundering herd (default: true)
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// Attempt reports the outcome of a single try of an operation.
type Attempt struct {
	Err        error
	Retryable  bool          // whether the failure is worth retrying
	RetryAfter time.Duration // server-supplied delay hint, 0 when absent
}

// Do executes an operation with exponential backoff retry logic. The
// operation runs at most MaxRetries+1 times; a non-retryable failure or
// context cancellation stops the loop immediately. The error from the
// last attempt is returned unchanged so callers can inspect it.
func Do(ctx context.Context, config Config, logger zerolog.Logger, operation func() Attempt) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result := operation()
		if result.Err == nil {
			if attempt > 0 {
				logger.Debug().
					Int("attempts", attempt+1).
					Msg("operation succeeded after retry")
			}
			return nil
		}

		lastErr = result.Err
		if !result.Retryable || attempt >= config.MaxRetries {
			return lastErr
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Honor a server-supplied hint when it exceeds the computed backoff.
		delay := backoffDelay(config, attempt)
		if result.RetryAfter > delay {
			delay = result.RetryAfter
		}

		logger.Warn().
			Err(result.Err).
			Int("attempt", attempt+1).
			Int("max_attempts", config.MaxRetries+1).
			Dur("delay", delay).
			Msg("transient failure, backing off before retry")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

// backoffDelay calculates the delay for the next retry attempt using exponential backoff
func backoffDelay(config Config, attempt int) time.Duration {
	delay := float64(config.BaseDelay) * math.Pow(config.Multiplier, float64(attempt))

	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	if config.Jitter {
		// Add up to 10% random jitter
		jitterRange := delay * 0.1
		jitter := (rand.Float64() - 0.5) * 2 * jitterRange
		delay += jitter

		if delay < 0 {
			delay = float64(config.BaseDelay)
		}
	}

	return time.Duration(delay)
}

// RetryableStatus reports whether an HTTP status code indicates a
// transient condition that a later attempt may resolve.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ParseRetryAfter parses a Retry-After header value, which is either a
// number of seconds or an HTTP date. Returns 0 for absent or unparseable
// values.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		if delay := time.Until(at); delay > 0 {
			return delay
		}
	}

	return 0
}
