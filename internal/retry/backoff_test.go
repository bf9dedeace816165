package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries=3, got %d", config.MaxRetries)
	}

	if config.BaseDelay != 500*time.Millisecond {
		t.Errorf("Expected BaseDelay=500ms, got %v", config.BaseDelay)
	}

	if config.MaxDelay != 30*time.Second {
		t.Errorf("Expected MaxDelay=30s, got %v", config.MaxDelay)
	}

	if config.Multiplier != 2.0 {
		t.Errorf("Expected Multiplier=2.0, got %f", config.Multiplier)
	}

	if !config.Jitter {
		t.Error("Expected Jitter=true")
	}
}

func testConfig(maxRetries int) Config {
	return Config{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   10 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     false, // Disable jitter for predictable testing
	}
}

func TestDo_Success(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), testConfig(2), zerolog.Nop(), func() Attempt {
		attempts++
		return Attempt{}
	})

	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}

	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), testConfig(3), zerolog.Nop(), func() Attempt {
		attempts++
		if attempts < 3 {
			return Attempt{Err: errors.New("temporary failure"), Retryable: true}
		}
		return Attempt{}
	})

	if err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}

	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestDo_BudgetExhausted(t *testing.T) {
	wantErr := errors.New("still failing")
	attempts := 0
	err := Do(context.Background(), testConfig(2), zerolog.Nop(), func() Attempt {
		attempts++
		return Attempt{Err: wantErr, Retryable: true}
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("Expected last error to be returned, got %v", err)
	}

	// MaxRetries=2 means exactly 3 attempts
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	wantErr := errors.New("bad request")
	attempts := 0
	err := Do(context.Background(), testConfig(5), zerolog.Nop(), func() Attempt {
		attempts++
		return Attempt{Err: wantErr}
	})

	if !errors.Is(err, wantErr) {
		t.Errorf("Expected error %v, got %v", wantErr, err)
	}

	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestDo_ZeroRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), testConfig(0), zerolog.Nop(), func() Attempt {
		attempts++
		return Attempt{Err: errors.New("transient"), Retryable: true}
	})

	if err == nil {
		t.Error("Expected error, got nil")
	}

	if attempts != 1 {
		t.Errorf("Expected 1 attempt with retries disabled, got %d", attempts)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := Do(ctx, testConfig(5), zerolog.Nop(), func() Attempt {
		attempts++
		cancel()
		return Attempt{Err: errors.New("transient"), Retryable: true}
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	if attempts != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestBackoffDelay_Growth(t *testing.T) {
	config := Config{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Minute,
		Multiplier: 2.0,
		Jitter:     false,
	}

	expected := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
	}

	for attempt, want := range expected {
		if got := backoffDelay(config, attempt); got != want {
			t.Errorf("Attempt %d: expected delay %v, got %v", attempt, want, got)
		}
	}
}

func TestBackoffDelay_CappedAtMax(t *testing.T) {
	config := Config{
		BaseDelay:  time.Second,
		MaxDelay:   5 * time.Second,
		Multiplier: 10.0,
		Jitter:     false,
	}

	if got := backoffDelay(config, 3); got != 5*time.Second {
		t.Errorf("Expected delay capped at 5s, got %v", got)
	}
}

func TestRetryableStatus(t *testing.T) {
	retryable := []int{429, 500, 502, 503, 504}
	for _, code := range retryable {
		if !RetryableStatus(code) {
			t.Errorf("Expected status %d to be retryable", code)
		}
	}

	terminal := []int{200, 301, 400, 401, 403, 404, 501}
	for _, code := range terminal {
		if RetryableStatus(code) {
			t.Errorf("Expected status %d to be terminal", code)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := ParseRetryAfter(""); got != 0 {
		t.Errorf("Expected 0 for empty header, got %v", got)
	}

	if got := ParseRetryAfter("7"); got != 7*time.Second {
		t.Errorf("Expected 7s, got %v", got)
	}

	if got := ParseRetryAfter("-3"); got != 0 {
		t.Errorf("Expected 0 for negative seconds, got %v", got)
	}

	if got := ParseRetryAfter("not-a-delay"); got != 0 {
		t.Errorf("Expected 0 for garbage value, got %v", got)
	}

	future := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
	got := ParseRetryAfter(future)
	if got <= 0 || got > 30*time.Second {
		t.Errorf("Expected delay in (0s, 30s] for HTTP date, got %v", got)
	}

	past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	if got := ParseRetryAfter(past); got != 0 {
		t.Errorf("Expected 0 for past HTTP date, got %v", got)
	}
}
