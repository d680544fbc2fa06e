package reasoner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// RateLimitError indicates a reasoning provider returned HTTP 429.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError creates a RateLimitError. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

// UnavailableError indicates a service-level failure from a provider.
type UnavailableError struct {
	Err      error
	Provider string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// MalformedError indicates the reasoning answer could not be decoded against
// the expected schema. It carries a truncated copy of the raw answer.
type MalformedError struct {
	Err error
	Raw string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed reasoning output: %v (raw: %s)", e.Err, e.Raw)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// NewMalformedError creates a MalformedError, truncating raw to 500 bytes.
func NewMalformedError(err error, raw string) *MalformedError {
	return &MalformedError{Err: err, Raw: truncate(raw, 500)}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// IsTimeout reports whether err represents a reasoning call timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// IsRetryable reports whether a failed call is worth one retry with backoff.
// Malformed output is deterministic and never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var mErr *MalformedError
	if errors.As(err, &mErr) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
