package types

import (
	"fmt"
	"time"
)

// ValidationError marks a single result or quote as unusable.
// It is fatal to that one item, never to the batch that contained it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// ConfigurationError is fatal at construction time.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Setting, e.Reason)
}

// ConnectionError wraps a feed drop or timeout. Retried with capped,
// delayed reconnection; exhausting retries is terminal.
type ConnectionError struct {
	Venue    Venue
	Op       string
	Err      error
	Terminal bool
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s connection %s: %v", e.Venue, e.Op, e.Err)
	}
	return fmt.Sprintf("%s connection %s", e.Venue, e.Op)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RateLimitError is returned when a venue rejects a request for rate reasons.
// Backed off and retried, surfaced only when retries exhaust.
type RateLimitError struct {
	Venue      Venue
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited, retry after %s", e.Venue, e.RetryAfter)
}

// StaleDataError marks a quote older than its cache TTL. Treated as a cache
// miss by callers, never used in calculations.
type StaleDataError struct {
	Venue    Venue
	MarketID string
	Age      time.Duration
}

func (e *StaleDataError) Error() string {
	return fmt.Sprintf("stale quote for %s/%s (age %s)", e.Venue, e.MarketID, e.Age)
}
