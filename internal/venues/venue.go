// Package venues holds the per-exchange adapters. Each venue exposes the
// same Adapter surface over its own REST API, and a feed.Framer for its
// streaming protocol.
package venues

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/predixlabs/crossarb/pkg/types"
)

// Adapter is the REST surface every venue implements.
type Adapter interface {
	// Name identifies the venue.
	Name() types.Venue

	// GetMarkets lists markets matching the filter.
	GetMarkets(ctx context.Context, filter types.MarketFilter) ([]types.Market, error)

	// GetQuote fetches the current two-sided quote for one market.
	GetQuote(ctx context.Context, marketID string) (*types.Quote, error)
}

const maxFetchRetries = 3

// newFetchBackOff builds the base retry policy. Tests shrink the intervals.
var newFetchBackOff = func() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

// retryAfterBackOff overrides the next interval with the venue's Retry-After
// hint when the last failure carried one, and delegates to the base policy
// otherwise. The hint is consumed once.
type retryAfterBackOff struct {
	backoff.BackOff
	hint *time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	if *b.hint > 0 {
		d = *b.hint
		*b.hint = 0
	}
	return d
}

// GetJSON performs a rate-limited GET and decodes the JSON response.
// The limiter queues callers rather than dropping them; transient failures
// and HTTP 429 retry with exponential backoff, a 429 waiting out the
// venue's Retry-After hint before the next attempt. A RateLimitError
// surfaces once the retry budget is spent.
func GetJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, venue types.Venue, url string, out interface{}) error {
	var retryAfter time.Duration

	op := func() error {
		if err := limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "crossarb/1.0")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			RateLimitedTotal.WithLabelValues(string(venue)).Inc()
			if header := resp.Header.Get("Retry-After"); header != "" {
				retryAfter = parseRetryAfter(header)
			}
			return &types.RateLimitError{
				Venue:      venue,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
		case resp.StatusCode >= 500:
			return fmt.Errorf("server error %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			body, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}
		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("unmarshal response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&retryAfterBackOff{BackOff: newFetchBackOff(), hint: &retryAfter}, maxFetchRetries),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("%s: GET %s: %w", venue, url, err)
	}
	return nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return time.Second
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Second
}
