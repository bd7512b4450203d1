package venues

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/predixlabs/crossarb/pkg/types"
)

func fastBackOff(t *testing.T) {
	t.Helper()
	prev := newFetchBackOff
	newFetchBackOff = func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Millisecond)
	}
	t.Cleanup(func() { newFetchBackOff = prev })
}

func testLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(1000), 1000)
}

func TestGetJSON_RecoversAfterRateLimit(t *testing.T) {
	fastBackOff(t)

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"ok": true}`)
	}))
	t.Cleanup(srv.Close)

	var out struct {
		OK bool `json:"ok"`
	}
	err := GetJSON(context.Background(), srv.Client(), testLimiter(), types.VenueKalshi, srv.URL, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, out.OK)
}

func TestGetJSON_RateLimitExhaustsRetries(t *testing.T) {
	fastBackOff(t)

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	var out struct{}
	err := GetJSON(context.Background(), srv.Client(), testLimiter(), types.VenuePolymarket, srv.URL, &out)

	var rlErr *types.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Equal(t, types.VenuePolymarket, rlErr.Venue)
	assert.Equal(t, 1+maxFetchRetries, calls)
}

func TestRetryAfterBackOff_ConsumesHintOnce(t *testing.T) {
	hint := 7 * time.Second
	b := &retryAfterBackOff{
		BackOff: backoff.NewConstantBackOff(time.Millisecond),
		hint:    &hint,
	}

	assert.Equal(t, 7*time.Second, b.NextBackOff())
	assert.Equal(t, time.Millisecond, b.NextBackOff())
	assert.Zero(t, hint)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 7*time.Second, parseRetryAfter("7"))
	assert.Equal(t, time.Second, parseRetryAfter(""))
	assert.Equal(t, time.Second, parseRetryAfter("soon"))
}
