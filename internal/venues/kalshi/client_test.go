package kalshi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predixlabs/crossarb/pkg/types"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:           srv.URL,
		RequestsPerSecond: 1000,
	})
}

func TestGetMarkets_FollowsCursor(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/markets", r.URL.Path)
		require.Equal(t, "open", r.URL.Query().Get("status"))

		if r.URL.Query().Get("cursor") == "" {
			fmt.Fprint(w, `{
				"cursor": "page2",
				"markets": [{
					"ticker": "FED-25DEC",
					"title": "Fed cuts rates in December",
					"category": "Economics",
					"rules_primary": "Resolves YES if the FOMC cuts the target rate.",
					"close_time": "2025-12-10T21:00:00Z",
					"status": "open"
				}]
			}`)
			return
		}
		fmt.Fprint(w, `{
			"cursor": "",
			"markets": [{
				"ticker": "CPI-25NOV",
				"title": "CPI above 3.5 percent",
				"status": "open"
			}]
		}`)
	}))

	markets, err := c.GetMarkets(context.Background(), types.MarketFilter{})
	require.NoError(t, err)
	require.Len(t, markets, 2)

	m := markets[0]
	assert.Equal(t, types.VenueKalshi, m.Venue)
	assert.Equal(t, "FED-25DEC", m.ID)
	assert.Equal(t, "Economics", m.Category)
	assert.True(t, m.Active)
	require.NotNil(t, m.CloseTime)
	assert.Equal(t, 2025, m.CloseTime.Year())
	assert.Equal(t, "CPI-25NOV", markets[1].ID)
}

func TestGetMarkets_HonorsLimit(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"cursor": "more",
			"markets": [
				{"ticker": "A", "title": "a", "status": "open"},
				{"ticker": "B", "title": "b", "status": "open"}
			]
		}`)
	}))

	markets, err := c.GetMarkets(context.Background(), types.MarketFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, markets, 1)
}

func TestGetQuote_ConvertsCents(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/markets/FED-25DEC", r.URL.Path)
		fmt.Fprint(w, `{
			"market": {
				"ticker": "FED-25DEC",
				"yes_bid": 45, "yes_ask": 47,
				"no_bid": 53, "no_ask": 55
			}
		}`)
	}))

	q, err := c.GetQuote(context.Background(), "FED-25DEC")
	require.NoError(t, err)
	assert.Equal(t, "0.45", q.Yes.Bid.String())
	assert.Equal(t, "0.47", q.Yes.Ask.String())
	assert.Equal(t, "0.53", q.No.Bid.String())
	assert.Equal(t, "0.55", q.No.Ask.String())
	require.NoError(t, q.Validate())
}

func TestGetQuote_RetriesRateLimit(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"market": {"ticker": "FED-25DEC", "yes_bid": 45, "yes_ask": 47, "no_bid": 53, "no_ask": 55}}`)
	}))

	q, err := c.GetQuote(context.Background(), "FED-25DEC")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "0.47", q.Yes.Ask.String())
}

func TestGetQuote_RetriesServerError(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"market": {"ticker": "X", "yes_bid": 40, "yes_ask": 42, "no_bid": 58, "no_ask": 60}}`)
	}))

	q, err := c.GetQuote(context.Background(), "X")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "0.42", q.Yes.Ask.String())
}
