package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predixlabs/crossarb/internal/arbitrage"
	"github.com/predixlabs/crossarb/pkg/types"
)

func testOpportunity(profitPercent float64) *arbitrage.Opportunity {
	return &arbitrage.Opportunity{
		ID: uuid.New().String(),
		Pair: types.CrossExchangePair{
			MarketA: types.Market{Venue: types.VenueKalshi, ID: "FED-25DEC"},
			MarketB: types.Market{Venue: types.VenuePolymarket, ID: "0xfed"},
		},
		Best: arbitrage.Result{
			TotalCost:     decimal.RequireFromString("0.95"),
			ProfitMargin:  decimal.RequireFromString("0.05"),
			ProfitPercent: decimal.NewFromFloat(profitPercent),
			Valid:         true,
		},
		Alignment:  types.ResolutionAlignment{Score: 85, Warnings: []string{"one source unstated"}},
		Confidence: 0.8,
		DetectedAt: time.Now(),
	}
}

func TestNotify_PostsAlert(t *testing.T) {
	var (
		mu       sync.Mutex
		received []Alert
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var a Alert
		require.NoError(t, json.NewDecoder(r.Body).Decode(&a))
		mu.Lock()
		received = append(received, a)
		mu.Unlock()
	}))
	defer srv.Close()

	n, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	opp := testOpportunity(5.26)
	n.Notify(context.Background(), opp)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	alert := received[0]
	mu.Unlock()
	assert.Equal(t, opp.ID, alert.ID)
	assert.InDelta(t, 5.26, alert.ProfitPercent, 1e-9)
	assert.Equal(t, []string{"kalshi:FED-25DEC", "polymarket:0xfed"}, alert.Markets)
	assert.Equal(t, "medium", alert.Risk)
}

func TestNotify_SkipsBelowMinProfit(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	n, err := New(Config{URL: srv.URL, MinProfitPercent: 2.0})
	require.NoError(t, err)

	n.Notify(context.Background(), testOpportunity(1.0))
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, hits.Load())
}

func TestNotify_ServerErrorDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n, err := New(Config{URL: srv.URL})
	require.NoError(t, err)

	// Failure is logged, never surfaced to the caller.
	n.Notify(context.Background(), testOpportunity(5.0))
	time.Sleep(50 * time.Millisecond)
}

func TestNew_EmptyURLDisables(t *testing.T) {
	n, err := New(Config{})
	require.NoError(t, err)
	assert.Nil(t, n)

	// A nil notifier is safe to call.
	n.Notify(context.Background(), testOpportunity(5.0))
}

func TestBuildAlert_RiskLevels(t *testing.T) {
	opp := testOpportunity(5.0)

	opp.Alignment.Risks = []string{"sources disagree"}
	assert.Equal(t, "high", buildAlert(opp).Risk)

	opp.Alignment.Risks = nil
	assert.Equal(t, "medium", buildAlert(opp).Risk)

	opp.Alignment.Warnings = nil
	assert.Equal(t, "low", buildAlert(opp).Risk)
}
