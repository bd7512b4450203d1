package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/predixlabs/crossarb/internal/arbitrage"
	"github.com/predixlabs/crossarb/internal/scanner"
	"github.com/predixlabs/crossarb/internal/storage"
	"github.com/predixlabs/crossarb/pkg/feed"
	"github.com/predixlabs/crossarb/pkg/healthprobe"
)

type fakeStore struct {
	records []*storage.Record
	lastQ   storage.Query
	err     error
}

func (f *fakeStore) SaveOpportunity(_ context.Context, _ *arbitrage.Opportunity) error { return nil }

func (f *fakeStore) GetOpportunities(_ context.Context, q storage.Query) ([]*storage.Record, error) {
	f.lastQ = q
	return f.records, f.err
}

func (f *fakeStore) GetOpportunity(_ context.Context, id string) (*storage.Record, error) {
	for _, r := range f.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) Close() error { return nil }

type fakeStats struct {
	summary map[string]scanner.StatSummary
}

func (f *fakeStats) Stats() map[string]scanner.StatSummary { return f.summary }

type fakeTrigger struct {
	calls int
}

func (f *fakeTrigger) Trigger() { f.calls++ }

type fakeFeed struct {
	state feed.State
}

func (f *fakeFeed) State() feed.State { return f.state }

func newTestServer(t *testing.T, api *APIHandler) (*Server, *healthprobe.HealthChecker) {
	t.Helper()
	hc := healthprobe.New("storage")
	return New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: hc,
		API:           api,
	}), hc
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestProbes(t *testing.T) {
	s, hc := newTestServer(t, nil)

	assert.Equal(t, http.StatusOK, get(t, s, "/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/ready").Code)

	hc.SetReady("storage", true)
	assert.Equal(t, http.StatusOK, get(t, s, "/ready").Code)
}

func TestMetricsRoute(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestOpportunities_List(t *testing.T) {
	store := &fakeStore{records: []*storage.Record{
		{ID: "opp-1", ProfitPercent: 5.2, DetectedAt: time.Now()},
		{ID: "opp-2", ProfitPercent: 3.1, DetectedAt: time.Now()},
	}}
	s, _ := newTestServer(t, NewAPIHandler(APIConfig{Store: store}))

	rec := get(t, s, "/api/opportunities?limit=10&order=detected_at&asc=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var records []*storage.Record
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&records))
	assert.Len(t, records, 2)
	assert.Equal(t, 10, store.lastQ.Limit)
	assert.Equal(t, "detected_at", store.lastQ.OrderBy)
	assert.True(t, store.lastQ.Ascending)
}

func TestOpportunities_BadParams(t *testing.T) {
	s, _ := newTestServer(t, NewAPIHandler(APIConfig{Store: &fakeStore{}}))

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/opportunities?limit=zero").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/opportunities?limit=-5").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/opportunities?order=margin").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/opportunities?asc=maybe").Code)
}

func TestOpportunities_StoreNotConfigured(t *testing.T) {
	s, _ := newTestServer(t, NewAPIHandler(APIConfig{}))

	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/api/opportunities").Code)
}

func TestOpportunity_ByID(t *testing.T) {
	store := &fakeStore{records: []*storage.Record{{ID: "opp-1", ProfitPercent: 5.2}}}
	s, _ := newTestServer(t, NewAPIHandler(APIConfig{Store: store}))

	rec := get(t, s, "/api/opportunities/opp-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var record storage.Record
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&record))
	assert.Equal(t, "opp-1", record.ID)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/opportunities/opp-404").Code)
}

func TestStats(t *testing.T) {
	stats := &fakeStats{summary: map[string]scanner.StatSummary{
		"kalshi:FED|polymarket:0xfed": {Count: 12, Mean: 4.2},
	}}
	s, _ := newTestServer(t, NewAPIHandler(APIConfig{Stats: stats}))

	rec := get(t, s, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Contains(t, resp.Pairs, "kalshi:FED|polymarket:0xfed")
	assert.Equal(t, int64(12), resp.Pairs["kalshi:FED|polymarket:0xfed"].Count)
	assert.Nil(t, resp.Cache)
}

func TestStatus_ReportsFeedStates(t *testing.T) {
	api := NewAPIHandler(APIConfig{Feeds: map[string]FeedStatus{
		"kalshi":     &fakeFeed{state: feed.StateConnected},
		"polymarket": &fakeFeed{state: feed.StateReconnecting},
	}})
	s, _ := newTestServer(t, api)

	rec := get(t, s, "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "connected", resp.Feeds["kalshi"])
	assert.Equal(t, "reconnecting", resp.Feeds["polymarket"])
	assert.NotEmpty(t, resp.Uptime)
}

func TestScan_TriggersPoller(t *testing.T) {
	trigger := &fakeTrigger{}
	s, _ := newTestServer(t, NewAPIHandler(APIConfig{Trigger: trigger}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, trigger.calls)
}

func TestScan_PollerNotConfigured(t *testing.T) {
	s, _ := newTestServer(t, NewAPIHandler(APIConfig{}))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
