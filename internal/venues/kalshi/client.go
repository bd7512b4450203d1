// Package kalshi adapts the Kalshi trade API.
package kalshi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/predixlabs/crossarb/internal/venues"
	"github.com/predixlabs/crossarb/pkg/types"
)

const (
	// DefaultBaseURL is the public trade API.
	DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

	// maxPageSize is the API's documented per-request cap.
	maxPageSize = 200
)

// Config holds Kalshi client configuration.
type Config struct {
	BaseURL string

	// RequestsPerSecond throttles outbound calls. Defaults to 5.
	RequestsPerSecond float64

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is the Kalshi REST adapter.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient builds a Kalshi client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  cfg.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  cfg.Logger,
	}
}

var _ venues.Adapter = (*Client)(nil)

// Name identifies the venue.
func (c *Client) Name() types.Venue { return types.VenueKalshi }

type apiMarket struct {
	Ticker       string `json:"ticker"`
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	Category     string `json:"category"`
	RulesPrimary string `json:"rules_primary"`
	CloseTime    string `json:"close_time"`
	Status       string `json:"status"`
	YesBid       int64  `json:"yes_bid"`
	YesAsk       int64  `json:"yes_ask"`
	NoBid        int64  `json:"no_bid"`
	NoAsk        int64  `json:"no_ask"`
}

type marketsResponse struct {
	Markets []apiMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}

type marketResponse struct {
	Market apiMarket `json:"market"`
}

// GetMarkets lists open markets, following pagination cursors until the
// filter's limit is satisfied or the listing is exhausted.
func (c *Client) GetMarkets(ctx context.Context, filter types.MarketFilter) ([]types.Market, error) {
	start := time.Now()
	defer func() {
		venues.RequestDurationSeconds.WithLabelValues("kalshi", "get-markets").
			Observe(time.Since(start).Seconds())
	}()

	var (
		out    []types.Market
		cursor string
	)
	for {
		page, next, err := c.fetchPage(ctx, filter, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)

		if next == "" || (filter.Limit > 0 && len(out) >= filter.Limit) {
			break
		}
		cursor = next
	}

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	c.logger.Debug("kalshi-markets-fetched", zap.Int("count", len(out)))
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, filter types.MarketFilter, cursor string) ([]types.Market, string, error) {
	params := url.Values{}
	params.Add("status", "open")
	params.Add("limit", strconv.Itoa(maxPageSize))
	if cursor != "" {
		params.Add("cursor", cursor)
	}
	if filter.Category != "" {
		params.Add("category", filter.Category)
	}

	var resp marketsResponse
	reqURL := fmt.Sprintf("%s/markets?%s", c.baseURL, params.Encode())
	venues.RequestsTotal.WithLabelValues("kalshi", "get-markets").Inc()
	if err := venues.GetJSON(ctx, c.client, c.limiter, types.VenueKalshi, reqURL, &resp); err != nil {
		return nil, "", err
	}

	now := time.Now()
	markets := make([]types.Market, 0, len(resp.Markets))
	for _, m := range resp.Markets {
		markets = append(markets, toMarket(m, now))
	}
	return markets, resp.Cursor, nil
}

// GetQuote fetches the current two-sided quote for one market. Kalshi
// prices arrive in cents.
func (c *Client) GetQuote(ctx context.Context, marketID string) (*types.Quote, error) {
	start := time.Now()
	defer func() {
		venues.RequestDurationSeconds.WithLabelValues("kalshi", "get-quote").
			Observe(time.Since(start).Seconds())
	}()

	var resp marketResponse
	reqURL := fmt.Sprintf("%s/markets/%s", c.baseURL, url.PathEscape(marketID))
	venues.RequestsTotal.WithLabelValues("kalshi", "get-quote").Inc()
	if err := venues.GetJSON(ctx, c.client, c.limiter, types.VenueKalshi, reqURL, &resp); err != nil {
		return nil, err
	}

	m := resp.Market
	q := &types.Quote{
		Venue:     types.VenueKalshi,
		MarketID:  marketID,
		Timestamp: time.Now(),
		Yes: types.PriceLevel{
			Bid: CentsToPrice(m.YesBid),
			Ask: CentsToPrice(m.YesAsk),
		},
		No: types.PriceLevel{
			Bid: CentsToPrice(m.NoBid),
			Ask: CentsToPrice(m.NoAsk),
		},
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("kalshi quote for %s: %w", marketID, err)
	}
	return q, nil
}

func toMarket(m apiMarket, fetchedAt time.Time) types.Market {
	out := types.Market{
		Venue:          types.VenueKalshi,
		ID:             m.Ticker,
		Title:          m.Title,
		Description:    m.Subtitle,
		Category:       m.Category,
		ResolutionText: m.RulesPrimary,
		Active:         m.Status == "open" || m.Status == "active",
		FetchedAt:      fetchedAt,
	}
	if t, err := time.Parse(time.RFC3339, m.CloseTime); err == nil {
		out.CloseTime = &t
	}
	return out
}

// CentsToPrice converts a Kalshi cent price to a probability price.
func CentsToPrice(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
