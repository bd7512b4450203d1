// Package polymarket adapts the Polymarket Gamma and CLOB APIs.
package polymarket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/predixlabs/crossarb/internal/venues"
	"github.com/predixlabs/crossarb/pkg/types"
)

const (
	// DefaultGammaURL serves market metadata.
	DefaultGammaURL = "https://gamma-api.polymarket.com"

	// DefaultCLOBURL serves orderbooks.
	DefaultCLOBURL = "https://clob.polymarket.com"

	// maxPageSize matches the Gamma API batch cap.
	maxPageSize = 100
)

// TokenMap tracks the CLOB token IDs behind each market, in both
// directions. The streaming framer resolves inbound asset IDs through it.
type TokenMap struct {
	mu      sync.RWMutex
	byID    map[string][2]string // marketID -> [yes, no]
	byToken map[string]tokenRef
}

type tokenRef struct {
	marketID string
	side     types.Side
}

// NewTokenMap builds an empty token map.
func NewTokenMap() *TokenMap {
	return &TokenMap{
		byID:    make(map[string][2]string),
		byToken: make(map[string]tokenRef),
	}
}

func (tm *TokenMap) put(marketID, yesToken, noToken string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.byID[marketID] = [2]string{yesToken, noToken}
	tm.byToken[yesToken] = tokenRef{marketID: marketID, side: types.SideYes}
	tm.byToken[noToken] = tokenRef{marketID: marketID, side: types.SideNo}
}

// Tokens returns the YES and NO token IDs for a market.
func (tm *TokenMap) Tokens(marketID string) (yes, no string, ok bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	pair, ok := tm.byID[marketID]
	return pair[0], pair[1], ok
}

// Resolve maps a token ID back to its market and side.
func (tm *TokenMap) Resolve(tokenID string) (marketID string, side types.Side, ok bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	ref, ok := tm.byToken[tokenID]
	return ref.marketID, ref.side, ok
}

// Config holds Polymarket client configuration.
type Config struct {
	GammaURL string
	CLOBURL  string

	// RequestsPerSecond throttles outbound calls. Defaults to 5.
	RequestsPerSecond float64

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client is the Polymarket REST adapter.
type Client struct {
	gammaURL string
	clobURL  string
	client   *http.Client
	limiter  *rate.Limiter
	tokens   *TokenMap
	logger   *zap.Logger
}

// NewClient builds a Polymarket client.
func NewClient(cfg Config) *Client {
	if cfg.GammaURL == "" {
		cfg.GammaURL = DefaultGammaURL
	}
	if cfg.CLOBURL == "" {
		cfg.CLOBURL = DefaultCLOBURL
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
		gammaURL: cfg.GammaURL,
		clobURL:  cfg.CLOBURL,
		client:   cfg.HTTPClient,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		tokens:   NewTokenMap(),
		logger:   cfg.Logger,
	}
}

var _ venues.Adapter = (*Client)(nil)

// Name identifies the venue.
func (c *Client) Name() types.Venue { return types.VenuePolymarket }

// Tokens exposes the token map for the streaming framer.
func (c *Client) Tokens() *TokenMap { return c.tokens }

type gammaMarket struct {
	ConditionID  string `json:"conditionId"`
	Question     string `json:"question"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	EndDate      string `json:"endDate"`
	Active       bool   `json:"active"`
	Closed       bool   `json:"closed"`
	ClobTokenIDs string `json:"clobTokenIds"`
}

// GetMarkets lists active markets from the Gamma API, recording CLOB token
// IDs as a side effect so quotes and streams can be resolved later.
func (c *Client) GetMarkets(ctx context.Context, filter types.MarketFilter) ([]types.Market, error) {
	start := time.Now()
	defer func() {
		venues.RequestDurationSeconds.WithLabelValues("polymarket", "get-markets").
			Observe(time.Since(start).Seconds())
	}()

	var (
		out    []types.Market
		offset int
	)
	for {
		page, err := c.fetchPage(ctx, filter, offset)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)

		if len(page) < maxPageSize || (filter.Limit > 0 && len(out) >= filter.Limit) {
			break
		}
		offset += maxPageSize
	}

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	c.logger.Debug("polymarket-markets-fetched", zap.Int("count", len(out)))
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, filter types.MarketFilter, offset int) ([]types.Market, error) {
	params := url.Values{}
	params.Add("active", "true")
	params.Add("closed", "false")
	params.Add("limit", strconv.Itoa(maxPageSize))
	params.Add("offset", strconv.Itoa(offset))

	var raw []gammaMarket
	reqURL := fmt.Sprintf("%s/markets?%s", c.gammaURL, params.Encode())
	venues.RequestsTotal.WithLabelValues("polymarket", "get-markets").Inc()
	if err := venues.GetJSON(ctx, c.client, c.limiter, types.VenuePolymarket, reqURL, &raw); err != nil {
		return nil, err
	}

	now := time.Now()
	markets := make([]types.Market, 0, len(raw))
	for _, gm := range raw {
		if gm.ConditionID == "" {
			continue
		}
		if filter.Category != "" && gm.Category != filter.Category {
			continue
		}
		markets = append(markets, c.toMarket(gm, now))
	}
	return markets, nil
}

func (c *Client) toMarket(gm gammaMarket, fetchedAt time.Time) types.Market {
	out := types.Market{
		Venue:          types.VenuePolymarket,
		ID:             gm.ConditionID,
		Title:          gm.Question,
		Description:    gm.Description,
		Category:       gm.Category,
		ResolutionText: gm.Description,
		Active:         gm.Active && !gm.Closed,
		FetchedAt:      fetchedAt,
	}
	if t, err := time.Parse(time.RFC3339, gm.EndDate); err == nil {
		out.CloseTime = &t
	}

	// clobTokenIds arrives as a JSON array encoded inside a string.
	var tokenIDs []string
	if err := json.Unmarshal([]byte(gm.ClobTokenIDs), &tokenIDs); err == nil && len(tokenIDs) == 2 {
		c.tokens.put(gm.ConditionID, tokenIDs[0], tokenIDs[1])
	}
	return out
}

type bookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type bookResponse struct {
	Bids []bookLevel `json:"bids"`
	Asks []bookLevel `json:"asks"`
}

// GetQuote fetches both CLOB books for one market. The market must have
// been seen by GetMarkets first so its token IDs are known.
func (c *Client) GetQuote(ctx context.Context, marketID string) (*types.Quote, error) {
	start := time.Now()
	defer func() {
		venues.RequestDurationSeconds.WithLabelValues("polymarket", "get-quote").
			Observe(time.Since(start).Seconds())
	}()

	yesToken, noToken, ok := c.tokens.Tokens(marketID)
	if !ok {
		return nil, fmt.Errorf("polymarket market %s: unknown clob tokens", marketID)
	}

	yes, err := c.fetchBook(ctx, yesToken)
	if err != nil {
		return nil, fmt.Errorf("yes book for %s: %w", marketID, err)
	}
	no, err := c.fetchBook(ctx, noToken)
	if err != nil {
		return nil, fmt.Errorf("no book for %s: %w", marketID, err)
	}

	q := &types.Quote{
		Venue:     types.VenuePolymarket,
		MarketID:  marketID,
		Timestamp: time.Now(),
		Yes:       yes,
		No:        no,
	}
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("polymarket quote for %s: %w", marketID, err)
	}
	return q, nil
}

func (c *Client) fetchBook(ctx context.Context, tokenID string) (types.PriceLevel, error) {
	var resp bookResponse
	reqURL := fmt.Sprintf("%s/book?token_id=%s", c.clobURL, url.QueryEscape(tokenID))
	venues.RequestsTotal.WithLabelValues("polymarket", "get-quote").Inc()
	if err := venues.GetJSON(ctx, c.client, c.limiter, types.VenuePolymarket, reqURL, &resp); err != nil {
		return types.PriceLevel{}, err
	}
	return toPriceLevel(resp)
}

// toPriceLevel reduces a book to its touch prices. Ask levels are kept as
// depth, cheapest first, for slippage estimation.
func toPriceLevel(book bookResponse) (types.PriceLevel, error) {
	var out types.PriceLevel

	bestBid := decimal.Zero
	for _, lvl := range book.Bids {
		price, _, err := parseLevel(lvl)
		if err != nil {
			return out, err
		}
		if price.GreaterThan(bestBid) {
			bestBid = price
		}
	}

	bestAsk := decimal.Zero
	for _, lvl := range book.Asks {
		price, size, err := parseLevel(lvl)
		if err != nil {
			return out, err
		}
		if bestAsk.IsZero() || price.LessThan(bestAsk) {
			bestAsk = price
		}
		out.Depth = append(out.Depth, types.DepthLevel{Price: price, Size: size})
	}
	sort.Slice(out.Depth, func(i, j int) bool {
		return out.Depth[i].Price.LessThan(out.Depth[j].Price)
	})

	out.Bid = bestBid
	out.Ask = bestAsk
	if !bestBid.IsZero() && !bestAsk.IsZero() {
		out.Mid = bestBid.Add(bestAsk).Div(decimal.NewFromInt(2))
	}
	return out, nil
}

func parseLevel(lvl bookLevel) (price, size decimal.Decimal, err error) {
	price, err = decimal.NewFromString(lvl.Price)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse book price %q: %w", lvl.Price, err)
	}
	size, err = decimal.NewFromString(lvl.Size)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("parse book size %q: %w", lvl.Size, err)
	}
	return price, size, nil
}
