package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/predixlabs/crossarb/pkg/cache"
	"github.com/predixlabs/crossarb/pkg/types"
)

var two = decimal.NewFromInt(2)

// RealtimeConfig holds realtime rescanner configuration.
type RealtimeConfig struct {
	Pipeline *Pipeline
	Cache    cache.Cache

	// QuoteTTL is the cache lifetime for streamed quotes. Defaults to 30s.
	QuoteTTL time.Duration

	// Throttle bounds rescan frequency. A burst of updates triggers one
	// immediate rescan (leading edge) and at most one deferred rescan
	// (trailing edge) per window. Defaults to 500ms.
	Throttle time.Duration

	Clock  clock.Clock
	Logger *zap.Logger
}

// Realtime consumes streamed price updates, keeps the quote cache current,
// and rescans only the pairs whose prices actually moved.
type Realtime struct {
	pipeline *Pipeline
	cache    cache.Cache
	quoteTTL time.Duration
	throttle time.Duration
	clock    clock.Clock
	logger   *zap.Logger

	mu           sync.Mutex
	pairsByKey   map[string][]types.CrossExchangePair // venue:marketID -> affected pairs
	dirty        map[string]types.CrossExchangePair
	lastScan     time.Time
	trailing     *clock.Timer
	trailingLive bool
	scanning     bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRealtime builds a realtime rescanner.
func NewRealtime(cfg RealtimeConfig) (*Realtime, error) {
	if cfg.Pipeline == nil {
		return nil, &types.ConfigurationError{Setting: "Pipeline", Reason: "must not be nil"}
	}
	if cfg.Cache == nil {
		return nil, &types.ConfigurationError{Setting: "Cache", Reason: "must not be nil"}
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 30 * time.Second
	}
	if cfg.Throttle <= 0 {
		cfg.Throttle = 500 * time.Millisecond
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Realtime{
		pipeline:   cfg.Pipeline,
		cache:      cfg.Cache,
		quoteTTL:   cfg.QuoteTTL,
		throttle:   cfg.Throttle,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		pairsByKey: make(map[string][]types.CrossExchangePair),
		dirty:      make(map[string]types.CrossExchangePair),
	}, nil
}

// SetPairs replaces the pair index. Updates for markets outside the index
// refresh the cache but trigger no rescan.
func (r *Realtime) SetPairs(pairs []types.CrossExchangePair) {
	index := make(map[string][]types.CrossExchangePair)
	for _, pair := range pairs {
		for _, m := range []types.Market{pair.MarketA, pair.MarketB} {
			key := string(m.Venue) + ":" + m.ID
			index[key] = append(index[key], pair)
		}
	}

	r.mu.Lock()
	r.pairsByKey = index
	r.mu.Unlock()
}

// Start consumes updates until the channel closes or the context ends.
func (r *Realtime) Start(ctx context.Context, updates <-chan types.PriceUpdate) error {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				r.handle(ctx, u)
			}
		}
	}()
	return nil
}

// Close stops consumption and cancels any trailing rescan.
func (r *Realtime) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Lock()
	if r.trailing != nil {
		r.trailing.Stop()
		r.trailingLive = false
	}
	r.mu.Unlock()
	r.wg.Wait()
	return nil
}

func (r *Realtime) handle(ctx context.Context, u types.PriceUpdate) {
	RealtimeUpdatesTotal.Inc()
	r.applyUpdate(u)

	key := string(u.Venue) + ":" + u.MarketID
	r.mu.Lock()
	affected := r.pairsByKey[key]
	if len(affected) == 0 {
		r.mu.Unlock()
		return
	}
	for _, pair := range affected {
		r.dirty[pair.Key()] = pair
	}

	now := r.clock.Now()
	if now.Sub(r.lastScan) >= r.throttle {
		// Leading edge: rescan immediately.
		r.lastScan = now
		pairs := r.takeDirtyLocked()
		r.mu.Unlock()
		r.rescan(ctx, pairs)
		return
	}

	if !r.trailingLive {
		// Trailing edge: one deferred rescan picks up the burst.
		r.trailingLive = true
		wait := r.throttle - now.Sub(r.lastScan)
		r.trailing = r.clock.AfterFunc(wait, func() {
			r.mu.Lock()
			r.trailingLive = false
			r.lastScan = r.clock.Now()
			pairs := r.takeDirtyLocked()
			r.mu.Unlock()
			r.rescan(ctx, pairs)
		})
	}
	r.mu.Unlock()
}

// applyUpdate merges a one-sided update into the cached quote.
func (r *Realtime) applyUpdate(u types.PriceUpdate) {
	q, ok := cache.LoadQuote(r.cache, u.Venue, u.MarketID, 0, u.Timestamp)
	if !ok {
		q = &types.Quote{Venue: u.Venue, MarketID: u.MarketID}
	}

	level := q.Level(u.Side)
	level.Bid = u.Bid
	level.Ask = u.Ask
	level.Mid = u.Bid.Add(u.Ask).Div(two)
	if u.Side == types.SideYes {
		q.Yes = level
	} else {
		q.No = level
	}
	q.Timestamp = u.Timestamp

	cache.StoreQuote(r.cache, q, r.quoteTTL)
}

func (r *Realtime) takeDirtyLocked() []types.CrossExchangePair {
	pairs := make([]types.CrossExchangePair, 0, len(r.dirty))
	for _, pair := range r.dirty {
		pairs = append(pairs, pair)
	}
	r.dirty = make(map[string]types.CrossExchangePair)
	return pairs
}

// rescan runs at most one pipeline scan at a time. Pairs arriving while a
// scan is in flight fold back into the dirty set; the in-flight call drains
// them in a follow-up cycle, so the leading edge and the trailing timer can
// never run the pipeline concurrently.
func (r *Realtime) rescan(ctx context.Context, pairs []types.CrossExchangePair) {
	if len(pairs) == 0 || ctx.Err() != nil {
		return
	}

	r.mu.Lock()
	if r.scanning {
		for _, pair := range pairs {
			r.dirty[pair.Key()] = pair
		}
		CoalescedTriggersTotal.Inc()
		r.mu.Unlock()
		return
	}
	r.scanning = true
	r.mu.Unlock()

	for {
		ThrottledRescansTotal.Inc()
		if _, err := r.pipeline.Scan(ctx, pairs); err != nil {
			r.logger.Error("realtime-rescan-failed", zap.Error(err))
		}

		r.mu.Lock()
		if len(r.dirty) == 0 || ctx.Err() != nil {
			r.scanning = false
			r.mu.Unlock()
			return
		}
		r.lastScan = r.clock.Now()
		pairs = r.takeDirtyLocked()
		r.mu.Unlock()
	}
}
