package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/predixlabs/crossarb/internal/arbitrage"
	"github.com/predixlabs/crossarb/internal/matching"
	"github.com/predixlabs/crossarb/internal/notify"
	"github.com/predixlabs/crossarb/internal/ranking"
	"github.com/predixlabs/crossarb/internal/resolution"
	"github.com/predixlabs/crossarb/internal/scanner"
	"github.com/predixlabs/crossarb/internal/storage"
	"github.com/predixlabs/crossarb/internal/venues/kalshi"
	"github.com/predixlabs/crossarb/internal/venues/polymarket"
	"github.com/predixlabs/crossarb/pkg/cache"
	"github.com/predixlabs/crossarb/pkg/config"
	"github.com/predixlabs/crossarb/pkg/feed"
	"github.com/predixlabs/crossarb/pkg/healthprobe"
	"github.com/predixlabs/crossarb/pkg/httpserver"
	"github.com/predixlabs/crossarb/pkg/types"
)

const topOpportunityCount = 10

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker(cfg)

	quoteCache, err := setupCache(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	kalshiClient := kalshi.NewClient(kalshi.Config{
		BaseURL: cfg.KalshiBaseURL,
		Logger:  logger,
	})
	polyClient := polymarket.NewClient(polymarket.Config{
		GammaURL: cfg.PolymarketGammaURL,
		CLOBURL:  cfg.PolymarketCLOBURL,
		Logger:   logger,
	})

	arbStorage, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	pipeline, err := setupPipeline(cfg, logger, quoteCache, kalshiClient, polyClient, arbStorage)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup pipeline: %w", err)
	}

	pairSource, err := setupPairSource(cfg, logger, opts, kalshiClient, polyClient)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup pair source: %w", err)
	}

	poller, err := scanner.NewPoller(scanner.PollerConfig{
		Pipeline: pipeline,
		Source:   pairSource,
		Interval: cfg.ScanInterval,
		Logger:   logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup poller: %w", err)
	}

	var realtime *scanner.Realtime
	feeds := make(map[string]*feed.Manager)
	if cfg.FeedEnabled {
		realtime, err = scanner.NewRealtime(scanner.RealtimeConfig{
			Pipeline: pipeline,
			Cache:    quoteCache,
			Throttle: cfg.RealtimeThrottle,
			Logger:   logger,
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("setup realtime: %w", err)
		}

		feeds, err = setupFeeds(cfg, logger, polyClient)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("setup feeds: %w", err)
		}
	}

	httpServer := setupHTTPServer(cfg, logger, healthChecker, arbStorage, pipeline, poller, quoteCache, feeds)

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		quoteCache:    quoteCache,
		pipeline:      pipeline,
		pairSource:    pairSource,
		poller:        poller,
		realtime:      realtime,
		feeds:         feeds,
		storage:       arbStorage,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker(cfg *config.Config) *healthprobe.HealthChecker {
	components := []string{"storage", "scanner"}
	if cfg.FeedEnabled {
		components = append(components, "feed-kalshi", "feed-polymarket")
	}
	return healthprobe.New(components...)
}

func setupCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistretto(cache.RistrettoConfig{
		MaxEntries: cfg.CacheMaxEntries,
		Logger:     logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupPipeline(
	cfg *config.Config,
	logger *zap.Logger,
	quoteCache cache.Cache,
	kalshiClient *kalshi.Client,
	polyClient *polymarket.Client,
	arbStorage storage.Storage,
) (*scanner.Pipeline, error) {
	calc, err := arbitrage.New(arbitrage.Config{
		SafetyMargin: decimal.NewFromFloat(cfg.SafetyMargin),
		Fees:         arbitrage.DefaultFeeSchedule(),
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create calculator: %w", err)
	}

	analyzer, err := resolution.New(resolution.Config{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("create analyzer: %w", err)
	}

	notifier, err := notify.New(notify.Config{
		URL:              cfg.WebhookURL,
		MinProfitPercent: cfg.MinProfitPercent,
		Logger:           logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create notifier: %w", err)
	}

	return scanner.NewPipeline(scanner.Config{
		Sources: map[types.Venue]scanner.QuoteSource{
			types.VenueKalshi:     kalshiClient,
			types.VenuePolymarket: polyClient,
		},
		Cache:      quoteCache,
		Calculator: calc,
		Analyzer:   analyzer,
		Ranker: ranking.New(ranking.Config{
			MinProfitPercent: cfg.MinProfitPercent,
			CollectAll:       cfg.CollectAll,
			Logger:           logger,
		}),
		Store:          arbStorage,
		Top:            cache.NewTopOpportunities(topOpportunityCount, cfg.OpportunityTTL),
		Notifier:       notifier,
		QuoteTTL:       cfg.QuoteTTL,
		MaxSlippage:    decimal.NewFromFloat(cfg.MaxSlippage),
		OpportunityTTL: cfg.OpportunityTTL,
		CollectAll:     cfg.CollectAll,
		Logger:         logger,
	})
}

func setupPairSource(
	cfg *config.Config,
	logger *zap.Logger,
	opts *Options,
	kalshiClient *kalshi.Client,
	polyClient *polymarket.Client,
) (*scanner.MatchedPairSource, error) {
	matcher, err := matching.New(matching.Config{
		MinScore: cfg.MatchMinCorrelation,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create matcher: %w", err)
	}

	category := cfg.MarketCategory
	if opts.Category != "" {
		category = opts.Category
	}

	return &scanner.MatchedPairSource{
		SourceA: kalshiClient,
		SourceB: polyClient,
		Matcher: matcher,
		Filter: types.MarketFilter{
			Category:   category,
			ActiveOnly: true,
			Limit:      cfg.MarketLimit,
		},
	}, nil
}

func setupFeeds(cfg *config.Config, logger *zap.Logger, polyClient *polymarket.Client) (map[string]*feed.Manager, error) {
	kalshiFeed, err := feed.New(feed.Config{
		Venue:             types.VenueKalshi,
		URL:               cfg.KalshiFeedURL,
		Framer:            kalshi.NewFramer(),
		MaxRetries:        cfg.FeedMaxRetries,
		ReconnectInterval: cfg.FeedReconnectInterval,
		DialTimeout:       cfg.FeedDialTimeout,
		PingInterval:      cfg.FeedPingInterval,
		UpdateBufferSize:  cfg.FeedBufferSize,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create kalshi feed: %w", err)
	}

	polyFeed, err := feed.New(feed.Config{
		Venue:             types.VenuePolymarket,
		URL:               cfg.PolymarketFeedURL,
		Framer:            polymarket.NewFramer(polyClient.Tokens()),
		MaxRetries:        cfg.FeedMaxRetries,
		ReconnectInterval: cfg.FeedReconnectInterval,
		DialTimeout:       cfg.FeedDialTimeout,
		PingInterval:      cfg.FeedPingInterval,
		UpdateBufferSize:  cfg.FeedBufferSize,
		Logger:            logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create polymarket feed: %w", err)
	}

	return map[string]*feed.Manager{
		"kalshi":     kalshiFeed,
		"polymarket": polyFeed,
	}, nil
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	arbStorage storage.Storage,
	pipeline *scanner.Pipeline,
	poller *scanner.Poller,
	quoteCache cache.Cache,
	feeds map[string]*feed.Manager,
) *httpserver.Server {
	feedStatus := make(map[string]httpserver.FeedStatus, len(feeds))
	for venue, f := range feeds {
		feedStatus[venue] = f
	}

	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		API: httpserver.NewAPIHandler(httpserver.APIConfig{
			Store:   arbStorage,
			Stats:   pipeline,
			Trigger: poller,
			Cache:   quoteCache,
			Feeds:   feedStatus,
			Logger:  logger,
		}),
	})
}
