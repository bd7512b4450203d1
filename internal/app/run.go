package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/predixlabs/crossarb/internal/scanner"
	"github.com/predixlabs/crossarb/pkg/feed"
	"github.com/predixlabs/crossarb/pkg/types"
)

// pairRefreshInterval is how often the realtime pair index is rebuilt
// from fresh market listings.
const pairRefreshInterval = 5 * time.Minute

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.Bool("feeds-enabled", a.cfg.FeedEnabled),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.Duration("scan-interval", a.cfg.ScanInterval))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	// Start HTTP server
	a.wg.Add(1)
	go a.runHTTPServer()

	a.healthChecker.SetReady("storage", true)

	// Start poller; the first cycle runs immediately
	err := a.poller.Start(a.ctx)
	if err != nil {
		return fmt.Errorf("start poller: %w", err)
	}
	a.healthChecker.SetReady("scanner", true)

	a.wg.Add(1)
	go a.consumeScanEvents()

	if a.cfg.FeedEnabled {
		err = a.startFeeds()
		if err != nil {
			return fmt.Errorf("start feeds: %w", err)
		}

		a.wg.Add(1)
		go a.refreshPairsLoop()
	}

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) startFeeds() error {
	updates := make(chan types.PriceUpdate, a.cfg.FeedBufferSize)

	for venue, f := range a.feeds {
		err := f.Connect(a.ctx)
		if err != nil {
			// The manager keeps retrying in the background; a failed
			// first dial is not fatal.
			a.logger.Warn("feed-initial-connect-failed",
				zap.String("venue", venue), zap.Error(err))
		} else {
			a.healthChecker.SetReady("feed-"+venue, true)
		}

		a.wg.Add(1)
		go a.forwardUpdates(f.Updates(), updates)
		a.wg.Add(1)
		go a.watchFeedState(venue, f)
	}

	err := a.realtime.Start(a.ctx, updates)
	if err != nil {
		return fmt.Errorf("start realtime: %w", err)
	}

	return a.refreshPairs()
}

// forwardUpdates merges one feed's updates into the shared realtime
// channel.
func (a *App) forwardUpdates(in <-chan types.PriceUpdate, out chan<- types.PriceUpdate) {
	defer a.wg.Done()
	for {
		select {
		case <-a.ctx.Done():
			return
		case u, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- u:
			case <-a.ctx.Done():
				return
			}
		}
	}
}

// consumeScanEvents drains the pipeline's event stream onto the operator
// log: one line per detected opportunity, one per failed pair. Draining
// here also keeps the buffered channel from overflowing and dropping
// events.
func (a *App) consumeScanEvents() {
	defer a.wg.Done()
	for {
		select {
		case <-a.ctx.Done():
			return
		case ev := <-a.pipeline.Events():
			switch ev.Kind {
			case scanner.EventOpportunity:
				a.logger.Info("opportunity-detected",
					zap.String("opportunity-id", ev.Opportunity.ID),
					zap.String("pair", ev.Pair.Key()),
					zap.Float64("profit-percent", ev.Opportunity.ProfitPercent()),
					zap.Bool("tradeable", ev.Opportunity.Alignment.Tradeable))
			case scanner.EventError:
				a.logger.Warn("pair-scan-error",
					zap.String("pair", ev.Pair.Key()),
					zap.Error(ev.Err))
			}
		}
	}
}

// watchFeedState mirrors feed state transitions into the readiness
// probe, so a feed stuck reconnecting drops out of /ready until it
// recovers.
func (a *App) watchFeedState(venue string, f *feed.Manager) {
	defer a.wg.Done()
	for {
		select {
		case <-a.ctx.Done():
			return
		case ev, ok := <-f.Events():
			if !ok {
				return
			}
			a.healthChecker.SetReady("feed-"+venue, ev.State == feed.StateConnected)
			if ev.Err != nil {
				a.logger.Warn("feed-state-changed",
					zap.String("venue", venue),
					zap.String("state", ev.State.String()),
					zap.Error(ev.Err))
			} else {
				a.logger.Info("feed-state-changed",
					zap.String("venue", venue),
					zap.String("state", ev.State.String()))
			}
		}
	}
}

// refreshPairs rebuilds the realtime pair index and updates feed
// subscriptions to cover the matched markets.
func (a *App) refreshPairs() error {
	pairs, err := a.pairSource.Pairs(a.ctx)
	if err != nil {
		return fmt.Errorf("list pairs: %w", err)
	}

	a.realtime.SetPairs(pairs)

	byVenue := make(map[string][]string)
	for _, pair := range pairs {
		byVenue[string(pair.MarketA.Venue)] = append(byVenue[string(pair.MarketA.Venue)], pair.MarketA.ID)
		byVenue[string(pair.MarketB.Venue)] = append(byVenue[string(pair.MarketB.Venue)], pair.MarketB.ID)
	}

	for venue, f := range a.feeds {
		ids := byVenue[venue]
		if len(ids) == 0 {
			continue
		}
		err := f.Subscribe(a.ctx, ids)
		if err != nil {
			a.logger.Warn("feed-subscribe-failed",
				zap.String("venue", venue),
				zap.Int("markets", len(ids)),
				zap.Error(err))
		}
	}

	a.logger.Info("pairs-refreshed", zap.Int("pairs", len(pairs)))
	return nil
}

func (a *App) refreshPairsLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(pairRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			err := a.refreshPairs()
			if err != nil {
				a.logger.Error("pair-refresh-error", zap.Error(err))
			}
		}
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
