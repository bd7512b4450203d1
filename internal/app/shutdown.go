package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady("scanner", false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop the HTTP server first so in-flight API reads drain before
	// their backing components go away.
	err := a.httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	// Cancel context to signal all components
	a.cancel()

	// Feeds stop producing before the consumers close
	for venue, f := range a.feeds {
		err = f.Disconnect()
		if err != nil {
			a.logger.Error("feed-disconnect-error",
				zap.String("venue", venue), zap.Error(err))
		}
	}

	if a.realtime != nil {
		err = a.realtime.Close()
		if err != nil {
			a.logger.Error("realtime-close-error", zap.Error(err))
		}
	}

	err = a.poller.Close()
	if err != nil {
		a.logger.Error("poller-close-error", zap.Error(err))
	}

	err = a.storage.Close()
	if err != nil {
		a.logger.Error("storage-close-error", zap.Error(err))
	}

	a.quoteCache.Close()

	// Wait for all goroutines
	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}
