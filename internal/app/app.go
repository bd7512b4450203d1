package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/predixlabs/crossarb/internal/scanner"
	"github.com/predixlabs/crossarb/internal/storage"
	"github.com/predixlabs/crossarb/pkg/cache"
	"github.com/predixlabs/crossarb/pkg/config"
	"github.com/predixlabs/crossarb/pkg/feed"
	"github.com/predixlabs/crossarb/pkg/healthprobe"
	"github.com/predixlabs/crossarb/pkg/httpserver"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server
	quoteCache    cache.Cache
	pipeline      *scanner.Pipeline
	pairSource    *scanner.MatchedPairSource
	poller        *scanner.Poller
	realtime      *scanner.Realtime
	feeds         map[string]*feed.Manager
	storage       storage.Storage
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// Options holds application options.
type Options struct {
	Category string // For focused runs: restrict scanning to one category
}
