package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/predixlabs/crossarb/internal/scanner"
	"github.com/predixlabs/crossarb/internal/storage"
	"github.com/predixlabs/crossarb/pkg/cache"
	"github.com/predixlabs/crossarb/pkg/feed"
)

// StatsSource reports per-pair rolling scan statistics.
type StatsSource interface {
	Stats() map[string]scanner.StatSummary
}

// ScanTrigger requests an immediate scan cycle.
type ScanTrigger interface {
	Trigger()
}

// FeedStatus exposes a streaming feed's connection state.
type FeedStatus interface {
	State() feed.State
}

// APIHandler handles the /api routes.
type APIHandler struct {
	store   storage.Storage
	stats   StatsSource
	trigger ScanTrigger
	cache   cache.Cache
	feeds   map[string]FeedStatus
	started time.Time
	logger  *zap.Logger
}

// APIConfig wires the handler's dependencies. Store, stats, trigger,
// cache, and feeds are all optional; missing pieces disable their
// endpoints with 503.
type APIConfig struct {
	Store   storage.Storage
	Stats   StatsSource
	Trigger ScanTrigger
	Cache   cache.Cache
	Feeds   map[string]FeedStatus
	Logger  *zap.Logger
}

// NewAPIHandler creates the /api route handler.
func NewAPIHandler(cfg APIConfig) *APIHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		store:   cfg.Store,
		stats:   cfg.Stats,
		trigger: cfg.Trigger,
		cache:   cfg.Cache,
		feeds:   cfg.Feeds,
		started: time.Now(),
		logger:  logger,
	}
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleOpportunities handles GET /api/opportunities.
// Query parameters: limit (default 100), order (profit|detected_at),
// asc (bool).
func (h *APIHandler) HandleOpportunities(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, "storage not configured", http.StatusServiceUnavailable)
		return
	}

	q := storage.Query{OrderBy: "profit"}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			h.writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		q.Limit = limit
	}
	if order := r.URL.Query().Get("order"); order != "" {
		if order != "profit" && order != "detected_at" {
			h.writeError(w, "order must be profit or detected_at", http.StatusBadRequest)
			return
		}
		q.OrderBy = order
	}
	if raw := r.URL.Query().Get("asc"); raw != "" {
		asc, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, "asc must be a boolean", http.StatusBadRequest)
			return
		}
		q.Ascending = asc
	}

	records, err := h.store.GetOpportunities(r.Context(), q)
	if err != nil {
		h.logger.Error("opportunities-query-failed", zap.Error(err))
		h.writeError(w, "query failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, records)
}

// HandleOpportunity handles GET /api/opportunities/{id}.
func (h *APIHandler) HandleOpportunity(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeError(w, "storage not configured", http.StatusServiceUnavailable)
		return
	}

	id := chi.URLParam(r, "id")
	record, err := h.store.GetOpportunity(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeError(w, "opportunity not found", http.StatusNotFound)
			return
		}
		h.logger.Error("opportunity-query-failed", zap.String("id", id), zap.Error(err))
		h.writeError(w, "query failed", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, record)
}

// StatsResponse represents the GET /api/stats response.
type StatsResponse struct {
	Pairs map[string]scanner.StatSummary `json:"pairs"`
	Cache *CacheStats                    `json:"cache,omitempty"`
}

// CacheStats is the quote cache's hit profile.
type CacheStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Sets    uint64  `json:"sets"`
	HitRate float64 `json:"hit_rate"`
}

// HandleStats handles GET /api/stats.
func (h *APIHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		h.writeError(w, "scanner not configured", http.StatusServiceUnavailable)
		return
	}

	resp := StatsResponse{Pairs: h.stats.Stats()}
	if h.cache != nil {
		s := h.cache.Stats()
		resp.Cache = &CacheStats{
			Hits:    s.Hits,
			Misses:  s.Misses,
			Sets:    s.Sets,
			HitRate: s.HitRate(),
		}
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// StatusResponse represents the GET /api/status response.
type StatusResponse struct {
	Uptime string            `json:"uptime"`
	Feeds  map[string]string `json:"feeds"`
}

// HandleStatus handles GET /api/status.
func (h *APIHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	feeds := make(map[string]string, len(h.feeds))
	for venue, f := range h.feeds {
		feeds[venue] = f.State().String()
	}

	h.writeJSON(w, http.StatusOK, StatusResponse{
		Uptime: time.Since(h.started).String(),
		Feeds:  feeds,
	})
}

// HandleScan handles POST /api/scan. The scan runs asynchronously;
// concurrent requests coalesce into one pending cycle.
func (h *APIHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		h.writeError(w, "poller not configured", http.StatusServiceUnavailable)
		return
	}

	h.trigger.Trigger()
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "scan triggered"})
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (h *APIHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
