// Package cache provides the short-TTL key/value layer shared by scan cycles
// and feed handlers. TTL is enforced by the backing store and never refreshed
// on read.
package cache

import (
	"strings"
	"time"

	"github.com/predixlabs/crossarb/pkg/types"
)

// Kind namespaces cache keys.
type Kind string

const (
	KindQuote       Kind = "quote"
	KindMarket      Kind = "market"
	KindOpportunity Kind = "opp"
)

// Key builds the canonical cache key for (kind, venue, id).
func Key(kind Kind, venue types.Venue, id string) string {
	var b strings.Builder
	b.Grow(len(kind) + len(venue) + len(id) + 2)
	b.WriteString(string(kind))
	b.WriteByte(':')
	b.WriteString(string(venue))
	b.WriteByte(':')
	b.WriteString(id)
	return b.String()
}

// Prefix builds the key prefix for all entries of a kind on a venue.
func Prefix(kind Kind, venue types.Venue) string {
	return string(kind) + ":" + string(venue) + ":"
}

// Stats is the hit/miss accounting exposed by every cache.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Sets   uint64 `json:"sets"`
}

// HitRate returns the fraction of reads served from cache.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is the interface for the short-TTL store.
type Cache interface {
	// Get retrieves a value. Expired entries are misses.
	Get(key string) (interface{}, bool)

	// Set stores a value with a TTL.
	Set(key string, value interface{}, ttl time.Duration) bool

	// SetMany stores a batch of values under one TTL.
	SetMany(entries map[string]interface{}, ttl time.Duration)

	// GetMany retrieves a batch, omitting misses from the result.
	GetMany(keys []string) map[string]interface{}

	// Delete removes a single key.
	Delete(key string)

	// Clear removes all keys with the given prefix; an empty prefix
	// clears everything.
	Clear(prefix string)

	// Stats returns hit/miss accounting since construction.
	Stats() Stats

	// Wait blocks until pending writes are applied.
	Wait()

	// Close releases resources.
	Close()
}

// StoreQuote caches a quote under its canonical key.
func StoreQuote(c Cache, q *types.Quote, ttl time.Duration) bool {
	return c.Set(Key(KindQuote, q.Venue, q.MarketID), q, ttl)
}

// LoadQuote retrieves a cached quote. A quote older than maxAge is treated
// as a cache miss, never returned for calculation.
func LoadQuote(c Cache, venue types.Venue, marketID string, maxAge time.Duration, now time.Time) (*types.Quote, bool) {
	v, ok := c.Get(Key(KindQuote, venue, marketID))
	if !ok {
		return nil, false
	}
	q, ok := v.(*types.Quote)
	if !ok {
		return nil, false
	}
	if maxAge > 0 && q.Age(now) > maxAge {
		StaleQuotesTotal.Inc()
		return nil, false
	}
	return q, true
}
