package cache

import (
	"sort"
	"sync"
	"time"
)

// ScoredItem is an entry in a TopOpportunities set, ordered by Profit.
type ScoredItem struct {
	ID     string
	Profit float64
	Value  interface{}
}

type topEntry struct {
	item    ScoredItem
	addedAt time.Time
}

// TopOpportunities is a bounded ordered set of the most profitable items,
// with a TTL independent from the main cache. Re-adding an ID replaces the
// previous entry and refreshes its TTL.
type TopOpportunities struct {
	mu      sync.Mutex
	n       int
	ttl     time.Duration
	entries []topEntry

	now func() time.Time
}

// NewTopOpportunities builds a set keeping at most n items alive for ttl.
func NewTopOpportunities(n int, ttl time.Duration) *TopOpportunities {
	if n <= 0 {
		n = 10
	}
	return &TopOpportunities{
		n:   n,
		ttl: ttl,
		now: time.Now,
	}
}

// Add inserts an item, evicting the lowest-profit entry when full.
func (t *TopOpportunities) Add(item ScoredItem) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.expireLocked(now)

	for i := range t.entries {
		if t.entries[i].item.ID == item.ID {
			t.entries[i] = topEntry{item: item, addedAt: now}
			t.sortLocked()
			return
		}
	}

	t.entries = append(t.entries, topEntry{item: item, addedAt: now})
	t.sortLocked()
	if len(t.entries) > t.n {
		t.entries = t.entries[:t.n]
	}
}

// Best returns up to k items in descending profit order.
func (t *TopOpportunities) Best(k int) []ScoredItem {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expireLocked(t.now())
	if k <= 0 || k > len(t.entries) {
		k = len(t.entries)
	}
	out := make([]ScoredItem, k)
	for i := 0; i < k; i++ {
		out[i] = t.entries[i].item
	}
	return out
}

// Len returns the number of live entries.
func (t *TopOpportunities) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireLocked(t.now())
	return len(t.entries)
}

func (t *TopOpportunities) expireLocked(now time.Time) {
	if t.ttl <= 0 {
		return
	}
	live := t.entries[:0]
	for _, e := range t.entries {
		if now.Sub(e.addedAt) <= t.ttl {
			live = append(live, e)
		}
	}
	t.entries = live
}

func (t *TopOpportunities) sortLocked() {
	sort.SliceStable(t.entries, func(i, j int) bool {
		return t.entries[i].item.Profit > t.entries[j].item.Profit
	})
}
