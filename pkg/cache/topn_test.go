package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopOpportunities_OrderedByProfit(t *testing.T) {
	top := NewTopOpportunities(3, time.Minute)

	top.Add(ScoredItem{ID: "a", Profit: 2.1})
	top.Add(ScoredItem{ID: "b", Profit: 7.5})
	top.Add(ScoredItem{ID: "c", Profit: 4.9})

	best := top.Best(0)
	require.Len(t, best, 3)
	assert.Equal(t, []string{"b", "c", "a"}, ids(best))
}

func TestTopOpportunities_EvictsLowestWhenFull(t *testing.T) {
	top := NewTopOpportunities(2, time.Minute)

	top.Add(ScoredItem{ID: "a", Profit: 2.1})
	top.Add(ScoredItem{ID: "b", Profit: 7.5})
	top.Add(ScoredItem{ID: "c", Profit: 4.9})

	assert.Equal(t, []string{"b", "c"}, ids(top.Best(0)))

	// Below every kept entry, never admitted.
	top.Add(ScoredItem{ID: "d", Profit: 1.0})
	assert.Equal(t, []string{"b", "c"}, ids(top.Best(0)))
}

func TestTopOpportunities_ReplacesExistingID(t *testing.T) {
	top := NewTopOpportunities(3, time.Minute)

	top.Add(ScoredItem{ID: "a", Profit: 2.1})
	top.Add(ScoredItem{ID: "a", Profit: 9.0})

	best := top.Best(0)
	require.Len(t, best, 1)
	assert.Equal(t, 9.0, best[0].Profit)
}

func TestTopOpportunities_TTLExpiry(t *testing.T) {
	top := NewTopOpportunities(3, time.Minute)
	base := time.Now()
	now := base
	top.now = func() time.Time { return now }

	top.Add(ScoredItem{ID: "old", Profit: 5.0})

	now = base.Add(40 * time.Second)
	top.Add(ScoredItem{ID: "fresh", Profit: 1.0})
	assert.Equal(t, 2, top.Len())

	now = base.Add(80 * time.Second)
	assert.Equal(t, []string{"fresh"}, ids(top.Best(0)))
	assert.Equal(t, 1, top.Len())
}

func TestTopOpportunities_BestLimit(t *testing.T) {
	top := NewTopOpportunities(5, time.Minute)
	top.Add(ScoredItem{ID: "a", Profit: 2.0})
	top.Add(ScoredItem{ID: "b", Profit: 3.0})
	top.Add(ScoredItem{ID: "c", Profit: 1.0})

	assert.Equal(t, []string{"b", "a"}, ids(top.Best(2)))
}

func ids(items []ScoredItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
