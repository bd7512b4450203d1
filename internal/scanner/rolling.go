package scanner

import (
	"math"
	"sync"
)

// StatSummary is a point-in-time view of one pair's profit observations.
type StatSummary struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	Stdev float64 `json:"stdev"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// RollingStats accumulates per-pair profit statistics across scan cycles
// using Welford's online algorithm, so no observation history is retained.
type RollingStats struct {
	mu    sync.Mutex
	stats map[string]*welford
}

type welford struct {
	n        int64
	mean, m2 float64
	min, max float64
}

// NewRollingStats builds an empty accumulator.
func NewRollingStats() *RollingStats {
	return &RollingStats{stats: make(map[string]*welford)}
}

// Observe records one profit observation for a pair.
func (r *RollingStats) Observe(key string, v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.stats[key]
	if !ok {
		w = &welford{min: v, max: v}
		r.stats[key] = w
	}

	w.n++
	delta := v - w.mean
	w.mean += delta / float64(w.n)
	w.m2 += delta * (v - w.mean)
	if v < w.min {
		w.min = v
	}
	if v > w.max {
		w.max = v
	}
}

// Snapshot returns a copy of all pair summaries.
func (r *RollingStats) Snapshot() map[string]StatSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]StatSummary, len(r.stats))
	for key, w := range r.stats {
		s := StatSummary{
			Count: w.n,
			Mean:  w.mean,
			Min:   w.min,
			Max:   w.max,
		}
		if w.n > 1 {
			s.Stdev = math.Sqrt(w.m2 / float64(w.n-1))
		}
		out[key] = s
	}
	return out
}
