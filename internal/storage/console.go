package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/predixlabs/crossarb/internal/arbitrage"
)

const consoleRetention = 1000

// ConsoleStorage implements Storage by pretty-printing to console. It keeps
// a bounded in-memory window so API queries still work without a database.
type ConsoleStorage struct {
	logger *zap.Logger

	mu      sync.Mutex
	records []*Record
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{logger: logger}
}

// SaveOpportunity pretty-prints an opportunity and retains it in memory.
func (c *ConsoleStorage) SaveOpportunity(ctx context.Context, opp *arbitrage.Opportunity) error {
	r := toRecord(opp)

	c.mu.Lock()
	c.records = append(c.records, r)
	if len(c.records) > consoleRetention {
		c.records = c.records[len(c.records)-consoleRetention:]
	}
	c.mu.Unlock()

	fmt.Println("\n════════════════════════════════════════════════════════════")
	fmt.Println("CROSS-EXCHANGE OPPORTUNITY")
	fmt.Println("════════════════════════════════════════════════════════════")
	fmt.Printf("ID:         %s\n", r.ID[:8])
	fmt.Printf("Detected:   %s\n", r.DetectedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Leg A:      %s %s @ %.4f on %s (fee %.4f)\n", r.SideA, r.MarketA, r.AskA, r.VenueA, r.FeeA)
	fmt.Printf("Leg B:      %s %s @ %.4f on %s (fee %.4f)\n", r.SideB, r.MarketB, r.AskB, r.VenueB, r.FeeB)
	fmt.Printf("Total cost: %.4f\n", r.TotalCost)
	fmt.Printf("Profit:     %.4f (%.2f%%)\n", r.ProfitMargin, r.ProfitPercent)
	fmt.Printf("Resolution: %d/100  confidence %.2f  max size $%.2f\n",
		r.ResolutionScore, r.Confidence, r.MaxSize)
	fmt.Println("════════════════════════════════════════════════════════════")

	return nil
}

// GetOpportunities returns retained opportunities per the query.
func (c *ConsoleStorage) GetOpportunities(ctx context.Context, q Query) ([]*Record, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}

	c.mu.Lock()
	out := make([]*Record, len(c.records))
	copy(out, c.records)
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if q.OrderBy == "profit" {
			if q.Ascending {
				return out[i].ProfitPercent < out[j].ProfitPercent
			}
			return out[i].ProfitPercent > out[j].ProfitPercent
		}
		if q.Ascending {
			return out[i].DetectedAt.Before(out[j].DetectedAt)
		}
		return out[j].DetectedAt.Before(out[i].DetectedAt)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetOpportunity returns one retained opportunity by ID.
func (c *ConsoleStorage) GetOpportunity(ctx context.Context, id string) (*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.records {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
