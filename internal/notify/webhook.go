// Package notify pushes detected opportunities to an external webhook.
// Delivery is fire-and-forget: failures are logged and never block a scan.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/predixlabs/crossarb/internal/arbitrage"
)

// Alert is the webhook payload for one opportunity.
type Alert struct {
	ID            string   `json:"id"`
	ProfitPercent float64  `json:"profit_percent"`
	TotalCost     float64  `json:"total_cost"`
	Markets       []string `json:"markets"`
	Confidence    float64  `json:"confidence"`
	Risk          string   `json:"risk"`
	DetectedAt    string   `json:"detected_at"`
}

// Config holds webhook notifier configuration.
type Config struct {
	// URL is the webhook endpoint. Empty disables notification.
	URL string

	Timeout time.Duration

	// MinProfitPercent suppresses alerts below this return.
	MinProfitPercent float64

	Client *http.Client
	Logger *zap.Logger
}

// Notifier posts alerts to a webhook.
type Notifier struct {
	url       string
	minProfit float64
	client    *http.Client
	logger    *zap.Logger
}

// New builds a webhook notifier. A nil return with nil error means
// notification is disabled.
func New(cfg Config) (*Notifier, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Notifier{
		url:       cfg.URL,
		minProfit: cfg.MinProfitPercent,
		client:    cfg.Client,
		logger:    cfg.Logger,
	}, nil
}

// Notify posts one opportunity, spawning the delivery so the caller never
// waits on the webhook.
func (n *Notifier) Notify(ctx context.Context, opp *arbitrage.Opportunity) {
	if n == nil {
		return
	}
	if opp.ProfitPercent() < n.minProfit {
		return
	}

	alert := buildAlert(opp)
	go func() {
		if err := n.send(context.WithoutCancel(ctx), alert); err != nil {
			SendFailuresTotal.Inc()
			n.logger.Warn("webhook-send-failed",
				zap.String("opportunity-id", alert.ID),
				zap.Error(err))
			return
		}
		SendsTotal.Inc()
	}()
}

func (n *Notifier) send(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

func buildAlert(opp *arbitrage.Opportunity) Alert {
	risk := "low"
	switch {
	case len(opp.Alignment.Risks) > 0:
		risk = "high"
	case len(opp.Alignment.Warnings) > 0:
		risk = "medium"
	}

	return Alert{
		ID:            opp.ID,
		ProfitPercent: opp.ProfitPercent(),
		TotalCost:     opp.Best.TotalCost.InexactFloat64(),
		Markets: []string{
			fmt.Sprintf("%s:%s", opp.Pair.MarketA.Venue, opp.Pair.MarketA.ID),
			fmt.Sprintf("%s:%s", opp.Pair.MarketB.Venue, opp.Pair.MarketB.ID),
		},
		Confidence: opp.Confidence,
		Risk:       risk,
		DetectedAt: opp.DetectedAt.UTC().Format(time.RFC3339),
	}
}
