package polymarket

import (
	"time"

	json "github.com/goccy/go-json"

	"github.com/predixlabs/crossarb/pkg/types"
)

// DefaultFeedURL is the public CLOB market channel.
const DefaultFeedURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

// Framer speaks the Polymarket market-channel protocol. Subscriptions are
// keyed by CLOB asset ID, so the framer resolves market IDs through the
// client's token map.
type Framer struct {
	tokens *TokenMap
}

// NewFramer builds a framer over the given token map.
func NewFramer(tokens *TokenMap) *Framer {
	return &Framer{tokens: tokens}
}

func (f *Framer) assetIDs(marketIDs []string) []string {
	out := make([]string, 0, len(marketIDs)*2)
	for _, id := range marketIDs {
		if yes, no, ok := f.tokens.Tokens(id); ok {
			out = append(out, yes, no)
		}
	}
	return out
}

func (f *Framer) SubscribeFrames(marketIDs []string) ([][]byte, error) {
	data, err := json.Marshal(map[string]interface{}{
		"assets_ids": f.assetIDs(marketIDs),
		"type":       "market",
	})
	if err != nil {
		return nil, err
	}
	return [][]byte{data}, nil
}

func (f *Framer) UnsubscribeFrames(marketIDs []string) ([][]byte, error) {
	data, err := json.Marshal(map[string]interface{}{
		"assets_ids": f.assetIDs(marketIDs),
		"operation":  "unsubscribe",
	})
	if err != nil {
		return nil, err
	}
	return [][]byte{data}, nil
}

type bookMessage struct {
	EventType string      `json:"event_type"`
	AssetID   string      `json:"asset_id"`
	Bids      []bookLevel `json:"bids"`
	Asks      []bookLevel `json:"asks"`
}

// Parse decodes a market-channel frame. Polymarket sends arrays of book
// snapshots; heartbeats and control messages decode to nothing. Asset IDs
// that were never registered are skipped.
func (f *Framer) Parse(data []byte) ([]types.PriceUpdate, error) {
	if len(data) == 0 || string(data) == "[]" {
		return nil, nil
	}

	var msgs []bookMessage
	if err := json.Unmarshal(data, &msgs); err != nil {
		// Not an array; control messages arrive as objects.
		var control map[string]interface{}
		if json.Unmarshal(data, &control) == nil {
			return nil, nil
		}
		return nil, err
	}

	now := time.Now()
	var out []types.PriceUpdate
	for _, msg := range msgs {
		if msg.EventType != "book" || msg.AssetID == "" {
			continue
		}
		marketID, side, ok := f.tokens.Resolve(msg.AssetID)
		if !ok {
			continue
		}

		level, err := toPriceLevel(bookResponse{Bids: msg.Bids, Asks: msg.Asks})
		if err != nil {
			return nil, err
		}
		if level.Bid.IsZero() && level.Ask.IsZero() {
			continue
		}

		out = append(out, types.PriceUpdate{
			Venue:     types.VenuePolymarket,
			MarketID:  marketID,
			Side:      side,
			Bid:       level.Bid,
			Ask:       level.Ask,
			Timestamp: now,
		})
	}
	return out, nil
}
