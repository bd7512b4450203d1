package kalshi

import (
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/predixlabs/crossarb/pkg/types"
)

// DefaultFeedURL is the public streaming endpoint.
const DefaultFeedURL = "wss://api.elections.kalshi.com/trade-api/ws/v2"

// Framer speaks the Kalshi WebSocket protocol.
type Framer struct {
	nextID atomic.Int64
}

// NewFramer builds a Kalshi framer.
func NewFramer() *Framer {
	return &Framer{}
}

type command struct {
	ID     int64         `json:"id"`
	Cmd    string        `json:"cmd"`
	Params commandParams `json:"params"`
}

type commandParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers"`
}

func (f *Framer) frame(cmd string, tickers []string) ([][]byte, error) {
	data, err := json.Marshal(command{
		ID:  f.nextID.Add(1),
		Cmd: cmd,
		Params: commandParams{
			Channels:      []string{"ticker_v2"},
			MarketTickers: tickers,
		},
	})
	if err != nil {
		return nil, err
	}
	return [][]byte{data}, nil
}

func (f *Framer) SubscribeFrames(marketIDs []string) ([][]byte, error) {
	return f.frame("subscribe", marketIDs)
}

func (f *Framer) UnsubscribeFrames(marketIDs []string) ([][]byte, error) {
	return f.frame("unsubscribe", marketIDs)
}

type envelope struct {
	Type string     `json:"type"`
	Msg  tickerData `json:"msg"`
}

type tickerData struct {
	MarketTicker string `json:"market_ticker"`
	YesBid       int64  `json:"yes_bid"`
	YesAsk       int64  `json:"yes_ask"`
	Timestamp    int64  `json:"ts"`
}

// Parse decodes a ticker frame into YES and NO updates. The NO side is the
// complement of the YES book. Control frames decode to nothing.
func (f *Framer) Parse(data []byte) ([]types.PriceUpdate, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Type != "ticker_v2" || env.Msg.MarketTicker == "" {
		return nil, nil
	}

	ts := time.Now()
	if env.Msg.Timestamp > 0 {
		ts = time.Unix(env.Msg.Timestamp, 0)
	}

	yesBid := CentsToPrice(env.Msg.YesBid)
	yesAsk := CentsToPrice(env.Msg.YesAsk)
	one := decimal.NewFromInt(1)

	return []types.PriceUpdate{
		{
			Venue:     types.VenueKalshi,
			MarketID:  env.Msg.MarketTicker,
			Side:      types.SideYes,
			Bid:       yesBid,
			Ask:       yesAsk,
			Timestamp: ts,
		},
		{
			Venue:     types.VenueKalshi,
			MarketID:  env.Msg.MarketTicker,
			Side:      types.SideNo,
			Bid:       one.Sub(yesAsk),
			Ask:       one.Sub(yesBid),
			Timestamp: ts,
		},
	}, nil
}
