package kalshi

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predixlabs/crossarb/pkg/types"
)

func TestFramer_SubscribeFrames(t *testing.T) {
	f := NewFramer()

	frames, err := f.SubscribeFrames([]string{"FED-25DEC", "CPI-25NOV"})
	require.NoError(t, err)
	require.Len(t, frames, 1)

	var cmd command
	require.NoError(t, json.Unmarshal(frames[0], &cmd))
	assert.Equal(t, "subscribe", cmd.Cmd)
	assert.Equal(t, []string{"ticker_v2"}, cmd.Params.Channels)
	assert.Equal(t, []string{"FED-25DEC", "CPI-25NOV"}, cmd.Params.MarketTickers)
	assert.Equal(t, int64(1), cmd.ID)

	// Command IDs are monotonic.
	frames, err = f.UnsubscribeFrames([]string{"FED-25DEC"})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(frames[0], &cmd))
	assert.Equal(t, "unsubscribe", cmd.Cmd)
	assert.Equal(t, int64(2), cmd.ID)
}

func TestFramer_ParseTicker(t *testing.T) {
	f := NewFramer()

	updates, err := f.Parse([]byte(`{
		"type": "ticker_v2",
		"msg": {"market_ticker": "FED-25DEC", "yes_bid": 45, "yes_ask": 47, "ts": 1735000000}
	}`))
	require.NoError(t, err)
	require.Len(t, updates, 2)

	yes := updates[0]
	assert.Equal(t, types.SideYes, yes.Side)
	assert.Equal(t, "FED-25DEC", yes.MarketID)
	assert.Equal(t, "0.45", yes.Bid.String())
	assert.Equal(t, "0.47", yes.Ask.String())

	// NO book is the complement of the YES book.
	no := updates[1]
	assert.Equal(t, types.SideNo, no.Side)
	assert.Equal(t, "0.53", no.Bid.String())
	assert.Equal(t, "0.55", no.Ask.String())
}

func TestFramer_ParseControlFrame(t *testing.T) {
	f := NewFramer()

	updates, err := f.Parse([]byte(`{"type": "subscribed", "id": 1}`))
	require.NoError(t, err)
	assert.Empty(t, updates)
}
