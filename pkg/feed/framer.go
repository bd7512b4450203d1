package feed

import "github.com/predixlabs/crossarb/pkg/types"

// Framer translates between venue wire formats and price updates. Each venue
// adapter supplies its own implementation.
type Framer interface {
	// SubscribeFrames builds the frames that subscribe to the given market IDs.
	SubscribeFrames(marketIDs []string) ([][]byte, error)

	// UnsubscribeFrames builds the frames that drop the given market IDs.
	UnsubscribeFrames(marketIDs []string) ([][]byte, error)

	// Parse decodes one inbound frame into zero or more price updates.
	// Control frames and heartbeats decode to an empty slice.
	Parse(data []byte) ([]types.PriceUpdate, error)
}
