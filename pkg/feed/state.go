// Package feed maintains streaming price connections to venues. A Manager
// owns one connection, tracks its lifecycle through an explicit state
// machine, and fans parsed price updates out on a channel.
package feed

// State is the connection lifecycle state.
type State int

const (
	// StateDisconnected is the initial state, also reached after a clean
	// server-side close or an explicit Disconnect.
	StateDisconnected State = iota

	// StateConnecting means an initial dial is in flight.
	StateConnecting

	// StateConnected means the connection is open and subscriptions are live.
	StateConnected

	// StateReconnecting means the connection dropped and a retry is scheduled.
	StateReconnecting

	// StateFailed is terminal: the retry budget is exhausted. Only an
	// explicit Connect leaves this state.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event reports a state transition on the manager's event channel.
type Event struct {
	State State
	Err   error
}
