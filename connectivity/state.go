// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package connectivity

// State is the lifecycle state of the transport.
type State int

const (
	// Disconnected means no connection has been established yet.
	Disconnected State = iota

	// LinkUp means the network link is up but there is no broker session.
	LinkUp

	// BrokerConnected means the broker session is open and subscriptions
	// are in place.
	BrokerConnected

	// Degraded means an established session was lost and is being
	// re-established.
	Degraded
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case LinkUp:
		return "LINK_UP"
	case BrokerConnected:
		return "BROKER_CONNECTED"
	case Degraded:
		return "DEGRADED"
	default:
		return "UNKNOWN"
	}
}
