package stream

// State is the connection state of a [Manager].
type State string

const (
	StateDisconnected       State = "disconnected"
	StateConnecting         State = "connecting"
	StateConnected          State = "connected"
	StateReconnectScheduled State = "reconnect_scheduled"
)

func (s State) String() string { return string(s) }

// Label returns a short human readable form for status bars.
func (s State) Label() string {
	switch s {
	case StateConnecting:
		return "connecting…"
	case StateConnected:
		return "live"
	case StateReconnectScheduled:
		return "reconnecting"
	default:
		return "offline"
	}
}
