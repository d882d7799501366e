package application

type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnectPending
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnectPending:
		return "reconnect_pending"
	default:
		return "unknown"
	}
}

type ConnectionEvent int

const (
	EventConnect ConnectionEvent = iota
	EventConnectAck
	EventConnectionLost
	EventReconnectAck
	EventReconnectFail
	EventStop
)

func (e ConnectionEvent) String() string {
	switch e {
	case EventConnect:
		return "connect"
	case EventConnectAck:
		return "connect_ack"
	case EventConnectionLost:
		return "connection_lost"
	case EventReconnectAck:
		return "reconnect_ack"
	case EventReconnectFail:
		return "reconnect_fail"
	case EventStop:
		return "stop"
	default:
		return "unknown"
	}
}

var transitions = map[ConnectionState]map[ConnectionEvent]ConnectionState{
	StateDisconnected: {
		EventConnect: StateConnecting,
	},
	StateConnecting: {
		EventConnectAck: StateConnected,
		EventStop:       StateDisconnected,
	},
	StateConnected: {
		EventConnectionLost: StateReconnectPending,
		EventStop:           StateDisconnected,
	},
	StateReconnectPending: {
		EventReconnectAck:  StateConnected,
		EventReconnectFail: StateReconnectPending,
		EventStop:          StateDisconnected,
	},
}

// Next returns the state reached by applying ev to s. The second result is
// false when ev is not accepted in s, in which case s is returned unchanged.
func (s ConnectionState) Next(ev ConnectionEvent) (ConnectionState, bool) {
	next, ok := transitions[s][ev]
	if !ok {
		return s, false
	}
	return next, true
}

// Active reports whether a connection (or an attempt at one) is held.
func (s ConnectionState) Active() bool {
	return s == StateConnecting || s == StateConnected || s == StateReconnectPending
}
