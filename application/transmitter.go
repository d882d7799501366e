package application

import "time"

type TransmitterStatus struct {
	State             ConnectionState
	ClientID          string
	MessageCount      uint64
	LastTimePublished time.Time
	ReconnectAttempts uint64
	// Stalled is set once the single reconnect attempt failed. No further
	// attempt is made until the process is restarted.
	Stalled bool
}

type Transmitter interface {
	Send(payload Payload) error
	Listen() error
	Stop()

	Status() TransmitterStatus
}

type MessageQueue interface {
	Push(payload Payload)
	Pop(timeout time.Duration) (Payload, bool)
	Len() int
}

type AddressResolver interface {
	IPv4(iface string) (string, error)
}
