package application

import (
	"bytes"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockTransmitter struct {
	mock.Mock
}

func (m *MockTransmitter) Send(payload Payload) error {
	return m.Called(payload).Error(0)
}

func (m *MockTransmitter) Listen() error {
	return m.Called().Error(0)
}

func (m *MockTransmitter) Stop() {
	m.Called()
}

func (m *MockTransmitter) Status() TransmitterStatus {
	return m.Called().Get(0).(TransmitterStatus)
}

var _ Transmitter = &MockTransmitter{}

type MockAddressResolver struct {
	mock.Mock
}

func (m *MockAddressResolver) IPv4(iface string) (string, error) {
	args := m.Called(iface)
	return args.String(0), args.Error(1)
}

var _ AddressResolver = &MockAddressResolver{}

// sliceQueue hands out a fixed list of payloads, then reports empty after
// sleeping for the requested timeout.
type sliceQueue struct {
	items chan Payload
}

func newSliceQueue(items ...Payload) *sliceQueue {
	q := &sliceQueue{items: make(chan Payload, len(items))}
	for _, item := range items {
		q.items <- item
	}
	return q
}

func (q *sliceQueue) Push(payload Payload) {
	q.items <- payload
}

func (q *sliceQueue) Pop(timeout time.Duration) (Payload, bool) {
	select {
	case p := <-q.items:
		return p, true
	case <-time.After(timeout):
		return nil, false
	}
}

func (q *sliceQueue) Len() int {
	return len(q.items)
}

var _ MessageQueue = &sliceQueue{}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
