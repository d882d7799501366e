package adapters

import (
	"sync"
	"time"

	"network-assistant/application"
)

// MessageQueue is an unbounded FIFO handing decoded payloads from paho
// goroutines to the consumer. Push never blocks.
type MessageQueue struct {
	mu    sync.Mutex
	items []application.Payload

	// ready holds at most one pending wake-up for a waiting Pop.
	ready chan struct{}
}

func NewMessageQueue() *MessageQueue {
	return &MessageQueue{ready: make(chan struct{}, 1)}
}

func (q *MessageQueue) Push(payload application.Payload) {
	q.mu.Lock()
	q.items = append(q.items, payload)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Pop returns the oldest payload, waiting up to timeout for one to arrive.
// The second result is false when the wait expired with the queue empty.
func (q *MessageQueue) Pop(timeout time.Duration) (application.Payload, bool) {
	if payload, ok := q.tryPop(); ok {
		return payload, true
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-deadline.C:
			return q.tryPop()
		case <-q.ready:
			if payload, ok := q.tryPop(); ok {
				return payload, true
			}
		}
	}
}

func (q *MessageQueue) tryPop() (application.Payload, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}

	payload := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]

	// keep a second consumer from sleeping on items that are still queued
	if len(q.items) > 0 {
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}
	return payload, true
}

func (q *MessageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

var _ application.MessageQueue = &MessageQueue{}
