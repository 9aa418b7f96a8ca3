// Package lane serializes message processing per conversation. Messages from
// the same customer/business pair run strictly one at a time in arrival
// order, so a follow-up never races the order it extends. Different
// conversations process concurrently.
package lane

import (
	"context"
	"sync"
	"time"

	"github.com/waffyhq/waffy-go/internal/bus"
)

const (
	queueDepth = 100
	idleExit   = 5 * time.Minute
)

// Handler processes one inbound message to completion.
type Handler func(ctx context.Context, msg bus.InboundMessage) error

// laneItem wraps a message with its completion channel.
type laneItem struct {
	msg  bus.InboundMessage
	done chan error
}

// lane is one conversation's FIFO queue.
type lane struct {
	key   string
	queue chan laneItem
}

// Manager owns the per-conversation lanes.
type Manager struct {
	mu      sync.Mutex
	lanes   map[string]*lane
	handler Handler
	stopCh  chan struct{}
}

// NewManager builds a Manager dispatching to handler.
func NewManager(handler Handler) *Manager {
	return &Manager{
		lanes:   make(map[string]*lane),
		handler: handler,
		stopCh:  make(chan struct{}),
	}
}

// Submit queues msg on its conversation's lane and waits for processing to
// finish. Messages submitted in order complete in order within a lane.
func (m *Manager) Submit(ctx context.Context, msg bus.InboundMessage) error {
	l := m.getOrCreate(msg.ConversationKey())
	item := laneItem{msg: msg, done: make(chan error, 1)}

	select {
	case l.queue <- item:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-item.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) getOrCreate(key string) *lane {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.lanes[key]; ok {
		return l
	}

	l := &lane{key: key, queue: make(chan laneItem, queueDepth)}
	m.lanes[key] = l
	go m.runWorker(l)
	return l
}

// runWorker drains one lane until it goes idle or the manager stops.
func (m *Manager) runWorker(l *lane) {
	for {
		select {
		case item := <-l.queue:
			item.done <- m.handler(context.Background(), item.msg)

		case <-time.After(idleExit):
			m.mu.Lock()
			delete(m.lanes, l.key)
			m.mu.Unlock()
			return

		case <-m.stopCh:
			return
		}
	}
}

// LaneCount returns the number of live lanes.
func (m *Manager) LaneCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lanes)
}

// Stop shuts down all lane workers.
func (m *Manager) Stop() {
	close(m.stopCh)
}
