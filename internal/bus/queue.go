package bus

import (
	"context"
	"sync"
)

// MessageBus provides async message routing between channel ingest and the
// pipeline workers. Buffered Go channels in both directions.
type MessageBus struct {
	Inbound  chan InboundMessage
	Outbound chan OutboundMessage

	mu          sync.RWMutex
	subscribers map[string][]func(OutboundMessage)
}

// NewMessageBus creates a new message bus with buffered channels.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		Inbound:     make(chan InboundMessage, 100),
		Outbound:    make(chan OutboundMessage, 100),
		subscribers: make(map[string][]func(OutboundMessage)),
	}
}

// PublishInbound hands a received message to the pipeline.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	b.Inbound <- msg
}

// PublishOutbound hands a reply to whichever delivery transport is subscribed.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.Outbound <- msg
}

// Subscribe registers a callback for outbound messages of one business
// endpoint. An empty businessID subscribes to every endpoint.
func (b *MessageBus) Subscribe(businessID string, callback func(OutboundMessage)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[businessID] = append(b.subscribers[businessID], callback)
}

// DispatchOutbound runs the outbound dispatch loop. Blocks until ctx is cancelled.
func (b *MessageBus) DispatchOutbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.Outbound:
			b.mu.RLock()
			subs := append([]func(OutboundMessage){}, b.subscribers[msg.BusinessID]...)
			if msg.BusinessID != "" {
				subs = append(subs, b.subscribers[""]...)
			}
			b.mu.RUnlock()
			for _, cb := range subs {
				cb(msg)
			}
		}
	}
}

// InboundSize returns the number of pending inbound messages.
func (b *MessageBus) InboundSize() int {
	return len(b.Inbound)
}

// OutboundSize returns the number of pending outbound messages.
func (b *MessageBus) OutboundSize() int {
	return len(b.Outbound)
}
