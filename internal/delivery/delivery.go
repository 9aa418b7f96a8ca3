// Package delivery carries replies from the pipeline back to a messaging
// channel.
package delivery

import (
	"log"

	"github.com/waffyhq/waffy-go/internal/bus"
)

// Sender delivers one reply to a customer.
type Sender interface {
	Send(msg bus.OutboundMessage)
}

// BusSender queues replies on the message bus for whichever channel adapter
// is subscribed to the business endpoint.
type BusSender struct {
	Bus *bus.MessageBus
}

func (s BusSender) Send(msg bus.OutboundMessage) {
	s.Bus.PublishOutbound(msg)
}

// LogSender writes replies to the process log. Used by the one-shot command
// and as the fallback when no channel is attached.
type LogSender struct{}

func (LogSender) Send(msg bus.OutboundMessage) {
	log.Printf("[Delivery] -> %s: %s", msg.CustomerID, msg.Text)
}
