// Package bus provides the async message bus between channel ingest and the
// conversation pipeline.
package bus

// InboundMessage is one customer message received from a messaging channel.
type InboundMessage struct {
	MessageID    string `json:"message_id"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name,omitempty"`
	BusinessID   string `json:"business_id"`
	Text         string `json:"text"`
	Kind         string `json:"kind,omitempty"` // text, media, ...
	Timestamp    int64  `json:"timestamp"`      // seconds since epoch, the authoritative ordering key
}

// ConversationKey returns the unique key for a (customer, business) conversation.
func (m *InboundMessage) ConversationKey() string {
	return m.CustomerID + ":" + m.BusinessID
}

// OutboundMessage is an automated reply headed back to the customer.
type OutboundMessage struct {
	CustomerID string `json:"customer_id"`
	BusinessID string `json:"business_id"`
	Text       string `json:"text"`
	ReplyTo    string `json:"reply_to,omitempty"` // inbound message id that triggered this reply
}
