// Package events publishes record notifications to RabbitMQ so downstream
// consumers (dashboards, notifiers) can react to persisted records.
// Publishing is best-effort: a broker outage never blocks the pipeline.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RecordEvent describes one persisted record.
type RecordEvent struct {
	EventID    string `json:"event_id"`
	Kind       string `json:"kind"` // order | issue | enquiry | feedback
	RecordRef  string `json:"record_ref"`
	MessageID  string `json:"message_id"`
	CustomerID string `json:"customer_id"`
	BusinessID string `json:"business_id"`
	Category   string `json:"category"`
	Priority   string `json:"priority"`
	OccurredAt int64  `json:"occurred_at"`
}

// Publisher emits record events. The zero-value (nil) Publisher is a no-op,
// so callers never need to branch on whether events are configured.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewPublisher connects to RabbitMQ and declares the record exchange. An
// empty URL disables publishing and returns nil without error.
func NewPublisher(url, exchange string) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}
	if exchange == "" {
		exchange = "waffy.records"
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Printf("[Events] connected to %s, exchange %s", url, exchange)
	return &Publisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish emits one record event under the routing key record.<kind>.
// Failures are logged and swallowed.
func (p *Publisher) Publish(ctx context.Context, ev RecordEvent) {
	if p == nil {
		return
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.OccurredAt == 0 {
		ev.OccurredAt = time.Now().Unix()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[Events] marshal event %s: %v", ev.EventID, err)
		return
	}

	err = p.channel.PublishWithContext(ctx, p.exchange, "record."+ev.Kind, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   ev.EventID,
		Timestamp:   time.Unix(ev.OccurredAt, 0),
		Body:        body,
	})
	if err != nil {
		log.Printf("[Events] publish %s failed: %v", ev.RecordRef, err)
	}
}

// Close tears down the broker connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.channel.Close()
	p.conn.Close()
}
