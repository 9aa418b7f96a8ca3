// Package store is the persistence gateway: it writes finalized business
// records and answers the reviewer's most-recent-order lookups.
package store

import (
	"context"
	"time"

	"github.com/waffyhq/waffy-go/internal/extract"
	"github.com/waffyhq/waffy-go/internal/routing"
)

// OrderStatusPending marks an order still open for additions.
const OrderStatusPending = "pending"

// OpenOrder is the reviewer's read-only view of a customer's order.
type OpenOrder struct {
	OrderNumber     string
	CustomerID      string
	Status          string
	CreatedAt       time.Time
	DeliveryAddress string
	DeliveryTime    string
	DeliveryMethod  string
}

// Pending reports whether the order may still be extended.
func (o *OpenOrder) Pending() bool {
	return o != nil && o.Status == OrderStatusPending
}

// Record is the finalized pipeline output handed to the gateway.
type Record struct {
	MessageID    string
	CustomerID   string
	CustomerName string
	BusinessID   string
	Text         string
	Category     string
	Priority     string
	Timestamp    int64
	Fields       extract.Fields

	// ConsolidateInto holds an existing order number when the reviewer
	// decided this message extends an open order.
	ConsolidateInto string
}

// Gateway persists records and serves order lookups.
//
// UpsertRecord must be idempotent on MessageID: redelivering a message
// returns the identifier persisted the first time, writing nothing new.
type Gateway interface {
	UpsertRecord(ctx context.Context, kind routing.RecordKind, rec Record) (string, error)
	MostRecentOrder(ctx context.Context, customerID string) (*OpenOrder, error)
}
