// Package review decides whether a new order message extends the customer's
// most recent open order or starts a fresh one.
package review

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/waffyhq/waffy-go/internal/config"
	"github.com/waffyhq/waffy-go/internal/extract"
	"github.com/waffyhq/waffy-go/internal/store"
)

// consolidationKeywords mark a message as a follow-up to an earlier order.
var consolidationKeywords = []string{"also", "add", "along with", "with this", "as well"}

// Decision is the reviewer's verdict for one order message.
type Decision struct {
	// Consolidate is true when the message extends an existing order.
	Consolidate bool

	// OrderNumber identifies the order to extend. Empty for new orders.
	OrderNumber string

	// Fields is the message's extraction, with delivery details backfilled
	// from the target order when consolidating.
	Fields extract.Fields

	// Reason is a short human-readable note for the log.
	Reason string
}

// OrderLookup is the slice of the store gateway the reviewer needs.
type OrderLookup interface {
	MostRecentOrder(ctx context.Context, customerID string) (*store.OpenOrder, error)
}

// Reviewer consolidates order messages against the customer's order history.
type Reviewer struct {
	orders OrderLookup
	cfg    config.ReviewConfig
}

// New builds a Reviewer over the given order lookup.
func New(orders OrderLookup, cfg config.ReviewConfig) *Reviewer {
	if cfg.RecencyMins <= 0 {
		cfg.RecencyMins = 30
	}
	return &Reviewer{orders: orders, cfg: cfg}
}

// Review decides the consolidation outcome for an order message. customerID
// must already be canonical (see NormalizePhone); the lookup uses it
// verbatim so it matches the key the gateway persists under. Review never
// fails: when the order lookup errors, the message starts a new order.
func (r *Reviewer) Review(ctx context.Context, customerID, text string, sentAt int64, fields extract.Fields) Decision {
	fresh := Decision{Fields: fields, Reason: "no open order"}

	// Nothing to consolidate without line items: an order-status question
	// must not extend the open order it asks about.
	if len(fields.Items) == 0 {
		fresh.Reason = "no line items"
		return fresh
	}

	last, err := r.orders.MostRecentOrder(ctx, customerID)
	if err != nil {
		log.Printf("[Review] order lookup for %s failed, starting new order: %v", customerID, err)
		fresh.Reason = "lookup failed"
		return fresh
	}
	if !last.Pending() {
		return fresh
	}

	keyword := hasConsolidationKeyword(text)
	recent := withinRecency(last.CreatedAt, sentAt, r.cfg.RecencyMins)

	consolidate := keyword || recent
	if r.cfg.RequireBothSignals {
		consolidate = keyword && recent
	}
	if !consolidate {
		fresh.Reason = "open order too old, no follow-up wording"
		return fresh
	}

	reason := "recent open order"
	if keyword {
		reason = "follow-up wording"
	}
	return Decision{
		Consolidate: true,
		OrderNumber: last.OrderNumber,
		Fields:      backfillDelivery(fields, last),
		Reason:      reason,
	}
}

func hasConsolidationKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range consolidationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func withinRecency(createdAt time.Time, sentAt int64, recencyMins int) bool {
	if createdAt.IsZero() {
		return false
	}
	age := time.Unix(sentAt, 0).Sub(createdAt)
	return age >= 0 && age <= time.Duration(recencyMins)*time.Minute
}

// backfillDelivery copies the target order's delivery details into fields
// that the message itself left unset. Explicit values in the message win.
func backfillDelivery(fields extract.Fields, order *store.OpenOrder) extract.Fields {
	out := fields.Clone()
	fill := func(key, value string) {
		if value != "" && out.Scalar(key) == "" {
			out.SetScalar(key, value)
		}
	}
	fill(extract.KeyDeliveryAddress, order.DeliveryAddress)
	fill(extract.KeyDeliveryTime, order.DeliveryTime)
	fill(extract.KeyDeliveryMethod, order.DeliveryMethod)
	return out
}
