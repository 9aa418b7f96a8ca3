// Package respond picks the outbound reply for a finished pipeline turn.
// Selection is template-based and never fails; an empty string means the
// message gets no reply.
package respond

import (
	"fmt"
	"strings"

	"github.com/waffyhq/waffy-go/internal/extract"
	"github.com/waffyhq/waffy-go/internal/routing"
)

// responseHours maps issue priority to the promised response window.
var responseHours = map[string]int{
	"high":     4,
	"moderate": 12,
	"low":      24,
}

// Selector renders replies from the routed record kind and extraction.
type Selector struct {
	// AckFiller controls whether greetings and thanks get a generic reply.
	AckFiller bool
}

// Reply describes one turn's outcome to the selector.
type Reply struct {
	Kind         routing.RecordKind
	Priority     string
	Fields       extract.Fields
	RecordRef    string
	Consolidated bool
	Rejected     bool
}

// Select returns the reply text for a turn, or "" when the turn should stay
// silent.
func (s Selector) Select(r Reply) string {
	if r.Rejected {
		return "Sorry, we can't help with that request."
	}

	switch r.Kind {
	case routing.KindOrder:
		return s.orderReply(r)
	case routing.KindIssue:
		return s.issueReply(r)
	case routing.KindFeedback:
		return "Thank you for your feedback! It helps us serve you better."
	case routing.KindEnquiry:
		return "Thanks for reaching out! We'll get back to you with the details shortly."
	default:
		if s.AckFiller {
			return "Hello! How can we help you today?"
		}
		return ""
	}
}

func (s Selector) orderReply(r Reply) string {
	var b strings.Builder
	if r.Consolidated {
		b.WriteString("Added to your order")
	} else {
		b.WriteString("Order confirmed")
	}
	if r.RecordRef != "" {
		fmt.Fprintf(&b, " (%s)", r.RecordRef)
	}
	b.WriteString("!")

	if items := itemSummary(r.Fields.Items); items != "" {
		b.WriteString(" ")
		b.WriteString(items)
		b.WriteString(".")
	}

	if when := r.Fields.Scalar(extract.KeyDeliveryTime); when != "" {
		if normalized := NormalizeDeliveryTime(when); normalized != "" {
			when = normalized
		}
		fmt.Fprintf(&b, " Delivery: %s.", when)
	}
	if addr := r.Fields.Scalar(extract.KeyDeliveryAddress); addr != "" {
		fmt.Fprintf(&b, " Address: %s.", addr)
	}
	return b.String()
}

func (s Selector) issueReply(r Reply) string {
	hours, ok := responseHours[strings.ToLower(r.Priority)]
	if !ok {
		hours = responseHours["moderate"]
	}
	return fmt.Sprintf("We're sorry for the trouble. Your issue has been recorded and our team will respond within %d hours.", hours)
}

func itemSummary(items []extract.LineItem) string {
	if len(items) == 0 {
		return ""
	}
	parts := make([]string, 0, len(items))
	for _, li := range items {
		part := li.Item
		if li.Quantity != "" {
			part = li.Quantity + " "
			if li.Unit != "" {
				part += li.Unit + " "
			}
			part += li.Item
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
