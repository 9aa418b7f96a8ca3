// Package extract defines the structured payload pulled out of customer
// messages and the merge rules that accumulate it across conversation turns.
package extract

import (
	"fmt"
	"strings"
)

// Well-known scalar field keys the classifier is asked to use.
const (
	KeyDeliveryAddress = "delivery_address"
	KeyDeliveryTime    = "delivery_time"
	KeyDeliveryMethod  = "delivery_method"
	KeyPickupTime      = "pickup_time"
	KeyNotes           = "notes"
	KeyPaymentStatus   = "payment_status"
	KeyIssue           = "issue"
	KeyRequest         = "request"
	KeyAppointmentTime = "appointment_time"
	KeyContactInfo     = "contact_info"
)

// LineItem is one ordered item within a message.
type LineItem struct {
	Item     string `json:"item"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Key returns the identity key used to match items during merge.
func (li LineItem) Key() string {
	return strings.ToLower(strings.TrimSpace(li.Item))
}

// Fields holds everything extracted from a conversation so far: scalar
// values plus an ordered list of line items. Scalars and items are kept
// separate so merge semantics stay checkable.
type Fields struct {
	Scalars map[string]string `json:"scalars,omitempty"`
	Items   []LineItem        `json:"items,omitempty"`
}

// Empty reports whether nothing has been extracted.
func (f Fields) Empty() bool {
	return len(f.Scalars) == 0 && len(f.Items) == 0
}

// Scalar returns the value for key, or "" when absent.
func (f Fields) Scalar(key string) string {
	return f.Scalars[key]
}

// SetScalar stores a scalar value, allocating the map lazily.
func (f *Fields) SetScalar(key, value string) {
	if f.Scalars == nil {
		f.Scalars = make(map[string]string)
	}
	f.Scalars[key] = value
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	out := Fields{}
	if f.Scalars != nil {
		out.Scalars = make(map[string]string, len(f.Scalars))
		for k, v := range f.Scalars {
			out.Scalars[k] = v
		}
	}
	if f.Items != nil {
		out.Items = append([]LineItem(nil), f.Items...)
	}
	return out
}

// FromRaw converts the loosely-typed mapping returned by the classifier into
// typed Fields. List values under "items" or "products" become line items;
// anything else is flattened to a scalar string. Unrecognized shapes are
// dropped rather than failing the turn.
func FromRaw(raw map[string]any) Fields {
	var f Fields
	for key, val := range raw {
		switch key {
		case "items", "products":
			list, ok := val.([]any)
			if !ok {
				continue
			}
			for _, entry := range list {
				rec, ok := entry.(map[string]any)
				if !ok {
					continue
				}
				li := LineItem{
					Item:     rawString(rec["item"]),
					Quantity: rawString(rec["quantity"]),
					Unit:     rawString(rec["unit"]),
					Notes:    rawString(rec["notes"]),
				}
				if li.Item == "" {
					li.Item = rawString(rec["product"])
				}
				if li.Item != "" {
					f.Items = append(f.Items, li)
				}
			}
		default:
			if s := rawString(val); s != "" {
				f.SetScalar(key, s)
			}
		}
	}
	return f
}

func rawString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		if s == float64(int64(s)) {
			return fmt.Sprintf("%d", int64(s))
		}
		return fmt.Sprintf("%g", s)
	case bool:
		return fmt.Sprintf("%t", s)
	default:
		return ""
	}
}
