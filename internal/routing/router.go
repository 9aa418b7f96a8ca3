// Package routing maps a classified category to the business record kind that
// should be persisted for it.
package routing

import (
	"strings"

	"github.com/waffyhq/waffy-go/internal/classifier"
	"github.com/waffyhq/waffy-go/internal/config"
)

// RecordKind is the target record type for a classified message.
type RecordKind string

const (
	KindOrder    RecordKind = "order"
	KindIssue    RecordKind = "issue"
	KindEnquiry  RecordKind = "enquiry"
	KindFeedback RecordKind = "feedback"
	// KindNone marks conversational filler: nothing is persisted and the
	// rest of the pipeline is skipped for the message.
	KindNone RecordKind = "none"
)

// kindTable is the fixed mapping for the built-in categories.
var kindTable = map[string]RecordKind{
	"new_order":       KindOrder,
	"order_status":    KindOrder,
	"complaint":       KindIssue,
	"return_refund":   KindIssue,
	"follow_up":       KindIssue,
	"feedback":        KindFeedback,
	"general_inquiry": KindEnquiry,
}

// fillerCategories are acknowledged but never persisted.
var fillerCategories = map[string]bool{
	"greetings":  true,
	"thanks":     true,
	"small_talk": true,
	"chitchat":   true,
}

// Router resolves categories to record kinds, letting the business's category
// book override the built-in table.
type Router struct {
	book config.Book
}

// New creates a router over a category book.
func New(book config.Book) *Router {
	return &Router{book: book}
}

// Route returns the record kind for a category.
//
// Filler categories and safety-rejected messages route to KindNone. A kind
// configured in the book wins over the built-in table. Anything else —
// including user-created custom categories — falls through to KindEnquiry so
// no business-meaningful message is dropped.
func (r *Router) Route(category string) RecordKind {
	category = strings.ToLower(strings.TrimSpace(category))

	if fillerCategories[category] || category == classifier.RejectedCategory {
		return KindNone
	}

	if configured := r.book.Kind(category); configured != "" {
		switch RecordKind(configured) {
		case KindOrder, KindIssue, KindEnquiry, KindFeedback, KindNone:
			return RecordKind(configured)
		}
	}

	if kind, ok := kindTable[category]; ok {
		return kind
	}
	return KindEnquiry
}
