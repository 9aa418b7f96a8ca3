// Package contextstore maintains, per (customer, business) pair, a rolling
// window of recent message texts used to ground classification.
//
// Reads are filtered against the current message's own timestamp, not wall
// clock, so replays and out-of-order delivery behave deterministically.
// Store unavailability degrades to "no context" rather than failing the
// pipeline: context is an enrichment, not a correctness requirement.
package contextstore

import (
	"context"
	"time"
)

// Entry is one remembered message text with its original timestamp.
type Entry struct {
	Text      string `json:"text"`
	Timestamp int64  `json:"ts"` // seconds since epoch
}

// Window bounds what a read returns.
type Window struct {
	Capacity int           // max entries returned
	Horizon  time.Duration // max age relative to the message being processed
}

// DefaultWindow mirrors the shipped configuration defaults.
func DefaultWindow() Window {
	return Window{Capacity: 5, Horizon: 15 * time.Minute}
}

// Store is the conversation context contract.
//
// Get returns message texts oldest-first, trimmed to the window relative to
// asOf. Record always appends; trimming is enumeration-based at read time.
// Clear wipes the conversation's stored history.
type Store interface {
	Get(ctx context.Context, customerID, businessID string, asOf int64) []string
	Record(ctx context.Context, customerID, businessID, text string, ts int64)
	Clear(ctx context.Context, customerID, businessID string)
}

// maxStored bounds physical storage per conversation; the read window is
// always narrower than this.
const maxStored = 64

// windowed applies the read semantics shared by all backends: entries are
// newest-first on input, filtered to the horizon around asOf, capped to
// capacity, and returned oldest-first.
func windowed(entries []Entry, w Window, asOf int64) []string {
	horizon := int64(w.Horizon / time.Second)

	var recent []Entry
	for _, e := range entries {
		age := asOf - e.Timestamp
		if age < 0 {
			age = -age
		}
		if age <= horizon {
			recent = append(recent, e)
		}
	}
	if len(recent) > w.Capacity {
		recent = recent[:w.Capacity]
	}

	texts := make([]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		texts = append(texts, recent[i].Text)
	}
	return texts
}
