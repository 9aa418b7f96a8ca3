// Package ratelimit throttles inbound messages per customer with a sliding
// one-minute window.
package ratelimit

import (
	"sync"
	"time"
)

const (
	window     = time.Minute
	pruneEvery = 256 // Allow calls between sweeps of idle customers
)

// Limiter counts recent messages per customer and rejects the overflow.
type Limiter struct {
	mu        sync.Mutex
	perMinute int
	calls     int
	seen      map[string][]time.Time
}

// New builds a Limiter allowing perMinute messages per customer. A
// non-positive limit falls back to 10.
func New(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &Limiter{
		perMinute: perMinute,
		seen:      make(map[string][]time.Time),
	}
}

// Allow reports whether a message from customerID at now may proceed, and
// counts it when it may.
func (l *Limiter) Allow(customerID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-window)

	l.calls++
	if l.calls%pruneEvery == 0 {
		l.prune(cutoff)
	}

	kept := l.seen[customerID][:0]
	for _, t := range l.seen[customerID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= l.perMinute {
		l.seen[customerID] = kept
		return false
	}

	l.seen[customerID] = append(kept, now)
	return true
}

// prune drops customers whose newest message has left the window, so the map
// does not grow with every customer the process has ever seen. Caller holds
// the lock.
func (l *Limiter) prune(cutoff time.Time) {
	for id, times := range l.seen {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(l.seen, id)
		}
	}
}
