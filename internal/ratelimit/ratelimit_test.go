package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow_UpToLimit(t *testing.T) {
	l := New(3)
	now := time.Now()

	assert.True(t, l.Allow("c1", now))
	assert.True(t, l.Allow("c1", now.Add(time.Second)))
	assert.True(t, l.Allow("c1", now.Add(2*time.Second)))
	assert.False(t, l.Allow("c1", now.Add(3*time.Second)))
}

func TestAllow_WindowSlides(t *testing.T) {
	l := New(2)
	now := time.Now()

	assert.True(t, l.Allow("c1", now))
	assert.True(t, l.Allow("c1", now.Add(time.Second)))
	assert.False(t, l.Allow("c1", now.Add(2*time.Second)))

	// The first message has aged out of the window.
	assert.True(t, l.Allow("c1", now.Add(61*time.Second)))
}

func TestAllow_CustomersAreIndependent(t *testing.T) {
	l := New(1)
	now := time.Now()

	assert.True(t, l.Allow("c1", now))
	assert.False(t, l.Allow("c1", now))
	assert.True(t, l.Allow("c2", now))
}

func TestAllow_IdleCustomersPruned(t *testing.T) {
	l := New(10)
	now := time.Now()

	l.Allow("idle", now)

	// Enough later traffic from another customer to trigger a sweep after
	// the idle customer's window has emptied.
	for i := 0; i < pruneEvery; i++ {
		l.Allow("busy", now.Add(2*time.Minute))
	}

	l.mu.Lock()
	_, idleKept := l.seen["idle"]
	_, busyKept := l.seen["busy"]
	l.mu.Unlock()

	assert.False(t, idleKept, "idle customer entry should be swept")
	assert.True(t, busyKept)
}

func TestNew_DefaultsOnBadLimit(t *testing.T) {
	l := New(0)
	now := time.Now()
	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("c1", now.Add(time.Duration(i)*time.Second)))
	}
	assert.False(t, l.Allow("c1", now.Add(10*time.Second)))
}
