package throttle

import (
	"context"
	"sync"
	"time"
)

const pollInterval = 10 * time.Millisecond

// Throttle is a token bucket. With a burst of 1 it enforces a minimum gap of
// interval between successive Wait returns, which is how stream connections
// are admitted against the venue.
type Throttle struct {
	tokens         int
	maxTokens      int
	interval       time.Duration
	lastRefillTime time.Time
	mu             sync.Mutex
}

// New creates a throttle holding up to burst tokens, one added per interval.
// An interval <= 0 disables throttling.
func New(burst int, interval time.Duration) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		tokens:         burst,
		maxTokens:      burst,
		interval:       interval,
		lastRefillTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is done
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.interval <= 0 {
		return ctx.Err()
	}

	for {
		if t.tryAcquire() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (t *Throttle) tryAcquire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	if add := int(now.Sub(t.lastRefillTime) / t.interval); add > 0 {
		t.tokens += add
		if t.tokens > t.maxTokens {
			t.tokens = t.maxTokens
		}
		t.lastRefillTime = t.lastRefillTime.Add(time.Duration(add) * t.interval)
	}

	if t.tokens > 0 {
		t.tokens--
		if t.tokens == t.maxTokens-1 {
			// bucket was full; the next token is due one interval from now
			t.lastRefillTime = now
		}
		return true
	}
	return false
}
