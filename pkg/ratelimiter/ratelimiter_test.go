package ratelimiter

import (
	"testing"
	"time"
)

// fakeClock lets tests advance time deterministically.
type fakeClock struct {
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.current }

func (c *fakeClock) Advance(d time.Duration) { c.current = c.current.Add(d) }

func TestTokenBucket_BurstAndRefill(t *testing.T) {
	clk := newFakeClock()
	tb := NewTokenBucket(1, 2) // 1 token/s, burst of 2
	tb.now = clk.Now
	tb.last = clk.Now()

	// The bucket starts full, so a burst of 2 is allowed.
	for i := 0; i < 2; i++ {
		if !tb.Allow() {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if tb.Allow() {
		t.Error("request beyond capacity should be denied")
	}

	// After one second a single token has been refilled.
	clk.Advance(time.Second)
	if !tb.Allow() {
		t.Error("request after refill should be allowed")
	}
	if tb.Allow() {
		t.Error("second request after single refill should be denied")
	}
}

func TestTokenBucket_CapacityCap(t *testing.T) {
	clk := newFakeClock()
	tb := NewTokenBucket(10, 3)
	tb.now = clk.Now
	tb.last = clk.Now()

	// A long idle period must not accumulate more than capacity.
	clk.Advance(time.Hour)
	allowed := 0
	for i := 0; i < 10; i++ {
		if tb.Allow() {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("expected 3 allowed requests, got %d", allowed)
	}
}

func TestLeakyBucket(t *testing.T) {
	clk := newFakeClock()
	lb := NewLeakyBucket(1, 2) // leaks 1/s, holds 2
	lb.now = clk.Now
	lb.last = clk.Now()

	if !lb.Allow() || !lb.Allow() {
		t.Fatal("bucket should accept up to its capacity")
	}
	if lb.Allow() {
		t.Error("full bucket should reject the request")
	}

	// One second later one request has leaked out.
	clk.Advance(time.Second)
	if !lb.Allow() {
		t.Error("request after leak should be allowed")
	}
}

func TestFixedWindowCounter(t *testing.T) {
	clk := newFakeClock()
	fwc := NewFixedWindowCounter(2, time.Minute)
	fwc.now = clk.Now
	fwc.start = clk.Now()

	if !fwc.Allow() || !fwc.Allow() {
		t.Fatal("requests within the limit should be allowed")
	}
	if fwc.Allow() {
		t.Error("request over the limit should be denied")
	}

	// A new window resets the counter.
	clk.Advance(61 * time.Second)
	if !fwc.Allow() {
		t.Error("request in the next window should be allowed")
	}
}

func TestSlidingWindowLog(t *testing.T) {
	clk := newFakeClock()
	swl := NewSlidingWindowLog(2, time.Minute)
	swl.now = clk.Now

	if !swl.Allow() {
		t.Fatal("first request should be allowed")
	}
	clk.Advance(30 * time.Second)
	if !swl.Allow() {
		t.Fatal("second request should be allowed")
	}
	if swl.Allow() {
		t.Error("third request within the window should be denied")
	}

	// 31 seconds later the first timestamp has left the window.
	clk.Advance(31 * time.Second)
	if !swl.Allow() {
		t.Error("request should be allowed once the oldest entry expires")
	}
}

func TestSlidingWindowCounter(t *testing.T) {
	clk := newFakeClock()
	swc := NewSlidingWindowCounter(2, time.Minute, 6)
	swc.now = clk.Now
	swc.lastUpdate = clk.Now()

	if !swc.Allow() || !swc.Allow() {
		t.Fatal("requests within the limit should be allowed")
	}
	if swc.Allow() {
		t.Error("request over the limit should be denied")
	}

	// After the whole window has passed all buckets are zeroed.
	clk.Advance(2 * time.Minute)
	if !swc.Allow() {
		t.Error("request after the window should be allowed")
	}
}

func TestSlidingWindowCounter_DefaultBuckets(t *testing.T) {
	swc := NewSlidingWindowCounter(10, time.Minute, 0)
	if swc.numBuckets != 10 {
		t.Errorf("expected fallback to 10 buckets, got %d", swc.numBuckets)
	}
}
