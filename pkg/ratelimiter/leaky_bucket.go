package ratelimiter

import (
	"sync"
	"time"
)

// LeakyBucket implements the RateLimiter interface using the leaky bucket algorithm.
// It ensures a steady outflow of requests, smoothing out bursts.
type LeakyBucket struct {
	rate     float64 // Requests drained per second.
	capacity float64 // Maximum bucket capacity.
	level    float64 // Current water level.
	last     time.Time
	now      clock
	mutex    sync.Mutex
}

// NewLeakyBucket creates a new LeakyBucket.
// rate: the number of requests to process per second.
// capacity: the maximum burst size (bucket capacity).
func NewLeakyBucket(rate float64, capacity int) *LeakyBucket {
	lb := &LeakyBucket{
		rate:     rate,
		capacity: float64(capacity),
		now:      systemClock,
	}
	lb.last = lb.now()
	return lb
}

// Allow drains the bucket according to elapsed time and admits the request if
// there is room for one more drop.
func (lb *LeakyBucket) Allow() bool {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	now := lb.now()
	if leaked := now.Sub(lb.last).Seconds() * lb.rate; leaked > 0 {
		lb.level -= leaked
		if lb.level < 0 {
			lb.level = 0
		}
		lb.last = now
	}

	if lb.level < lb.capacity {
		lb.level++
		return true
	}
	return false
}
