package ratelimiter

import (
	"container/list"
	"sync"
	"time"
)

// FixedWindowCounter implements the RateLimiter interface using a fixed window
// counter algorithm. It allows up to limit requests in each fixed time window.
type FixedWindowCounter struct {
	limit  int
	window time.Duration
	count  int
	start  time.Time
	now    clock
	mutex  sync.Mutex
}

// NewFixedWindowCounter creates a new FixedWindowCounter.
func NewFixedWindowCounter(limit int, window time.Duration) *FixedWindowCounter {
	fwc := &FixedWindowCounter{
		limit:  limit,
		window: window,
		now:    systemClock,
	}
	fwc.start = fwc.now()
	return fwc
}

// Allow resets the counter when the window has elapsed and admits the request
// if the count is under the limit.
func (fwc *FixedWindowCounter) Allow() bool {
	fwc.mutex.Lock()
	defer fwc.mutex.Unlock()

	now := fwc.now()
	if now.After(fwc.start.Add(fwc.window)) {
		fwc.start = now
		fwc.count = 0
	}

	if fwc.count < fwc.limit {
		fwc.count++
		return true
	}
	return false
}

// SlidingWindowLog implements the RateLimiter interface using the sliding
// window log algorithm. It keeps a log of request timestamps in the window.
type SlidingWindowLog struct {
	limit  int
	window time.Duration
	log    *list.List
	now    clock
	mutex  sync.Mutex
}

// NewSlidingWindowLog creates a new SlidingWindowLog.
func NewSlidingWindowLog(limit int, window time.Duration) *SlidingWindowLog {
	return &SlidingWindowLog{
		limit:  limit,
		window: window,
		log:    list.New(),
		now:    systemClock,
	}
}

// Allow evicts timestamps outside the window and admits the request if the
// remaining log size is under the limit.
func (swl *SlidingWindowLog) Allow() bool {
	swl.mutex.Lock()
	defer swl.mutex.Unlock()

	now := swl.now()
	boundary := now.Add(-swl.window)

	for e := swl.log.Front(); e != nil; {
		next := e.Next()
		if e.Value.(time.Time).Before(boundary) {
			swl.log.Remove(e)
		} else {
			// Timestamps are ordered, stop at the first one inside the window.
			break
		}
		e = next
	}

	if swl.log.Len() < swl.limit {
		swl.log.PushBack(now)
		return true
	}
	return false
}

// SlidingWindowCounter implements the RateLimiter interface using the sliding
// window counter algorithm, a compromise between the fixed window counter and
// the sliding window log.
type SlidingWindowCounter struct {
	limit      int
	window     time.Duration
	numBuckets int
	bucketSize time.Duration
	buckets    []int
	current    int
	lastUpdate time.Time
	now        clock
	mutex      sync.Mutex
}

// NewSlidingWindowCounter creates a new SlidingWindowCounter.
// numBuckets controls the accuracy/memory trade-off; invalid values fall back
// to 10 buckets.
func NewSlidingWindowCounter(limit int, window time.Duration, numBuckets int) *SlidingWindowCounter {
	if numBuckets <= 0 {
		numBuckets = 10
	}
	swc := &SlidingWindowCounter{
		limit:      limit,
		window:     window,
		numBuckets: numBuckets,
		bucketSize: window / time.Duration(numBuckets),
		buckets:    make([]int, numBuckets),
		now:        systemClock,
	}
	swc.lastUpdate = swc.now()
	return swc
}

// slide moves the window forward, zeroing buckets that fell out of it.
func (swc *SlidingWindowCounter) slide() {
	now := swc.now()
	steps := int(now.Sub(swc.lastUpdate) / swc.bucketSize)
	if steps <= 0 {
		return
	}

	if steps >= swc.numBuckets {
		for i := range swc.buckets {
			swc.buckets[i] = 0
		}
	} else {
		for i := 1; i <= steps; i++ {
			swc.buckets[(swc.current+i)%swc.numBuckets] = 0
		}
	}
	swc.current = (swc.current + steps) % swc.numBuckets
	swc.lastUpdate = now
}

// Allow checks if a request is allowed.
func (swc *SlidingWindowCounter) Allow() bool {
	swc.mutex.Lock()
	defer swc.mutex.Unlock()

	swc.slide()

	var total int
	for _, c := range swc.buckets {
		total += c
	}

	if total < swc.limit {
		swc.buckets[swc.current]++
		return true
	}
	return false
}
