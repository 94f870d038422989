package ratelimiter

import "time"

// RateLimiter is the interface for rate limiting.
// It defines a single method, Allow, which returns true if a request is allowed,
// and false otherwise.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// clock abstracts time.Now so limiter behavior can be driven deterministically
// in tests.
type clock func() time.Time

func systemClock() time.Time { return time.Now() }
