// Package ratelimit paces outbound calls to third-party endpoints.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a minimum gap of 1/callsPerSecond between successive
// Wait returns. It is a leaky bucket of size one: no burst budget, only
// inter-call spacing. The first Wait never blocks.
type Limiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	last        time.Time
	calls       int

	sleep func(time.Duration) // test hook
}

func New(callsPerSecond float64) *Limiter {
	if callsPerSecond <= 0 {
		callsPerSecond = 1
	}
	return &Limiter{
		minInterval: time.Duration(float64(time.Second) / callsPerSecond),
		sleep:       time.Sleep,
	}
}

// Wait blocks until the minimum interval since the previous Wait
// returned has elapsed.
func (l *Limiter) Wait() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.last.IsZero() {
		if since := time.Since(l.last); since < l.minInterval {
			l.sleep(l.minInterval - since)
		}
	}
	l.last = time.Now()
	l.calls++
}

// Calls reports how many times Wait has been invoked.
func (l *Limiter) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}
