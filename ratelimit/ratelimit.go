// ratelimit bounds the request rate to an external provider with a
// sliding window: at most maxRequests acquisitions per rolling window.
// Each independently quota'd provider endpoint owns a named Limiter
// instance.
package ratelimit

import (
	"sync"
	"time"
)

type Limiter struct {
	mu          sync.Mutex
	maxRequests int
	window      time.Duration

	// Timestamps of granted acquisitions inside the current window, oldest
	// first.
	timestamps []time.Time
}

func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
	}
}

// Acquire blocks until a request slot is available under the limiter's
// policy. Callers are served in FIFO order of lock acquisition; there is
// no cancellation, once called it returns only when a slot is granted.
func (l *Limiter) Acquire() {
	for {
		l.mu.Lock()
		now := time.Now()
		l.evictExpired(now)

		if len(l.timestamps) < l.maxRequests {
			l.timestamps = append(l.timestamps, now)
			l.mu.Unlock()
			return
		}

		// Wait until the oldest timestamp falls outside the window, then
		// re-check. Another caller may win the slot in between, so this
		// must loop rather than assume the slot is ours.
		wait := l.window - now.Sub(l.timestamps[0])
		l.mu.Unlock()

		if wait > 0 {
			time.Sleep(wait)
		}
	}
}

func (l *Limiter) evictExpired(now time.Time) {
	cutoff := 0
	for cutoff < len(l.timestamps) && now.Sub(l.timestamps[cutoff]) >= l.window {
		cutoff++
	}
	if cutoff > 0 {
		l.timestamps = l.timestamps[cutoff:]
	}
}
