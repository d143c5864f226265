package websearch

import (
	"sync"
	"time"
)

// Limiter bounds provider calls with a sliding window. Reserve claims a
// slot atomically so two concurrent requests can never both take the last
// one.
type Limiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

func NewLimiter(limit int) *Limiter {
	return &Limiter{
		limit:  limit,
		window: time.Minute,
		now:    time.Now,
	}
}

// Reserve claims one slot in the current window. Check and append happen
// under one lock.
func (l *Limiter) Reserve() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if len(l.stamps) >= l.limit {
		return false
	}

	l.stamps = append(l.stamps, now)
	return true
}

// Remaining reports how many slots are left in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	return l.limit - len(l.stamps)
}

func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	kept := l.stamps[:0]
	for _, t := range l.stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.stamps = kept
}
