package auth

import (
	"sync"
	"time"
)

// Limit is a ceiling of Max attempts per fixed Window.
type Limit struct {
	Max    int
	Window time.Duration
}

// Limiter records an attempt for key and reports whether it is allowed.
type Limiter interface {
	Allow(key string, now time.Time) bool
}

type window struct {
	start time.Time
	count int
}

// FixedWindowLimiter counts attempts per identity inside a fixed window
// that starts with the identity's first attempt. The count resets once the
// window has elapsed. The mutex is only held for map bookkeeping, never
// across I/O or hashing.
type FixedWindowLimiter struct {
	mu        sync.Mutex
	limit     Limit
	windows   map[string]*window
	lastSweep time.Time
}

func NewFixedWindowLimiter(limit Limit) *FixedWindowLimiter {
	if limit.Max <= 0 {
		limit.Max = 1
	}
	if limit.Window <= 0 {
		limit.Window = time.Minute
	}
	return &FixedWindowLimiter{
		limit:   limit,
		windows: make(map[string]*window),
	}
}

// Allow records one attempt for key at now and reports whether it is
// within the ceiling.
func (l *FixedWindowLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.limit.Window {
		w = &window{start: now}
		l.windows[key] = w
	}
	if w.count <= l.limit.Max {
		w.count++
	}
	return w.count <= l.limit.Max
}

// Tracked returns the number of identities with live windows.
func (l *FixedWindowLimiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// sweep drops expired windows at most once per window length.
func (l *FixedWindowLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.limit.Window {
		return
	}
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.limit.Window {
			delete(l.windows, key)
		}
	}
	l.lastSweep = now
}
