package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Gate is a fixed-window admission counter keyed by an opaque caller key.
// Counters live in process memory only and are rebuilt empty on restart.
// Bursts at window boundaries are accepted as the trade-off for O(1) memory
// and O(1) per-request cost. Several independent gates can coexist; a request
// must pass every gate that applies to its route class.
type Gate struct {
	limit  int
	window time.Duration

	mu       sync.Mutex
	windows  map[string]*window
	lastReap time.Time

	now func() time.Time
}

// New creates a gate admitting at most limit requests per key per window.
func New(limit int, windowDuration time.Duration) *Gate {
	return &Gate{
		limit:   limit,
		window:  windowDuration,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow performs an atomic check-and-increment for key. An expired window is
// reset before the request is evaluated; the count is only incremented on an
// affirmative decision.
func (g *Gate) Allow(key string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()

	w, ok := g.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(g.window)}
		g.windows[key] = w
		g.reapLocked(now)
		return Decision{Allowed: true, Remaining: g.limit - 1, ResetAt: w.resetAt}
	}

	if w.count >= g.limit {
		return Decision{Allowed: false, Remaining: 0, ResetAt: w.resetAt}
	}

	w.count++
	return Decision{Allowed: true, Remaining: g.limit - w.count, ResetAt: w.resetAt}
}

// reapLocked drops expired windows at most once per window duration. Stale
// keys are harmless for correctness; this only bounds memory.
func (g *Gate) reapLocked(now time.Time) {
	if now.Sub(g.lastReap) < g.window {
		return
	}
	for key, w := range g.windows {
		if !now.Before(w.resetAt) {
			delete(g.windows, key)
		}
	}
	g.lastReap = now
}

// Limit returns the configured per-window limit.
func (g *Gate) Limit() int {
	return g.limit
}

// Window returns the configured window duration.
func (g *Gate) Window() time.Duration {
	return g.window
}
