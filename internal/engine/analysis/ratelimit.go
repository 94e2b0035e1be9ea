package analysis

import (
	"sync"
	"time"
)

// Limiter is a sliding-window rate limiter keyed by caller identifier
// (e.g. an IP-derived string). It is independent of the per-job guardrail
// gate: the gate protects spend per job, the limiter protects the process
// from one hot caller.
type Limiter struct {
	mu        sync.Mutex
	entries   map[string]*callWindow
	max       int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// callWindow holds one caller's timestamps inside the sliding window.
type callWindow struct {
	calls       []time.Time
	lastCleanup time.Time
}

// NewLimiter allows max calls per window per identifier.
func NewLimiter(max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = 20
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		entries: make(map[string]*callWindow),
		max:     max,
		window:  window,
		now:     time.Now,
	}
}

// Allow evaluates and records atomically: a call that returns true has
// already consumed one slot in the window.
func (l *Limiter) Allow(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweepLocked(now)

	e, ok := l.entries[id]
	if !ok {
		e = &callWindow{lastCleanup: now}
		l.entries[id] = e
	}
	e.prune(now, l.window)

	if len(e.calls) >= l.max {
		return false
	}
	e.calls = append(e.calls, now)
	return true
}

// ResetIn returns seconds until the oldest call in the window expires, i.e.
// the Retry-After value. 0 means a slot is free right now.
func (l *Limiter) ResetIn(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[id]
	if !ok {
		return 0
	}
	e.prune(now, l.window)
	if len(e.calls) < l.max {
		return 0
	}
	left := e.calls[0].Add(l.window).Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// prune drops timestamps older than the window.
func (e *callWindow) prune(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(e.calls) && !e.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		e.calls = append(e.calls[:0], e.calls[i:]...)
	}
	e.lastCleanup = now
}

// sweepLocked garbage-collects identifiers idle for twice the window.
// Runs opportunistically whenever a window has passed since the last sweep,
// so memory stays bounded without a dedicated timer.
func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	idleCutoff := now.Add(-2 * l.window)
	for id, e := range l.entries {
		if len(e.calls) == 0 && e.lastCleanup.Before(idleCutoff) {
			delete(l.entries, id)
			continue
		}
		if len(e.calls) > 0 && e.calls[len(e.calls)-1].Before(idleCutoff) {
			delete(l.entries, id)
		}
	}
}
