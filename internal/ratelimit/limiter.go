package ratelimit

import (
	"sync"
	"time"
)

// Default limits for the application form endpoint.
const (
	DefaultWindow      = 15 * time.Minute
	DefaultMaxRequests = 3
	DefaultMinInterval = 5 * time.Second
)

// CommitResult is the outcome of the authoritative check-and-increment.
type CommitResult int

const (
	// CommitOK means the slot was consumed and the email recorded.
	CommitOK CommitResult = iota
	// CommitDuplicate means this email was already submitted by the same
	// fingerprint in the current window. No slot is consumed.
	CommitDuplicate
	// CommitLimited means the window limit or minimum spacing would be
	// violated. Returned when two requests race past the advisory check.
	CommitLimited
)

// record tracks one fingerprint's recent submission behavior. Entries are
// reset in place once the window elapses and evicted by the janitor.
type record struct {
	count int
	last  time.Time
	seen  map[string]struct{}
}

// Limiter is a fixed-window per-fingerprint limiter with duplicate-email
// suppression. All state lives in one map guarded by one mutex; requests
// with different fingerprints never block each other for meaningful time
// because no I/O happens under the lock.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*record

	window      time.Duration
	maxRequests int
	minInterval time.Duration

	stop chan struct{}
	once sync.Once
}

// New returns a limiter; zero arguments fall back to the defaults.
func New(window time.Duration, maxRequests int, minInterval time.Duration) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Limiter{
		clients:     make(map[string]*record),
		window:      window,
		maxRequests: maxRequests,
		minInterval: minInterval,
		stop:        make(chan struct{}),
	}
}

// get returns the fingerprint's record, creating it on first sight and
// resetting counters that have gone stale. Callers must hold l.mu.
func (l *Limiter) get(key string, now time.Time) *record {
	rec, ok := l.clients[key]
	if !ok {
		rec = &record{seen: make(map[string]struct{})}
		l.clients[key] = rec
	}
	if !rec.last.IsZero() && now.Sub(rec.last) > l.window {
		rec.count = 0
		rec.seen = make(map[string]struct{})
	}
	return rec
}

// Check is the advisory rate check run before any payload work. It reports
// whether the fingerprint is currently limited and, if so, how long the
// client should wait. It never mutates counts.
func (l *Limiter) Check(key string, now time.Time) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.get(key, now)
	return l.limited(rec, now)
}

// limited applies the window-count and minimum-spacing rules.
// Callers must hold l.mu.
func (l *Limiter) limited(rec *record, now time.Time) (time.Duration, bool) {
	elapsed := now.Sub(rec.last)

	if rec.count >= l.maxRequests {
		return l.window - elapsed, true
	}
	if !rec.last.IsZero() && elapsed < l.minInterval {
		return l.minInterval - elapsed, true
	}
	return 0, false
}

// Commit is the authoritative check-and-increment, run after validation.
// Under a single critical section it re-verifies the limits (so concurrent
// requests from one fingerprint cannot both consume the last slot), rejects
// duplicate emails without consuming a slot, and otherwise records the
// submission.
func (l *Limiter) Commit(key, email string, now time.Time) (CommitResult, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := l.get(key, now)

	if _, dup := rec.seen[email]; dup {
		return CommitDuplicate, 0
	}
	if wait, isLimited := l.limited(rec, now); isLimited {
		return CommitLimited, wait
	}

	rec.count++
	rec.last = now
	rec.seen[email] = struct{}{}
	return CommitOK, 0
}

// Size reports how many fingerprints are currently tracked.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// StartJanitor evicts fingerprints idle longer than the window on the given
// interval, bounding memory for long-lived processes.
func (l *Limiter) StartJanitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-l.stop:
				return
			case now := <-ticker.C:
				l.evictStale(now)
			}
		}
	}()
}

// Stop terminates the janitor. Safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) evictStale(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, rec := range l.clients {
		if now.Sub(rec.last) > l.window {
			delete(l.clients, key)
		}
	}
}
