// Package ratelimit implements sliding-window admission control.
//
// Each identity (usually a caller IP, optionally combined with an endpoint
// path) owns an ordered list of request timestamps. On every admission
// check the list is pruned to the trailing window and the post-prune length
// decides the outcome. A burst of exactly max requests is allowed; the
// request that would make the count max+1 is the first one denied.
//
// The clock is injectable so the window behavior can be unit-tested
// without sleeping.
package ratelimit

import (
	"sync"
	"time"
)

// Clock supplies the current time. The zero-dependency production
// implementation is SystemClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed    bool
	Remaining  int           // slots left in the window, never negative
	RetryAfter time.Duration // set when denied
}

// Limiter is one sliding-window pool. It is safe for concurrent use;
// record updates are serialized so concurrent bursts from the same
// identity cannot exceed the window.
type Limiter struct {
	window time.Duration
	max    int
	clock  Clock

	mu      sync.Mutex
	records map[string][]time.Time
}

// NewLimiter creates a pool allowing max admissions per identity within a
// trailing window. A nil clock defaults to the system clock.
func NewLimiter(window time.Duration, max int, clock Clock) *Limiter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Limiter{
		window:  window,
		max:     max,
		clock:   clock,
		records: make(map[string][]time.Time),
	}
}

// Admit checks and records one request for an identity. A denied request
// is not recorded and does not extend the caller's penalty.
func (l *Limiter) Admit(identity string) Decision {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	record := l.prune(identity, now)

	if len(record) >= l.max {
		return Decision{Allowed: false, Remaining: 0, RetryAfter: l.window}
	}

	record = append(record, now)
	l.records[identity] = record

	return Decision{Allowed: true, Remaining: l.max - len(record)}
}

// Remaining reports how many admissions are left in the identity's window
// without consuming one. Never negative.
func (l *Limiter) Remaining(identity string) int {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	record := l.prune(identity, now)
	remaining := l.max - len(record)
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Window returns the pool's window duration.
func (l *Limiter) Window() time.Duration { return l.window }

// prune drops timestamps older than now-window and garbage-collects
// identities whose records shrink to empty. Caller holds l.mu.
func (l *Limiter) prune(identity string, now time.Time) []time.Time {
	record, ok := l.records[identity]
	if !ok {
		return nil
	}

	cutoff := now.Add(-l.window)
	keep := 0
	for keep < len(record) && !record[keep].After(cutoff) {
		keep++
	}

	if keep == 0 {
		return record
	}

	record = record[keep:]
	if len(record) == 0 {
		delete(l.records, identity)
		return nil
	}
	l.records[identity] = record
	return record
}
