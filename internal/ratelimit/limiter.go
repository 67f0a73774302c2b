// Package ratelimit implements per-channel sliding-window admission control.
//
// Admit and Record follow a check-then-record contract and are not atomic with
// respect to each other: two callers on the same channel may both be admitted
// before either records. Acquire performs both steps under one lock and is what
// the dispatcher uses; Release undoes an Acquire when the delivery did not happen.
package ratelimit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

var ErrInvalidConfig = errors.New("invalid rate limit")

// Limit admits at most Limit events per rolling Window.
type Limit struct {
	Limit  int
	Window time.Duration
}

func (l Limit) String() string {
	return fmt.Sprintf("%d/%d", l.Limit, l.Window.Milliseconds())
}

// ParseLimit parses "limit/windowMillis", e.g. "10/60000".
func ParseLimit(s string) (Limit, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return Limit{}, fmt.Errorf("%w: %q, want limit/windowMillis", ErrInvalidConfig, s)
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil || n < 0 {
		return Limit{}, fmt.Errorf("%w: bad limit in %q", ErrInvalidConfig, s)
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || ms <= 0 {
		return Limit{}, fmt.Errorf("%w: bad window in %q", ErrInvalidConfig, s)
	}
	return Limit{Limit: n, Window: time.Duration(ms) * time.Millisecond}, nil
}

// Limiter holds admission timestamps per channel. Channels without a
// configured limit are always admitted.
type Limiter struct {
	mu     sync.Mutex
	limits map[string]Limit
	events map[string][]time.Time
}

func New(limits map[string]Limit) *Limiter {
	l := &Limiter{
		limits: make(map[string]Limit, len(limits)),
		events: make(map[string][]time.Time),
	}
	for id, lim := range limits {
		l.limits[id] = lim
	}
	return l
}

// Configure sets or replaces the limit for a channel.
func (l *Limiter) Configure(channelID string, lim Limit) {
	l.mu.Lock()
	l.limits[channelID] = lim
	l.mu.Unlock()
}

// LimitFor returns the limit configured for channelID.
func (l *Limiter) LimitFor(channelID string) (Limit, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limits[channelID]
	return lim, ok
}

// Admit reports whether channelID is under its limit at now. It records nothing.
func (l *Limiter) Admit(channelID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.admit(channelID, now)
}

// Record stores an admission at now and prunes entries that left the window.
func (l *Limiter) Record(channelID string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record(channelID, now)
}

// Acquire atomically admits and records. It returns false when the channel is saturated.
func (l *Limiter) Acquire(channelID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.admit(channelID, now) {
		return false
	}
	l.record(channelID, now)
	return true
}

// Release removes one admission recorded at t, freeing the slot taken by Acquire.
func (l *Limiter) Release(channelID string, t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ts := l.events[channelID]
	for i := len(ts) - 1; i >= 0; i-- {
		if ts[i].Equal(t) {
			l.events[channelID] = append(ts[:i], ts[i+1:]...)
			return
		}
	}
}

// InWindow returns the number of admissions currently counted for channelID.
func (l *Limiter) InWindow(channelID string, now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limits[channelID]
	if !ok {
		return len(l.events[channelID])
	}
	return l.count(channelID, now.Add(-lim.Window))
}

func (l *Limiter) admit(channelID string, now time.Time) bool {
	lim, ok := l.limits[channelID]
	if !ok {
		return true
	}
	return l.count(channelID, now.Add(-lim.Window)) < lim.Limit
}

// count returns the timestamps strictly after cutoff.
func (l *Limiter) count(channelID string, cutoff time.Time) int {
	n := 0
	for _, t := range l.events[channelID] {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

func (l *Limiter) record(channelID string, now time.Time) {
	lim, ok := l.limits[channelID]
	if !ok {
		return
	}
	ts := append(l.events[channelID], now)
	cutoff := now.Add(-lim.Window)
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.events[channelID] = kept
}
