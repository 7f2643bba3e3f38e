package service

import (
	"errors"
	"sync"
	"time"
)

// Action classes throttled independently per user.
const (
	ActionStart         = "start"
	ActionContactSubmit = "contact-submit"
)

var ErrRateLimited = errors.New("rate limited")

// LimitRule caps an action class at Max occurrences per sliding Window.
type LimitRule struct {
	Max    int
	Window time.Duration
}

// Limiter is an in-memory sliding-window rate limiter keyed by
// (user, action class). Old timestamps are pruned on each check, so the
// limit resets as soon as the window slides past the earliest hit.
type Limiter struct {
	Rules map[string]LimitRule
	Now   func() time.Time // test hook, defaults to time.Now

	mu   sync.Mutex
	hits map[string][]time.Time
}

func (l *Limiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Allow records one occurrence of action for userID, or returns
// ErrRateLimited when the user already hit the cap inside the window.
// Actions without a configured rule are never limited.
func (l *Limiter) Allow(userID, action string) error {
	rule, ok := l.Rules[action]
	if !ok || rule.Max <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.hits == nil {
		l.hits = make(map[string][]time.Time)
	}

	key := action + "\x00" + userID
	now := l.now()
	cutoff := now.Add(-rule.Window)

	recent := l.hits[key][:0]
	for _, t := range l.hits[key] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rule.Max {
		l.hits[key] = recent
		return ErrRateLimited
	}

	l.hits[key] = append(recent, now)
	return nil
}

// Sweep drops fully expired windows so idle users do not accumulate
// state. Called by housekeeping.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var maxWindow time.Duration
	for _, rule := range l.Rules {
		if rule.Window > maxWindow {
			maxWindow = rule.Window
		}
	}

	now := l.now()
	removed := 0
	for key, hits := range l.hits {
		live := hits[:0]
		for _, t := range hits {
			if t.After(now.Add(-maxWindow)) {
				live = append(live, t)
			}
		}
		if len(live) == 0 {
			delete(l.hits, key)
			removed++
			continue
		}
		l.hits[key] = live
	}
	return removed
}
