// Copyright (C) 2024 Stan3984 peas contributors.
// See LICENSE for copying information.

// Package xtimer implements the cooperative scheduling helper used by every
// "in-flight" abstraction in the peer (SendHandle, IdLookup, Ting, the
// tracker refresh). Nothing here ever blocks; callers poll Expired.
package xtimer

import "time"

// Timer tracks a start instant and a duration, and can be disabled so that
// Expired always reports false regardless of elapsed time.
type Timer struct {
	start    time.Time
	duration time.Duration
	enabled  bool
}

// New starts an enabled timer that will expire after dur.
func New(dur time.Duration) *Timer {
	return &Timer{
		start:    time.Now(),
		duration: dur,
		enabled:  true,
	}
}

// NewExpired returns a timer that is already expired, useful for "do this on
// the first tick" initialization.
func NewExpired() *Timer {
	return New(0)
}

// Duration returns the configured timeout.
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Expired reports whether the timer has run out. margin scales the
// configured duration, e.g. 0.95 considers the timer expired once 95% of its
// duration has elapsed; margin must be in (0, 1]. A disabled timer is never
// expired.
func (t *Timer) Expired(margin float64) bool {
	if margin <= 0 || margin > 1 {
		panic("xtimer: margin must be in (0, 1]")
	}
	if !t.enabled {
		return false
	}
	threshold := time.Duration(float64(t.duration) * margin)
	return time.Since(t.start) >= threshold
}

// Disable stops the timer from ever reporting expired until Reset/ResetWith
// is called again.
func (t *Timer) Disable() {
	t.enabled = false
}

// Disabled reports whether the timer is currently disabled.
func (t *Timer) Disabled() bool {
	return !t.enabled
}

// Reset re-enables the timer and restarts its clock, keeping the same
// duration.
func (t *Timer) Reset() {
	t.enabled = true
	t.start = time.Now()
}

// ResetWith re-enables the timer with a new duration.
func (t *Timer) ResetWith(dur time.Duration) {
	t.duration = dur
	t.Reset()
}
