// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package engine

import (
	"time"

	iwerr "github.com/idlewatch-dev/idlewatch/pkg/errors"
)

// DegradedPolicy selects how the timer treats a fully degraded round
// (every probe failed).
type DegradedPolicy string

const (
	// DegradedCountdown keeps the timer advancing through fully
	// degraded rounds. This is the default.
	DegradedCountdown DegradedPolicy = "countdown"

	// DegradedFreeze holds the timer while every probe is failing.
	DegradedFreeze DegradedPolicy = "freeze"
)

// Valid reports whether p is a known policy.
func (p DegradedPolicy) Valid() bool {
	return p == DegradedCountdown || p == DegradedFreeze
}

// TimerState is the sole mutable state of the decision engine. Elapsed
// only ever changes inside Timer.Advance; everything else reads copies.
type TimerState struct {
	Elapsed       time.Duration
	Threshold     time.Duration
	RoundInterval time.Duration
}

// HasReachedThreshold reports whether the inactive stretch has reached
// the shutdown threshold.
func (s TimerState) HasReachedThreshold() bool {
	return s.Elapsed >= s.Threshold
}

// Timer accumulates continuous inactive time in exact round-interval
// increments. It never reads the wall clock, so scheduler jitter cannot
// skew the threshold.
type Timer struct {
	state  TimerState
	policy DegradedPolicy
}

// NewTimer creates a Timer at zero elapsed.
func NewTimer(threshold, roundInterval time.Duration, policy DegradedPolicy) (*Timer, error) {
	if threshold <= 0 {
		return nil, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue, "inactivity threshold must be positive, got %s", threshold)
	}
	if roundInterval <= 0 {
		return nil, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue, "round interval must be positive, got %s", roundInterval)
	}
	if !policy.Valid() {
		return nil, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue, "unknown degraded policy %q", policy)
	}

	return &Timer{
		state: TimerState{
			Threshold:     threshold,
			RoundInterval: roundInterval,
		},
		policy: policy,
	}, nil
}

// Advance applies one round's verdict and returns the new state. An
// active verdict resets elapsed to zero (a no-op if already zero); an
// inactive verdict adds exactly one round interval, unless the round was
// fully degraded and the freeze policy is in effect.
func (t *Timer) Advance(v Verdict) TimerState {
	switch {
	case v.Active:
		t.state.Elapsed = 0
	case v.FullyDegraded() && t.policy == DegradedFreeze:
		// hold
	default:
		t.state.Elapsed += t.state.RoundInterval
	}
	return t.state
}

// State returns a copy of the current timer state.
func (t *Timer) State() TimerState {
	return t.state
}

// Policy returns the configured degraded-round policy.
func (t *Timer) Policy() DegradedPolicy {
	return t.policy
}
