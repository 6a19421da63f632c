// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package probe

import (
	"sync"
	"time"

	iwerr "github.com/idlewatch-dev/idlewatch/pkg/errors"
	"github.com/idlewatch-dev/idlewatch/pkg/health"
)

// AuthEscalationThreshold is the number of consecutive credential
// rejections after which the probe's failures are surfaced at error
// level instead of warn.
const AuthEscalationThreshold = 3

// FailureTracker keeps per-probe failure streaks for diagnostics. A probe
// is considered healthy until a failure is recorded and becomes healthy
// again on the next success.
type FailureTracker struct {
	mu              sync.RWMutex
	consecutive     int64
	authConsecutive int64
	lastFailureAt   time.Time
	nowFunc         func() time.Time // for testing
}

// NewFailureTracker creates a FailureTracker that starts healthy.
func NewFailureTracker() *FailureTracker {
	return &FailureTracker{nowFunc: time.Now}
}

// RecordSuccess clears all failure streaks.
func (t *FailureTracker) RecordSuccess() {
	t.mu.Lock()
	t.consecutive = 0
	t.authConsecutive = 0
	t.mu.Unlock()
}

// RecordFailure extends the failure streak. Credential rejections are
// counted separately so persistent auth failures can be escalated.
func (t *FailureTracker) RecordFailure(err error) {
	t.mu.Lock()
	t.consecutive++
	if iwerr.IsAuthDenied(err) {
		t.authConsecutive++
	} else {
		t.authConsecutive = 0
	}
	t.lastFailureAt = t.nowFunc()
	t.mu.Unlock()
}

// AuthEscalated reports whether the probe has been rejected by its
// credential for at least AuthEscalationThreshold consecutive rounds.
func (t *FailureTracker) AuthEscalated() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.authConsecutive >= AuthEscalationThreshold
}

// SetNowFunc overrides the time source (for testing).
func (t *FailureTracker) SetNowFunc(fn func() time.Time) {
	t.mu.Lock()
	t.nowFunc = fn
	t.mu.Unlock()
}

// Metrics returns a point-in-time snapshot of the tracker's state.
func (t *FailureTracker) Metrics() health.Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m := health.Metrics{
		ConsecutiveFailures:     t.consecutive,
		ConsecutiveAuthFailures: t.authConsecutive,
		Healthy:                 t.consecutive == 0,
	}

	if !t.lastFailureAt.IsZero() {
		at := t.lastFailureAt
		m.LastFailureAt = &at
	}
	return m
}
