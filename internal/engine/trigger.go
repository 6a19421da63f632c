// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Primitive is the host power-off action the trigger fires. It is
// injected so tests can substitute a recorder.
type Primitive interface {
	PowerOff(ctx context.Context) error
}

// ShutdownOutcome records whether the power-off primitive succeeded.
type ShutdownOutcome string

const (
	OutcomeSuccess ShutdownOutcome = "success"
	OutcomeFailure ShutdownOutcome = "failure"
)

// ShutdownEvent describes one shutdown attempt.
type ShutdownEvent struct {
	ID          uuid.UUID       `json:"id"`
	TriggeredAt time.Time       `json:"triggered_at"`
	Elapsed     time.Duration   `json:"elapsed"`
	Outcome     ShutdownOutcome `json:"outcome"`
	Err         error           `json:"-"`
}

// Trigger fires the power-off primitive on the transition into
// threshold-reached and guarantees at most one successful attempt per
// continuous inactive episode. A failed primitive is retried on every
// subsequent round while the timer stays at or above threshold; the
// monitoring loop is never brought down by a shutdown failure.
type Trigger struct {
	primitive Primitive
	fired     bool
	nowFunc   func() time.Time // for testing
}

// NewTrigger creates a Trigger around the given power-off primitive.
func NewTrigger(primitive Primitive) *Trigger {
	return &Trigger{
		primitive: primitive,
		nowFunc:   time.Now,
	}
}

// SetNowFunc overrides the time source (for testing).
func (t *Trigger) SetNowFunc(fn func() time.Time) {
	t.nowFunc = fn
}

// MaybeTrigger checks the timer state and fires the primitive when the
// threshold is crossed. Returns the event for the attempt made this
// round, or nil if nothing was attempted.
func (t *Trigger) MaybeTrigger(ctx context.Context, state TimerState) *ShutdownEvent {
	if !state.HasReachedThreshold() {
		// Timer dropped below threshold: the episode ended, re-arm.
		t.fired = false
		return nil
	}

	if t.fired {
		// Already fired successfully this episode; the host is presumed
		// to be on its way down.
		return nil
	}

	event := &ShutdownEvent{
		ID:          uuid.New(),
		TriggeredAt: t.nowFunc(),
		Elapsed:     state.Elapsed,
	}

	slog.Info("inactivity threshold reached, triggering shutdown",
		"elapsed", state.Elapsed,
		"threshold", state.Threshold,
		"event_id", event.ID)

	if err := t.primitive.PowerOff(ctx); err != nil {
		event.Outcome = OutcomeFailure
		event.Err = err
		slog.Error("shutdown attempt failed, will retry next round", "event_id", event.ID, "error", err)
		return event
	}

	t.fired = true
	event.Outcome = OutcomeSuccess
	slog.Info("shutdown command executed", "event_id", event.ID)
	return event
}
