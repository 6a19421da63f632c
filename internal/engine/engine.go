// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

// Package engine implements the inactivity decision engine: it polls
// activity probes on a fixed interval, reduces their signals to one
// verdict per round, accumulates continuous inactive time, and powers
// the host off once the configured threshold is crossed.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/idlewatch-dev/idlewatch/internal/probe"
	"github.com/idlewatch-dev/idlewatch/pkg/health"
)

// Snapshot is a point-in-time view of the engine for the status surface.
// All fields are copies; readers never touch live engine state.
type Snapshot struct {
	Round        uint64                    `json:"round"`
	State        string                    `json:"state"` // "active" or "counting"
	Elapsed      time.Duration             `json:"elapsed"`
	Threshold    time.Duration             `json:"threshold"`
	LastVerdict  Verdict                   `json:"last_verdict"`
	LastRoundAt  time.Time                 `json:"last_round_at"`
	Probes       map[string]health.Metrics `json:"probes"`
	LastShutdown *ShutdownEvent            `json:"last_shutdown,omitempty"`
}

// Engine drives the round loop. Rounds are strictly serialized: the
// timer is only ever touched from Run's goroutine, so it needs no
// locking of its own.
type Engine struct {
	runner   *probe.Runner
	timer    *Timer
	trigger  *Trigger
	interval time.Duration

	mu   sync.RWMutex
	snap Snapshot
}

// New wires a ready-to-run engine. The components are created by the
// caller so tests can substitute fakes at any seam.
func New(runner *probe.Runner, timer *Timer, trigger *Trigger) *Engine {
	e := &Engine{
		runner:   runner,
		timer:    timer,
		trigger:  trigger,
		interval: timer.State().RoundInterval,
	}
	e.snap = Snapshot{
		State:     "active",
		Threshold: timer.State().Threshold,
		Probes:    runner.HealthMetrics(),
	}
	return e
}

// Run executes rounds until ctx is cancelled. The first round runs
// immediately; cancellation is observed at every sleep boundary and,
// through ctx, inside probe I/O.
func (e *Engine) Run(ctx context.Context) error {
	state := e.timer.State()
	slog.Info("inactivity monitor started",
		"threshold", state.Threshold,
		"interval", state.RoundInterval,
		"on_degraded", e.timer.Policy(),
		"probes", len(e.runner.Probes()))
	if e.timer.Policy() == DegradedCountdown {
		slog.Info("degraded-round policy: rounds where every probe fails count as inactive")
	} else {
		slog.Info("degraded-round policy: timer freezes while every probe fails")
	}

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.runRound(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("inactivity monitor stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			e.runRound(ctx)
		}
	}
}

// runRound performs one full round: evaluate, aggregate, advance, maybe
// trigger, publish snapshot.
func (e *Engine) runRound(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	roundCtx, cancel := context.WithTimeout(ctx, e.runner.RoundBudget())
	defer cancel()

	signals := e.runner.EvaluateAll(roundCtx)
	verdict := Aggregate(signals)

	prev := e.timer.State()
	state := e.timer.Advance(verdict)

	switch {
	case verdict.Active:
		if prev.Elapsed > 0 {
			slog.Info("activity detected, inactivity timer reset", "was_inactive_for", prev.Elapsed)
		}
		slog.Info("round verdict: active", "sources", verdict.ActiveSources, "degraded", verdict.Degraded)
	case verdict.FullyDegraded() && state.Elapsed == prev.Elapsed:
		slog.Warn("round verdict: all probes failed, timer frozen", "elapsed", state.Elapsed)
	default:
		slog.Info("round verdict: inactive",
			"elapsed", state.Elapsed,
			"remaining", state.Threshold-state.Elapsed,
			"degraded", verdict.Degraded)
	}

	event := e.trigger.MaybeTrigger(roundCtx, state)

	e.publish(verdict, state, event)
}

func (e *Engine) publish(verdict Verdict, state TimerState, event *ShutdownEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.snap.Round++
	e.snap.Elapsed = state.Elapsed
	e.snap.Threshold = state.Threshold
	e.snap.LastVerdict = verdict
	e.snap.LastRoundAt = time.Now()
	e.snap.Probes = e.runner.HealthMetrics()
	if state.Elapsed == 0 {
		e.snap.State = "active"
	} else {
		e.snap.State = "counting"
	}
	if event != nil {
		ev := *event
		e.snap.LastShutdown = &ev
	}
}

// Snapshot returns a copy of the latest published snapshot.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}
