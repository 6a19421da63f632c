// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package probe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	iwerr "github.com/idlewatch-dev/idlewatch/pkg/errors"
	"github.com/idlewatch-dev/idlewatch/pkg/health"
)

// Runner evaluates a fixed, ordered set of probes once per round. Probes
// run concurrently with a per-probe timeout and a join barrier, so one
// slow probe bounds round latency instead of multiplying it. A failing
// probe never aborts its siblings.
type Runner struct {
	probes   []Probe
	timeout  time.Duration
	trackers map[string]*FailureTracker
}

// NewRunner creates a Runner. At least one probe is required; refusing to
// run with zero probes is enforced again here because an empty round
// would silently count as inactive forever.
func NewRunner(probes []Probe, timeout time.Duration) (*Runner, error) {
	if len(probes) == 0 {
		return nil, iwerr.New(iwerr.CodeConfigValidateInvalidValue, "at least one activity probe must be configured")
	}
	if timeout <= 0 {
		return nil, iwerr.Errorf(iwerr.CodeConfigValidateInvalidValue, "probe timeout must be positive, got %s", timeout)
	}

	trackers := make(map[string]*FailureTracker, len(probes))
	for _, p := range probes {
		trackers[p.Name()] = NewFailureTracker()
	}

	return &Runner{
		probes:   probes,
		timeout:  timeout,
		trackers: trackers,
	}, nil
}

// Probes returns the configured probes in evaluation order.
func (r *Runner) Probes() []Probe {
	return r.probes
}

// RoundBudget is the overall deadline for one round of evaluations:
// probes run in parallel, so the round needs only the per-probe timeout
// plus a small grace for scheduling.
func (r *Runner) RoundBudget() time.Duration {
	return r.timeout + 2*time.Second
}

// EvaluateAll runs every probe once and returns their signals in
// configuration order. Failures are recorded against the probe's tracker
// and logged; persistent credential rejections escalate to error level.
func (r *Runner) EvaluateAll(ctx context.Context) []Signal {
	signals := make([]Signal, len(r.probes))

	var wg sync.WaitGroup
	for i, p := range r.probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			signals[i] = r.evaluateOne(ctx, p)
		}(i, p)
	}
	wg.Wait()

	for _, sig := range signals {
		tracker := r.trackers[sig.Source]
		if sig.OK() {
			tracker.RecordSuccess()
			continue
		}

		tracker.RecordFailure(sig.Err)
		if tracker.AuthEscalated() {
			slog.Error("probe credential rejected repeatedly",
				"probe", sig.Source,
				"consecutive_auth_failures", tracker.Metrics().ConsecutiveAuthFailures,
				"error", sig.Err)
		} else {
			slog.Warn("probe failed", "probe", sig.Source, "error", sig.Err)
		}
	}

	return signals
}

func (r *Runner) evaluateOne(ctx context.Context, p Probe) (sig Signal) {
	// A panicking probe is recorded as a failed signal rather than taking
	// down the round.
	defer func() {
		if rec := recover(); rec != nil {
			sig = Failed(p.Name(), iwerr.Errorf(iwerr.CodeProbeEvaluateFailure, "probe %s panicked: %v", p.Name(), rec))
		}
	}()

	evalCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	sig = p.Evaluate(evalCtx)
	if sig.Source == "" {
		sig.Source = p.Name()
	}
	return sig
}

// HealthMetrics returns a snapshot of every probe's failure tracker,
// keyed by probe name.
func (r *Runner) HealthMetrics() map[string]health.Metrics {
	out := make(map[string]health.Metrics, len(r.trackers))
	for name, tracker := range r.trackers {
		out[name] = tracker.Metrics()
	}
	return out
}
