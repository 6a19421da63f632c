// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package engine

import (
	"github.com/idlewatch-dev/idlewatch/internal/probe"
)

// Verdict is the per-round reduction of all probe signals.
type Verdict struct {
	// Active is true if any probe that produced a result observed
	// activity. Failed probes contribute neither true nor false.
	Active bool `json:"active"`

	// Degraded is true if one or more probes failed this round.
	Degraded bool `json:"degraded"`

	// ActiveSources lists, in evaluation order, the probes that
	// reported activity.
	ActiveSources []string `json:"active_sources,omitempty"`

	// ObservedCount is the number of probes that produced a result.
	// A round with ObservedCount zero is fully degraded: every probe
	// failed and the verdict defaults to inactive.
	ObservedCount int `json:"observed_count"`
}

// FullyDegraded reports whether no probe produced a result this round.
func (v Verdict) FullyDegraded() bool {
	return v.ObservedCount == 0
}

// Aggregate reduces one round's signals to a single verdict: an OR over
// the successful signals only. A round where every probe failed yields
// an inactive, degraded verdict; how the timer treats such a round is
// governed by the on_degraded policy.
func Aggregate(signals []probe.Signal) Verdict {
	var v Verdict
	for _, sig := range signals {
		if !sig.OK() {
			v.Degraded = true
			continue
		}
		v.ObservedCount++
		if sig.IsActive() {
			v.Active = true
			v.ActiveSources = append(v.ActiveSources, sig.Source)
		}
	}
	return v
}
