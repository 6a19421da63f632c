// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package probe

import (
	"context"
)

// Probe is the single capability every activity source implements:
// answer "did you observe activity right now" within the deadline carried
// by ctx.
type Probe interface {
	Name() string
	Evaluate(ctx context.Context) Signal
}

// Signal is one evaluation result from one probe. Active is nil iff the
// probe failed to produce a result, in which case Err carries the
// classified failure. Signals live for a single round and are never
// persisted.
type Signal struct {
	Source string
	Active *bool
	Err    error
}

// Observed builds a successful signal.
func Observed(source string, active bool) Signal {
	return Signal{Source: source, Active: &active}
}

// Failed builds a failed signal.
func Failed(source string, err error) Signal {
	return Signal{Source: source, Err: err}
}

// OK reports whether the probe produced a result.
func (s Signal) OK() bool {
	return s.Active != nil
}

// IsActive reports whether the probe observed activity. A failed signal
// is never active.
func (s Signal) IsActive() bool {
	return s.Active != nil && *s.Active
}
