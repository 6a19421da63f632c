// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package probe_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idlewatch-dev/idlewatch/internal/probe"
	iwerr "github.com/idlewatch-dev/idlewatch/pkg/errors"
)

// funcProbe adapts a function to the Probe interface.
type funcProbe struct {
	name string
	fn   func(ctx context.Context) probe.Signal
}

func (p *funcProbe) Name() string                              { return p.name }
func (p *funcProbe) Evaluate(ctx context.Context) probe.Signal { return p.fn(ctx) }

func activeProbe(name string, active bool) probe.Probe {
	return &funcProbe{name: name, fn: func(_ context.Context) probe.Signal {
		return probe.Observed(name, active)
	}}
}

func TestNewRunner_RejectsZeroProbes(t *testing.T) {
	_, err := probe.NewRunner(nil, time.Second)
	require.Error(t, err)
	assert.True(t, iwerr.IsInvalidInput(err))
}

func TestNewRunner_RejectsNonPositiveTimeout(t *testing.T) {
	_, err := probe.NewRunner([]probe.Probe{activeProbe("panel", true)}, 0)
	require.Error(t, err)
	assert.True(t, iwerr.IsInvalidInput(err))
}

func TestRunner_SignalsPreserveConfigurationOrder(t *testing.T) {
	runner, err := probe.NewRunner([]probe.Probe{
		activeProbe("panel", false),
		activeProbe("sockets", true),
		activeProbe("gamequery", false),
	}, time.Second)
	require.NoError(t, err)

	signals := runner.EvaluateAll(context.Background())
	require.Len(t, signals, 3)
	assert.Equal(t, "panel", signals[0].Source)
	assert.Equal(t, "sockets", signals[1].Source)
	assert.Equal(t, "gamequery", signals[2].Source)
	assert.True(t, signals[1].IsActive())
}

func TestRunner_FailingProbeDoesNotAbortSiblings(t *testing.T) {
	failing := &funcProbe{name: "panel", fn: func(_ context.Context) probe.Signal {
		return probe.Failed("panel", iwerr.New(iwerr.CodeProbePanelUpstreamFailure, "panel down"))
	}}

	runner, err := probe.NewRunner([]probe.Probe{failing, activeProbe("sockets", true)}, time.Second)
	require.NoError(t, err)

	signals := runner.EvaluateAll(context.Background())
	require.Len(t, signals, 2)
	assert.False(t, signals[0].OK())
	assert.True(t, signals[1].IsActive())
}

func TestRunner_PanickingProbeBecomesFailedSignal(t *testing.T) {
	panicking := &funcProbe{name: "panel", fn: func(_ context.Context) probe.Signal {
		panic("probe bug")
	}}

	runner, err := probe.NewRunner([]probe.Probe{panicking, activeProbe("sockets", false)}, time.Second)
	require.NoError(t, err)

	signals := runner.EvaluateAll(context.Background())
	require.Len(t, signals, 2)
	assert.False(t, signals[0].OK())
	assert.Contains(t, signals[0].Err.Error(), "panicked")
	assert.True(t, signals[1].OK())
}

func TestRunner_SlowProbeIsBoundedByTimeout(t *testing.T) {
	slow := &funcProbe{name: "panel", fn: func(ctx context.Context) probe.Signal {
		<-ctx.Done()
		return probe.Failed("panel", iwerr.Wrapf(ctx.Err(), iwerr.CodeProbeEvaluateTimeout, "panel did not respond"))
	}}

	runner, err := probe.NewRunner([]probe.Probe{slow, activeProbe("sockets", true)}, 20*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	signals := runner.EvaluateAll(context.Background())
	elapsed := time.Since(start)

	assert.Less(t, elapsed, runner.RoundBudget(), "parallel evaluation must be bounded by the per-probe timeout")
	assert.False(t, signals[0].OK())
	assert.True(t, iwerr.IsTimeout(signals[0].Err))
	assert.True(t, signals[1].IsActive())
}

func TestRunner_TracksHealthPerProbe(t *testing.T) {
	flaky := &funcProbe{name: "panel", fn: func(_ context.Context) probe.Signal {
		return probe.Failed("panel", iwerr.New(iwerr.CodeProbePanelAuthDenied, "key rejected"))
	}}

	runner, err := probe.NewRunner([]probe.Probe{flaky, activeProbe("sockets", false)}, time.Second)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		runner.EvaluateAll(context.Background())
	}

	metrics := runner.HealthMetrics()
	require.Contains(t, metrics, "panel")
	require.Contains(t, metrics, "sockets")
	assert.False(t, metrics["panel"].Healthy)
	assert.EqualValues(t, 3, metrics["panel"].ConsecutiveAuthFailures)
	assert.True(t, metrics["sockets"].Healthy)
}
