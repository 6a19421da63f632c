// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package poweroff

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iwerr "github.com/idlewatch-dev/idlewatch/pkg/errors"
)

// newTestRunner builds an ExecRunner with the filesystem sync stubbed
// out so tests do not sync the host's disks.
func newTestRunner(t *testing.T, command string) (*ExecRunner, *int) {
	t.Helper()

	r, err := NewExecRunner(command)
	require.NoError(t, err)

	syncs := 0
	r.syncFunc = func() { syncs++ }
	return r, &syncs
}

func TestNewExecRunner_DefaultsCommand(t *testing.T) {
	r, err := NewExecRunner("")
	require.NoError(t, err)
	assert.Equal(t, []string{"shutdown", "-h", "now"}, r.argv)
}

func TestNewExecRunner_RejectsBlankCommand(t *testing.T) {
	_, err := NewExecRunner("   ")
	require.Error(t, err)
	assert.True(t, iwerr.IsInvalidInput(err))
}

func TestPowerOff_RunsCommandAndSyncsFirst(t *testing.T) {
	r, syncs := newTestRunner(t, "true")

	err := r.PowerOff(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, *syncs)
}

func TestPowerOff_CommandFailureIsClassified(t *testing.T) {
	r, _ := newTestRunner(t, "false")

	err := r.PowerOff(context.Background())
	require.Error(t, err)
	assert.True(t, iwerr.HasCode(err, iwerr.CodeShutdownPrimitiveFailure))
}

func TestPowerOff_MissingCommandIsClassified(t *testing.T) {
	r, _ := newTestRunner(t, "definitely-not-a-real-command-xyz")

	err := r.PowerOff(context.Background())
	require.Error(t, err)
	assert.True(t, iwerr.HasCode(err, iwerr.CodeShutdownPrimitiveFailure))
}

func TestPowerOff_IncludesCommandOutputOnFailure(t *testing.T) {
	r, _ := newTestRunner(t, "sh -c exit_1_with_noise")

	err := r.PowerOff(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sh -c")
}
